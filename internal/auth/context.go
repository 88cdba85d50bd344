package auth

import (
	"context"
	"strings"
)

// Principal is the authenticated caller: a wallet address plus its
// directory-assigned role. The ledger itself only consumes Address.
type Principal struct {
	Address string
	Role    string
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil || strings.TrimSpace(v.Address) == "" {
		return Principal{}, false
	}
	return *v, true
}

// CallerFromContext returns just the wallet address of the caller.
func CallerFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", false
	}
	return p.Address, true
}
