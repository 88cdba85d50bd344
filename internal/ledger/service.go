package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"medledger.org/internal/ids"
)

// Service defines the access-ledger operations. Every call carries the
// already-authenticated caller identifier explicitly; the ledger performs no
// authentication of its own.
type Service interface {
	RegisterRecord(ctx context.Context, caller, pointer string) (Record, error)
	GetOwnRecord(ctx context.Context, caller string) (Record, error)
	GetRecord(ctx context.Context, caller, owner string) (Record, error)
	GrantAccess(ctx context.Context, caller, grantee string, expiresAt time.Time) (Grant, error)
	RevokeAccess(ctx context.Context, caller, grantee string) error
	ListGrantsIssued(ctx context.Context, caller string) ([]GrantView, error)
	ListGrantsHeld(ctx context.Context, caller string) ([]Holding, error)
	ListEvents(ctx context.Context, limit int, afterSeq uint64) ([]Event, uint64, error)
}

type pairKey struct {
	owner   string
	grantee string
}

// InMemory implements Service with in-process concurrency safety. One lock
// guards records, grants, both historical indices and the event log, so no
// reader can observe a mutation half-applied across them.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]Record
	grants  map[pairKey]Grant

	// Append-only historical indices, insertion-ordered. A pair enters both
	// on its first grant and is never removed, including after revocation.
	grantedTo map[string][]string // owner -> grantees ever granted
	grantedBy map[string][]string // grantee -> owners who ever granted

	seq    uint64
	events []Event

	now func() time.Time
}

// NewInMemory creates an empty ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[string]Record),
		grants:    make(map[pairKey]Grant),
		grantedTo: make(map[string][]string),
		grantedBy: make(map[string][]string),
		now:       time.Now,
	}
}

func (s *InMemory) RegisterRecord(ctx context.Context, caller, pointer string) (Record, error) {
	caller = strings.TrimSpace(caller)
	pointer = strings.TrimSpace(pointer)
	if caller == "" || pointer == "" {
		return Record{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{Pointer: pointer, UpdatedAt: s.now().UTC()}
	s.records[caller] = rec
	s.appendEvent(EventRecordRegister, caller, "")
	return rec, nil
}

func (s *InMemory) GetOwnRecord(ctx context.Context, caller string) (Record, error) {
	return s.GetRecord(ctx, caller, caller)
}

func (s *InMemory) GetRecord(ctx context.Context, caller, owner string) (Record, error) {
	caller = strings.TrimSpace(caller)
	owner = strings.TrimSpace(owner)
	if caller == "" || owner == "" {
		return Record{}, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !Allowed(owner, caller, s.grants[pairKey{owner, caller}], s.now().UTC()) {
		return Record{}, ErrUnauthorized
	}
	rec, ok := s.records[owner]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *InMemory) GrantAccess(ctx context.Context, caller, grantee string, expiresAt time.Time) (Grant, error) {
	caller = strings.TrimSpace(caller)
	grantee = strings.TrimSpace(grantee)
	if caller == "" || grantee == "" || caller == grantee {
		return Grant{}, ErrInvalidInput
	}
	// A past expiresAt is accepted and simply evaluates as expired.

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{caller, grantee}
	if _, seen := s.grants[key]; !seen {
		// First grant for this pair: record the relationship permanently.
		s.grantedTo[caller] = append(s.grantedTo[caller], grantee)
		s.grantedBy[grantee] = append(s.grantedBy[grantee], caller)
	}
	g := Grant{Granted: true, ExpiresAt: expiresAt.UTC()}
	s.grants[key] = g
	s.appendEvent(EventAccessGrant, caller, grantee)
	return g, nil
}

func (s *InMemory) RevokeAccess(ctx context.Context, caller, grantee string) error {
	caller = strings.TrimSpace(caller)
	grantee = strings.TrimSpace(grantee)
	if caller == "" || grantee == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{caller, grantee}
	g, seen := s.grants[key]
	if !seen || !g.Granted {
		// Idempotent: revoking an absent or already-revoked grant succeeds
		// without creating a slot or touching the historical indices.
		return nil
	}
	g.Granted = false // ExpiresAt deliberately left as-is
	s.grants[key] = g
	s.appendEvent(EventAccessRevoke, caller, grantee)
	return nil
}

func (s *InMemory) ListGrantsIssued(ctx context.Context, caller string) ([]GrantView, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	grantees := s.grantedTo[caller]
	out := make([]GrantView, 0, len(grantees))
	for _, grantee := range grantees {
		g := s.grants[pairKey{caller, grantee}]
		out = append(out, GrantView{
			Grantee:   grantee,
			Granted:   g.Granted,
			ExpiresAt: g.ExpiresAt,
			Expired:   !g.ExpiresAt.After(now),
		})
	}
	return out, nil
}

func (s *InMemory) ListGrantsHeld(ctx context.Context, caller string) ([]Holding, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	var out []Holding
	for _, owner := range s.grantedBy[caller] {
		g := s.grants[pairKey{owner, caller}]
		if !Allowed(owner, caller, g, now) {
			// Lapsed or revoked owners are omitted, not reported as denied.
			continue
		}
		h := Holding{Owner: owner, ExpiresAt: g.ExpiresAt}
		if rec, ok := s.records[owner]; ok {
			h.Pointer = rec.Pointer
			h.HasRecord = true
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *InMemory) ListEvents(ctx context.Context, limit int, afterSeq uint64) ([]Event, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Event
	var last uint64
	for _, ev := range s.events {
		if ev.Sequence <= afterSeq {
			continue
		}
		res = append(res, ev)
		last = ev.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}

// appendEvent records a mutation in the ordered log. Callers hold mu.
func (s *InMemory) appendEvent(kind, owner, grantee string) {
	s.seq++
	s.events = append(s.events, Event{
		ID:        ids.New(),
		Sequence:  s.seq,
		Kind:      kind,
		Owner:     owner,
		Grantee:   grantee,
		CreatedAt: s.now().UTC(),
	})
}
