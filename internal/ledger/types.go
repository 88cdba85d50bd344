package ledger

import (
	"errors"
	"time"
)

// Record is an owner's single pointer slot. Pointer is an opaque reference
// to off-chain content (typically an IPFS CID); the ledger never inspects it.
type Record struct {
	Pointer   string    `json:"pointer"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grant is the live access state for one (owner, grantee) pair.
// A revoked grant keeps its last ExpiresAt; the timestamp is only meaningful
// while Granted is true.
type Grant struct {
	Granted   bool      `json:"granted"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantView is one row of an owner's audit listing: the live grant state for
// a grantee that at some point held access.
type GrantView struct {
	Grantee   string    `json:"grantee"`
	Granted   bool      `json:"granted"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

// Holding is one row of a grantee's accessible-records listing. HasRecord is
// false when the owner granted access but never registered a pointer.
type Holding struct {
	Owner     string    `json:"owner"`
	Pointer   string    `json:"pointer,omitempty"`
	HasRecord bool      `json:"has_record"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Event kinds appended to the ledger's ordered event log.
const (
	EventRecordRegister = "record.register"
	EventAccessGrant    = "access.grant"
	EventAccessRevoke   = "access.revoke"
)

// Event is an immutable entry in the ledger's append-only event log.
type Event struct {
	ID        string    `json:"id"`
	Sequence  uint64    `json:"sequence"` // monotonic sequence number
	Kind      string    `json:"kind"`
	Owner     string    `json:"owner"`
	Grantee   string    `json:"grantee,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)
