package ledger

import "time"

// Allowed is the authorization decision for resolving an owner's pointer.
// Owners always read their own record. Anyone else needs a live grant whose
// expiry is strictly after now: a grant expiring at exactly now is already
// expired. The caller samples now once and passes it in, so a single decision
// cannot straddle the expiry boundary.
func Allowed(owner, requester string, g Grant, now time.Time) bool {
	if owner == requester {
		return true
	}
	return g.Granted && g.ExpiresAt.After(now)
}
