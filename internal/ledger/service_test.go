package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(now time.Time) (*InMemory, *time.Time) {
	s := NewInMemory()
	current := now
	s.now = func() time.Time { return current }
	return s, &current
}

func TestRegisterOverwritesPointer(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	if _, err := s.RegisterRecord(ctx, "owner-1", "cidA"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RegisterRecord(ctx, "owner-1", "cidB"); err != nil {
		t.Fatal(err)
	}
	rec, err := s.GetOwnRecord(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Pointer != "cidB" {
		t.Fatalf("expected latest pointer cidB, got %q", rec.Pointer)
	}
}

func TestOwnRecordAbsent(t *testing.T) {
	s, _ := newTestLedger(base)
	if _, err := s.GetOwnRecord(context.Background(), "owner-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGrantAllowsUntilExpiry(t *testing.T) {
	s, now := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")
	if _, err := s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetRecord(ctx, "doc-1", "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Pointer != "cidA" {
		t.Fatalf("unexpected pointer %q", rec.Pointer)
	}

	*now = base.Add(2 * time.Hour)
	if _, err := s.GetRecord(ctx, "doc-1", "owner-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after expiry, got %v", err)
	}
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	s, now := newTestLedger(base)
	ctx := context.Background()

	exp := base.Add(time.Hour)
	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", exp)

	*now = exp
	if _, err := s.GetRecord(ctx, "doc-1", "owner-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("grant at exactly its expiry must deny, got %v", err)
	}
	*now = exp.Add(-time.Nanosecond)
	if _, err := s.GetRecord(ctx, "doc-1", "owner-1"); err != nil {
		t.Fatalf("grant just before expiry must allow, got %v", err)
	}
}

func TestRevokeDeniesDespiteFutureExpiry(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(1000*time.Hour))
	if err := s.RevokeAccess(ctx, "owner-1", "doc-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRecord(ctx, "doc-1", "owner-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revoke, got %v", err)
	}
}

func TestRevokeAbsentPairIsNoop(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	if err := s.RevokeAccess(ctx, "owner-1", "doc-1"); err != nil {
		t.Fatalf("revoking a never-granted pair must succeed, got %v", err)
	}
	views, err := s.ListGrantsIssued(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Fatalf("revoke must not create historical entries, got %v", views)
	}
	// Double revoke is equally silent.
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(time.Hour))
	if err := s.RevokeAccess(ctx, "owner-1", "doc-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RevokeAccess(ctx, "owner-1", "doc-1"); err != nil {
		t.Fatal(err)
	}
}

func TestHistoricalMembershipSurvivesRevoke(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	exp := base.Add(time.Hour)
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", exp)
	if err := s.RevokeAccess(ctx, "owner-1", "doc-1"); err != nil {
		t.Fatal(err)
	}

	views, err := s.ListGrantsIssued(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Grantee != "doc-1" {
		t.Fatalf("revoked grantee must remain in the audit listing: %v", views)
	}
	if views[0].Granted {
		t.Fatal("listing must show granted=false after revoke")
	}
	if !views[0].ExpiresAt.Equal(exp) {
		t.Fatalf("revoke must keep the stale expiry, got %v", views[0].ExpiresAt)
	}

	// The grantee's accessible listing omits the revoked owner entirely.
	holdings, err := s.ListGrantsHeld(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 0 {
		t.Fatalf("revoked owners must be omitted from holdings: %v", holdings)
	}
}

func TestRegrantRecordsRelationshipOnce(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(time.Hour))
	_ = s.RevokeAccess(ctx, "owner-1", "doc-1")
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(2*time.Hour))
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(3*time.Hour))

	views, _ := s.ListGrantsIssued(ctx, "owner-1")
	if len(views) != 1 {
		t.Fatalf("pair must appear once in the index regardless of re-grants: %v", views)
	}
	if !views[0].ExpiresAt.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("re-grant must overwrite expiry, got %v", views[0].ExpiresAt)
	}
}

func TestListGrantsIssuedPreservesInsertionOrder(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	for _, doc := range []string{"doc-3", "doc-1", "doc-2"} {
		_, _ = s.GrantAccess(ctx, "owner-1", doc, base.Add(time.Hour))
	}
	views, _ := s.ListGrantsIssued(ctx, "owner-1")
	want := []string{"doc-3", "doc-1", "doc-2"}
	if len(views) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(views))
	}
	for i, doc := range want {
		if views[i].Grantee != doc {
			t.Fatalf("entry %d: expected %s, got %s", i, doc, views[i].Grantee)
		}
	}
}

func TestSelfAccessAlwaysAllowed(t *testing.T) {
	s, now := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")
	*now = base.Add(10000 * time.Hour)
	if _, err := s.GetRecord(ctx, "owner-1", "owner-1"); err != nil {
		t.Fatalf("self access must never be denied: %v", err)
	}
}

func TestPastExpiryAcceptedButExpired(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	if _, err := s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(-time.Hour)); err != nil {
		t.Fatalf("past expiry must be accepted at write time: %v", err)
	}
	if _, err := s.GetRecord(ctx, "doc-1", "owner-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("past-dated grant must evaluate as expired, got %v", err)
	}
	views, _ := s.ListGrantsIssued(ctx, "owner-1")
	if len(views) != 1 || !views[0].Expired {
		t.Fatalf("listing must flag the grant as expired: %v", views)
	}
}

func TestSelfGrantRejected(t *testing.T) {
	s, _ := newTestLedger(base)
	if _, err := s.GrantAccess(context.Background(), "owner-1", "owner-1", base.Add(time.Hour)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHoldingWithoutRecord(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(time.Hour))
	holdings, err := s.ListGrantsHeld(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 1 {
		t.Fatalf("expected one holding, got %v", holdings)
	}
	if holdings[0].HasRecord || holdings[0].Pointer != "" {
		t.Fatalf("owner without a record must surface as no-record-yet: %+v", holdings[0])
	}
}

func TestGrantRevokeRegrantScenario(t *testing.T) {
	s, now := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(3600*time.Second))

	*now = base.Add(1000 * time.Second)
	rec, err := s.GetRecord(ctx, "doc-1", "owner-1")
	if err != nil || rec.Pointer != "cidA" {
		t.Fatalf("expected cidA at T+1000, got %q, %v", rec.Pointer, err)
	}

	*now = base.Add(3600 * time.Second)
	if _, err := s.GetRecord(ctx, "doc-1", "owner-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized at exactly T+3600, got %v", err)
	}

	_ = s.RevokeAccess(ctx, "owner-1", "doc-1")
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(7200*time.Second))

	*now = base.Add(5000 * time.Second)
	rec, err = s.GetRecord(ctx, "doc-1", "owner-1")
	if err != nil || rec.Pointer != "cidA" {
		t.Fatalf("expected cidA at T+5000 after re-grant, got %q, %v", rec.Pointer, err)
	}
}

func TestEventLogOrderingAndPaging(t *testing.T) {
	s, _ := newTestLedger(base)
	ctx := context.Background()

	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")
	_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", base.Add(time.Hour))
	_ = s.RevokeAccess(ctx, "owner-1", "doc-1")
	_ = s.RevokeAccess(ctx, "owner-1", "doc-1") // no-op, no event

	events, last, err := s.ListEvents(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	kinds := []string{EventRecordRegister, EventAccessGrant, EventAccessRevoke}
	if len(events) != len(kinds) {
		t.Fatalf("expected %d events, got %d", len(kinds), len(events))
	}
	for i, kind := range kinds {
		if events[i].Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, events[i].Kind)
		}
		if events[i].Sequence != uint64(i+1) {
			t.Fatalf("event %d: expected sequence %d, got %d", i, i+1, events[i].Sequence)
		}
	}
	page, _, _ := s.ListEvents(ctx, 10, last-1)
	if len(page) != 1 || page[0].Kind != EventAccessRevoke {
		t.Fatalf("paging after %d returned %v", last-1, page)
	}
}

func TestConcurrentGrantRevoke(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	_, _ = s.RegisterRecord(ctx, "owner-1", "cidA")

	exp := time.Now().Add(time.Hour)
	var wg sync.WaitGroup
	N := 50
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.GrantAccess(ctx, "owner-1", "doc-1", exp)
			} else {
				_ = s.RevokeAccess(ctx, "owner-1", "doc-1")
			}
			_, _ = s.ListGrantsHeld(ctx, "doc-1")
		}(i)
	}
	wg.Wait()

	views, err := s.ListGrantsIssued(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Fatalf("index must hold exactly one entry for the pair, got %d", len(views))
	}
}
