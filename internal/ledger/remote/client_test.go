package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"medledger.org/internal/auth"
	"medledger.org/internal/directory"
	"medledger.org/internal/httpapi"
	"medledger.org/internal/ledger"
	"medledger.org/internal/stream"
)

func newServer(t *testing.T) string {
	t.Helper()
	t.Setenv("MEDLEDGER_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	api := httpapi.New(httpapi.ReadyProbe{}, "test", ledger.NewInMemory(), directory.NewService(directory.NewMemoryStore()), stream.New())
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClientRoundTrip(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()

	patient := New(base)
	if err := patient.RegisterPatient(ctx, "Alice", 34, "0xAA01"); err != nil {
		t.Fatalf("register patient: %v", err)
	}
	if err := patient.Login(ctx, "0xAA01"); err != nil {
		t.Fatalf("login patient: %v", err)
	}

	doctor := New(base)
	if err := doctor.RegisterDoctor(ctx, "Dr. Bob", "Cardiology", 8, "General", "0xBB02"); err != nil {
		t.Fatalf("register doctor: %v", err)
	}
	if err := doctor.Login(ctx, "0xBB02"); err != nil {
		t.Fatalf("login doctor: %v", err)
	}

	if _, err := patient.RegisterRecord(ctx, "cidA"); err != nil {
		t.Fatalf("register record: %v", err)
	}
	if _, err := doctor.GetRecord(ctx, "0xaa01"); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before grant, got %v", err)
	}

	if _, err := patient.GrantAccess(ctx, "0xBB02", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("grant: %v", err)
	}
	rec, err := doctor.GetRecord(ctx, "0xaa01")
	if err != nil || rec.Pointer != "cidA" {
		t.Fatalf("read after grant: %q, %v", rec.Pointer, err)
	}

	holdings, err := doctor.ListGrantsHeld(ctx)
	if err != nil || len(holdings) != 1 || holdings[0].Owner != "0xaa01" {
		t.Fatalf("holdings: %+v, %v", holdings, err)
	}

	if err := patient.RevokeAccess(ctx, "0xBB02"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := doctor.GetRecord(ctx, "0xaa01"); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revoke, got %v", err)
	}

	views, err := patient.ListGrantsIssued(ctx)
	if err != nil || len(views) != 1 || views[0].Granted {
		t.Fatalf("grant views: %+v, %v", views, err)
	}

	events, _, err := patient.ListEvents(ctx, 10, 0)
	if err != nil || len(events) != 3 {
		t.Fatalf("events: %+v, %v", events, err)
	}
}

func TestLoginUnknownWallet(t *testing.T) {
	base := newServer(t)
	c := New(base)
	if err := c.Login(context.Background(), "0xdead"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
