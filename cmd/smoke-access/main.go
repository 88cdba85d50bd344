// Command smoke-access runs an end-to-end access lifecycle against a live
// medledger API: register a patient and a doctor, publish a record, grant
// access, read as the doctor, revoke, and verify the read is denied.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"medledger.org/internal/ledger"
	"medledger.org/internal/ledger/remote"
)

func main() {
	baseURL := os.Getenv("MEDLEDGER_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	suffix := rand.Int63()
	patientWallet := fmt.Sprintf("0xpatient%d", suffix)
	doctorWallet := fmt.Sprintf("0xdoctor%d", suffix)

	patient := remote.New(baseURL)
	doctor := remote.New(baseURL)

	if err := patient.RegisterPatient(ctx, "Smoke Patient", 42, patientWallet); err != nil {
		log.Fatalf("register patient: %v", err)
	}
	if err := doctor.RegisterDoctor(ctx, "Smoke Doctor", "cardiology", 7, "General Hospital", doctorWallet); err != nil {
		log.Fatalf("register doctor: %v", err)
	}
	if err := patient.Login(ctx, patientWallet); err != nil {
		log.Fatalf("login patient: %v", err)
	}
	if err := doctor.Login(ctx, doctorWallet); err != nil {
		log.Fatalf("login doctor: %v", err)
	}

	pointer := fmt.Sprintf("bafy-smoke-%d", suffix)
	if _, err := patient.RegisterRecord(ctx, pointer); err != nil {
		log.Fatalf("register record: %v", err)
	}

	// No grant yet: the doctor must be denied.
	if _, err := doctor.GetRecord(ctx, patientWallet); !errors.Is(err, ledger.ErrUnauthorized) {
		log.Fatalf("expected unauthorized before grant, got %v", err)
	}

	if _, err := patient.GrantAccess(ctx, doctorWallet, time.Now().Add(time.Hour)); err != nil {
		log.Fatalf("grant access: %v", err)
	}

	rec, err := doctor.GetRecord(ctx, patientWallet)
	if err != nil {
		log.Fatalf("read as doctor: %v", err)
	}
	if rec.Pointer != pointer {
		log.Fatalf("pointer mismatch: got %q want %q", rec.Pointer, pointer)
	}

	holdings, err := doctor.ListGrantsHeld(ctx)
	if err != nil {
		log.Fatalf("list holdings: %v", err)
	}
	found := false
	for _, h := range holdings {
		if h.Owner == patientWallet {
			found = true
		}
	}
	if !found {
		log.Fatalf("holdings missing owner %s", patientWallet)
	}

	if err := patient.RevokeAccess(ctx, doctorWallet); err != nil {
		log.Fatalf("revoke access: %v", err)
	}
	if _, err := doctor.GetRecord(ctx, patientWallet); !errors.Is(err, ledger.ErrUnauthorized) {
		log.Fatalf("expected unauthorized after revoke, got %v", err)
	}

	// The owner keeps reading their own record regardless of grants.
	own, err := patient.GetOwnRecord(ctx)
	if err != nil || own.Pointer != pointer {
		log.Fatalf("own record after revoke: %v", err)
	}

	fmt.Printf("✅ access smoke test passed: owner=%s grantee=%s\n", patientWallet, doctorWallet)
}
