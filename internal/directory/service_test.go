package directory

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, RegisterPatientInput{
		Name:    "Alice",
		Age:     34,
		Address: "0xAbCd01",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Address != "0xabcd01" {
		t.Fatalf("address must be normalized, got %q", p.Address)
	}

	prof, err := svc.LookupByWallet(ctx, "0xABCD01")
	if err != nil {
		t.Fatal(err)
	}
	if prof.Kind != KindPatient || prof.Patient == nil || prof.Patient.Name != "Alice" {
		t.Fatalf("unexpected profile: %+v", prof)
	}
}

func TestWalletAddressUniqueAcrossKinds(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.RegisterPatient(ctx, RegisterPatientInput{Name: "Alice", Age: 34, Address: "0xaa"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.RegisterDoctor(ctx, RegisterDoctorInput{
		Name:           "Dr. Bob",
		Specialization: "Cardiology",
		Experience:     10,
		Hospital:       "General",
		Address:        "0xAA",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.RegisterPatient(ctx, RegisterPatientInput{Name: "", Age: 34, Address: "0xaa"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty name, got %v", err)
	}
	if _, err := svc.RegisterPatient(ctx, RegisterPatientInput{Name: "Alice", Age: 0, Address: "0xaa"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for age 0, got %v", err)
	}
	if _, err := svc.RegisterDoctor(ctx, RegisterDoctorInput{Name: "Dr. Bob", Address: "0xbb"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing fields, got %v", err)
	}
}

func TestLookupUnknownWallet(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, err := svc.LookupByWallet(context.Background(), "0xdead"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDoctors(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	for _, in := range []RegisterDoctorInput{
		{Name: "Dr. Bob", Specialization: "Cardiology", Experience: 10, Hospital: "General", Address: "0x01"},
		{Name: "Dr. Eve", Specialization: "Neurology", Experience: 4, Hospital: "Mercy", Address: "0x02"},
	} {
		if _, err := svc.RegisterDoctor(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := svc.ListDoctors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Name != "Dr. Bob" || docs[1].Name != "Dr. Eve" {
		t.Fatalf("unexpected listing: %+v", docs)
	}
}
