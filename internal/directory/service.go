package directory

import (
	"context"
	"strings"
	"time"

	"medledger.org/internal/ids"
)

// Service wraps a Store with validation and identifier normalization.
// Wallet addresses are lower-cased so lookups are case-insensitive, matching
// how hex wallet addresses are compared.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// NormalizeAddress canonicalizes a wallet address for storage and lookup.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

type RegisterPatientInput struct {
	Name    string
	Age     int
	Address string
}

func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (Patient, error) {
	name := strings.TrimSpace(in.Name)
	addr := NormalizeAddress(in.Address)
	if name == "" || addr == "" || in.Age <= 0 {
		return Patient{}, ErrInvalidInput
	}
	now := s.now().UTC()
	p := Patient{
		ID:        ids.New(),
		Name:      name,
		Age:       in.Age,
		Address:   addr,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePatient(ctx, &p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

type RegisterDoctorInput struct {
	Name           string
	Specialization string
	Experience     int
	Hospital       string
	Address        string
}

func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (Doctor, error) {
	name := strings.TrimSpace(in.Name)
	spec := strings.TrimSpace(in.Specialization)
	hospital := strings.TrimSpace(in.Hospital)
	addr := NormalizeAddress(in.Address)
	if name == "" || spec == "" || hospital == "" || addr == "" || in.Experience < 0 {
		return Doctor{}, ErrInvalidInput
	}
	now := s.now().UTC()
	d := Doctor{
		ID:             ids.New(),
		Name:           name,
		Specialization: spec,
		Experience:     in.Experience,
		Hospital:       hospital,
		Address:        addr,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateDoctor(ctx, &d); err != nil {
		return Doctor{}, err
	}
	return d, nil
}

// LookupByWallet resolves a wallet address to its registered profile.
func (s *Service) LookupByWallet(ctx context.Context, address string) (Profile, error) {
	addr := NormalizeAddress(address)
	if addr == "" {
		return Profile{}, ErrInvalidInput
	}
	return s.store.FindByAddress(ctx, addr)
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.store.ListPatients(ctx)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}
