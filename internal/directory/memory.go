package directory

import (
	"context"
	"sync"
)

// MemoryStore keeps profiles in process. Used by tests and when no Postgres
// DSN is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	patients []Patient
	doctors  []Doctor
	byAddr   map[string]Profile
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byAddr: make(map[string]Profile)}
}

func (m *MemoryStore) CreatePatient(ctx context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byAddr[p.Address]; ok {
		return ErrAlreadyExists
	}
	cp := *p
	m.patients = append(m.patients, cp)
	m.byAddr[p.Address] = Profile{Kind: KindPatient, Patient: &cp}
	return nil
}

func (m *MemoryStore) CreateDoctor(ctx context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byAddr[d.Address]; ok {
		return ErrAlreadyExists
	}
	cp := *d
	m.doctors = append(m.doctors, cp)
	m.byAddr[d.Address] = Profile{Kind: KindDoctor, Doctor: &cp}
	return nil
}

func (m *MemoryStore) FindByAddress(ctx context.Context, address string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byAddr[address]
	if !ok {
		return Profile{}, ErrNotFound
	}
	// Return copies so callers cannot mutate stored profiles.
	out := Profile{Kind: p.Kind}
	if p.Patient != nil {
		cp := *p.Patient
		out.Patient = &cp
	}
	if p.Doctor != nil {
		cp := *p.Doctor
		out.Doctor = &cp
	}
	return out, nil
}

func (m *MemoryStore) ListPatients(ctx context.Context) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Patient, len(m.patients))
	copy(out, m.patients)
	return out, nil
}

func (m *MemoryStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Doctor, len(m.doctors))
	copy(out, m.doctors)
	return out, nil
}
