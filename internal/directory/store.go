package directory

import "context"

// Store describes persistence operations required by the directory service.
type Store interface {
	CreatePatient(ctx context.Context, p *Patient) error
	CreateDoctor(ctx context.Context, d *Doctor) error
	FindByAddress(ctx context.Context, address string) (Profile, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
}
