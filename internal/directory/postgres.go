package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists profiles in the patients/doctors tables created by
// ops/migrations/sql. Address uniqueness across both tables is enforced here
// with an explicit lookup inside a transaction; the schema additionally has
// per-table unique indexes on address.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres opens a pooled connection using the pgx stdlib driver.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing handle (used by tests with sqlmock).
func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) CreatePatient(ctx context.Context, p *Patient) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := addressTaken(ctx, tx, p.Address)
	if err != nil {
		return err
	}
	if taken {
		return ErrAlreadyExists
	}
	if _, err := tx.ExecContext(ctx, `
		insert into patients(id, name, age, address, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6)
	`, p.ID, p.Name, p.Age, p.Address, p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) CreateDoctor(ctx context.Context, d *Doctor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := addressTaken(ctx, tx, d.Address)
	if err != nil {
		return err
	}
	if taken {
		return ErrAlreadyExists
	}
	if _, err := tx.ExecContext(ctx, `
		insert into doctors(id, name, specialization, experience, hospital, address, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, d.ID, d.Name, d.Specialization, d.Experience, d.Hospital, d.Address, d.CreatedAt, d.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func addressTaken(ctx context.Context, tx *sql.Tx, address string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		select exists(select 1 from patients where address=$1)
		    or exists(select 1 from doctors where address=$1)
	`, address).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, address string) (Profile, error) {
	var p Patient
	err := s.db.QueryRowContext(ctx, `
		select id, name, age, address, created_at, updated_at
		from patients where address=$1
	`, address).Scan(&p.ID, &p.Name, &p.Age, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err == nil {
		return Profile{Kind: KindPatient, Patient: &p}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Profile{}, err
	}

	var d Doctor
	err = s.db.QueryRowContext(ctx, `
		select id, name, specialization, experience, hospital, address, created_at, updated_at
		from doctors where address=$1
	`, address).Scan(&d.ID, &d.Name, &d.Specialization, &d.Experience, &d.Hospital, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	if err == nil {
		return Profile{Kind: KindDoctor, Doctor: &d}, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return Profile{}, err
}

func (s *PostgresStore) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, age, address, created_at, updated_at
		from patients order by created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, specialization, experience, hospital, address, created_at, updated_at
		from doctors order by created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.Experience, &d.Hospital, &d.Address, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
