package directory

import (
	"errors"
	"time"
)

// Kind distinguishes the two registration tables. A wallet address belongs to
// at most one of them.
type Kind string

const (
	KindPatient Kind = "patient"
	KindDoctor  Kind = "doctor"
)

// Patient is profile metadata for a record owner. Address is the wallet
// address used as the principal identifier throughout the ledger.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Doctor is profile metadata for a grantee.
type Doctor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Experience     int       `json:"experience"`
	Hospital       string    `json:"hospital"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile is the union returned by wallet lookup.
type Profile struct {
	Kind    Kind     `json:"kind"`
	Patient *Patient `json:"patient,omitempty"`
	Doctor  *Doctor  `json:"doctor,omitempty"`
}

// Address returns the wallet address regardless of kind.
func (p Profile) Address() string {
	switch {
	case p.Patient != nil:
		return p.Patient.Address
	case p.Doctor != nil:
		return p.Doctor.Address
	}
	return ""
}

var (
	ErrNotFound      = errors.New("directory: not found")
	ErrAlreadyExists = errors.New("directory: wallet address already registered")
	ErrInvalidInput  = errors.New("directory: invalid input")
)
