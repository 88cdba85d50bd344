package httpapi

import (
	"errors"
	"net/http"
	"time"

	"medledger.org/internal/audit"
	"medledger.org/internal/auth"
	"medledger.org/internal/directory"
)

type loginRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Profile   directory.Profile `json:"profile"`
}

type registerPatientRequest struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Address string `json:"address"`
}

type registerDoctorRequest struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Experience     int    `json:"experience"`
	Hospital       string `json:"hospital"`
	Address        string `json:"address"`
}

const tokenTTL = 15 * time.Minute

// handleLogin resolves a wallet address against the directory and issues a
// token for it. Proof of wallet ownership happens upstream (the signing
// wallet); the API trusts the surrounding system per the security model.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.directory.LookupByWallet(r.Context(), req.WalletAddress)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(profile.Address(), string(profile.Kind), tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	expiresAt := time.Now().UTC().Add(tokenTTL)

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"wallet":     profile.Address(),
		"kind":       profile.Kind,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   profile,
	})
}

func (a *API) handlePatients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registerPatient(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) registerPatient(w http.ResponseWriter, r *http.Request) {
	var req registerPatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.directory.RegisterPatient(r.Context(), directory.RegisterPatientInput{
		Name:    req.Name,
		Age:     req.Age,
		Address: req.Address,
	})
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.patient.register", map[string]any{
		"wallet": p.Address,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleDoctors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registerDoctor(w, r)
	case http.MethodGet:
		a.listDoctors(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) registerDoctor(w http.ResponseWriter, r *http.Request) {
	var req registerDoctorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.directory.RegisterDoctor(r.Context(), directory.RegisterDoctorInput{
		Name:           req.Name,
		Specialization: req.Specialization,
		Experience:     req.Experience,
		Hospital:       req.Hospital,
		Address:        req.Address,
	})
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.doctor.register", map[string]any{
		"wallet": d.Address,
	})
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) listDoctors(w http.ResponseWriter, r *http.Request) {
	docs, err := a.directory.ListDoctors(r.Context())
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": docs})
}

func handleDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
