package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medledger.org/internal/audit"
	"medledger.org/internal/auth"
	"medledger.org/internal/directory"
	"medledger.org/internal/ledger"
	"medledger.org/internal/obs"
	"medledger.org/internal/stream"
)

type registerRecordRequest struct {
	Pointer string `json:"pointer"`
}

type grantAccessRequest struct {
	Grantee   string    `json:"grantee"`
	ExpiresAt time.Time `json:"expires_at"`
}

type revokeAccessRequest struct {
	Grantee string `json:"grantee"`
}

type listEventsResponse struct {
	Items     []ledger.Event `json:"items"`
	NextAfter uint64         `json:"next_after"`
	AsOf      time.Time      `json:"as_of"`
}

func (a *API) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registerRecord(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleOwnRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	rec, err := a.ledger.GetOwnRecord(r.Context(), caller)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleRecordResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	owner := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if owner == "" || strings.Contains(owner, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	rec, err := a.ledger.GetRecord(r.Context(), caller, directory.NormalizeAddress(owner))
	switch {
	case err == nil:
		obs.ObserveAccessDecision("allow")
	case errors.Is(err, ledger.ErrUnauthorized):
		obs.ObserveAccessDecision("deny")
	case errors.Is(err, ledger.ErrNotFound):
		obs.ObserveAccessDecision("not_found")
	}
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) registerRecord(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req registerRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pointer := strings.TrimSpace(req.Pointer)
	if pointer == "" {
		writeError(w, r, http.StatusBadRequest, "pointer is required")
		return
	}
	if len(pointer) > 256 {
		writeError(w, r, http.StatusBadRequest, "pointer too long")
		return
	}

	rec, err := a.ledger.RegisterRecord(r.Context(), caller, pointer)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}

	a.publish(stream.AccessEvent{
		Kind:      ledger.EventRecordRegister,
		Owner:     caller,
		Timestamp: time.Now().UTC(),
	})
	_ = audit.LogEvent(r.Context(), "ledger.record.register", map[string]any{
		"owner": caller,
	})
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) handleGrants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.grantAccess(w, r)
	case http.MethodGet:
		a.listGrantsIssued(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) grantAccess(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req grantAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grantee := directory.NormalizeAddress(req.Grantee)
	if grantee == "" {
		writeError(w, r, http.StatusBadRequest, "grantee is required")
		return
	}
	if req.ExpiresAt.IsZero() {
		writeError(w, r, http.StatusBadRequest, "expires_at is required")
		return
	}

	g, err := a.ledger.GrantAccess(r.Context(), caller, grantee, req.ExpiresAt)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}

	a.publish(stream.AccessEvent{
		Kind:      ledger.EventAccessGrant,
		Owner:     caller,
		Grantee:   grantee,
		ExpiresAt: g.ExpiresAt,
		Timestamp: time.Now().UTC(),
	})
	_ = audit.LogEvent(r.Context(), "ledger.access.grant", map[string]any{
		"owner":      caller,
		"grantee":    grantee,
		"expires_at": g.ExpiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusCreated, g)
}

func (a *API) handleRevocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req revokeAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grantee := directory.NormalizeAddress(req.Grantee)
	if grantee == "" {
		writeError(w, r, http.StatusBadRequest, "grantee is required")
		return
	}

	if err := a.ledger.RevokeAccess(r.Context(), caller, grantee); err != nil {
		handleLedgerError(w, r, err)
		return
	}

	a.publish(stream.AccessEvent{
		Kind:      ledger.EventAccessRevoke,
		Owner:     caller,
		Grantee:   grantee,
		Timestamp: time.Now().UTC(),
	})
	_ = audit.LogEvent(r.Context(), "ledger.access.revoke", map[string]any{
		"owner":   caller,
		"grantee": grantee,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "revoked"})
}

func (a *API) listGrantsIssued(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	views, err := a.ledger.ListGrantsIssued(r.Context(), caller)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (a *API) handleHoldings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	holdings, err := a.ledger.ListGrantsHeld(r.Context(), caller)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": holdings})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	afterParam := strings.TrimSpace(r.URL.Query().Get("after"))
	var after uint64
	if afterParam != "" {
		v, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}

	items, next, err := a.ledger.ListEvents(r.Context(), limit, after)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEventsResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}

func (a *API) publish(evt stream.AccessEvent) {
	if a.stream == nil {
		return
	}
	a.stream.Publish(evt)
}

// --- helpers ---

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrUnauthorized):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
