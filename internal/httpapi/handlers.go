package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"medledger.org/internal/directory"
	"medledger.org/internal/ledger"
	"medledger.org/internal/obs"
	"medledger.org/internal/stream"
)

// ReadyProbe checks external dependencies before reporting ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the access ledger and the profile directory.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	ledger    ledger.Service
	directory *directory.Service
	stream    *stream.Stream

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, svc ledger.Service, dir *directory.Service, st *stream.Stream) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		ledger:     svc,
		directory:  dir,
		stream:     st,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// auth + directory
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/directory/patients", a.handlePatients)
	a.mux.HandleFunc("/v1/directory/doctors", a.handleDoctors)

	// ledger
	a.mux.HandleFunc("/v1/records", a.handleRecords)
	a.mux.HandleFunc("/v1/records/me", a.handleOwnRecord)
	a.mux.HandleFunc("/v1/records/", a.handleRecordResource)
	a.mux.HandleFunc("/v1/access/grants", a.handleGrants)
	a.mux.HandleFunc("/v1/access/revocations", a.handleRevocations)
	a.mux.HandleFunc("/v1/access/holdings", a.handleHoldings)
	a.mux.HandleFunc("/v1/ledger/events", a.handleEvents)

	// live access-event stream
	a.mux.HandleFunc("/v1/stream", a.Stream)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = obs.Instrument(h)
	h = a.withAuth(h)
	h = WithRequestID(h)
	h = Logging(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "medledger-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "medledger-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
