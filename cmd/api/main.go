package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medledger.org/internal/directory"
	"medledger.org/internal/httpapi"
	"medledger.org/internal/ledger"
	"medledger.org/internal/obs"
	"medledger.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Directory profiles live in Postgres when a DSN is configured; the
	// in-memory store keeps local development dependency-free.
	var store directory.Store
	var rp httpapi.ReadyProbe
	if dsn := os.Getenv("MEDLEDGER_PG_DSN"); dsn != "" {
		pg, err := directory.OpenPostgres(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pg.Close()
		store = pg
		rp.DB = pg.DB()
	} else {
		store = directory.NewMemoryStore()
	}

	api := httpapi.New(rp, version,
		ledger.NewInMemory(),
		directory.NewService(store),
		stream.New())

	addr := os.Getenv("MEDLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting medledger-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
