package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rh360.org/internal/attendance"
	"rh360.org/internal/authz"
	"rh360.org/internal/httpapi"
	"rh360.org/internal/obs"
	"rh360.org/internal/permission"
	"rh360.org/internal/session"
	"rh360.org/internal/tasks"
	"rh360.org/internal/users"
)

var version = "1.0.0"

func main() {
	obs.Init()

	secret := os.Getenv("RH360_JWT_SECRET")
	if secret == "" {
		log.Fatal("RH360_JWT_SECRET is required")
	}

	// Connect to Postgres when a DSN is configured; otherwise fall back to the
	// in-memory stores for local development.
	var (
		db      *sql.DB
		ledger  session.Ledger
		grants  permission.Store
		accts   users.Store
		punches attendance.Store
		work    tasks.Store
	)
	if dsn := os.Getenv("RH360_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		ledger = session.NewPGLedger(db)
		grants = permission.NewPGStore(db)
		accts = users.NewPGStore(db)
		punches = attendance.NewPGStore(db)
		work = tasks.NewPGStore(db)
	} else {
		log.Println("RH360_PG_DSN not set, using in-memory stores")
		ledger = session.NewMemoryLedger()
		grants = permission.NewMemoryStore()
		accts = users.NewMemoryStore()
		punches = attendance.NewMemoryStore()
		work = tasks.NewMemoryStore()
	}

	issuer, err := session.NewIssuer(ledger, session.Config{
		Secret:     []byte(secret),
		SessionTTL: envDuration("RH360_JWT_TTL"),
		KioskTTL:   envDuration("RH360_KIOSK_TTL"),
	})
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}

	authorizer, err := authz.NewAuthorizer(nil, grants)
	if err != nil {
		log.Fatalf("authorizer: %v", err)
	}

	sweeper, err := session.StartSweeper(ledger, os.Getenv("RH360_SWEEP_SCHEDULE"))
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Issuer:      issuer,
		Authorizer:  authorizer,
		Users:       accts,
		Grants:      grants,
		Punches:     punches,
		Tasks:       work,
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		Version:     version,
		CORSOrigins: splitCSV(os.Getenv("RH360_CORS_ORIGINS")),
	})

	addr := os.Getenv("RH360_ADDR")
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

	log.Printf("Starting rh360-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	sweeper.Stop()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func envDuration(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
