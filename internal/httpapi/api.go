// Package httpapi is the HTTP layer: middleware pipeline (CORS, metrics,
// authentication gate, authorization gate) and the route handlers. Every
// request flows CORS → instrumentation → authn → authz → handler; gate
// failures short-circuit with a JSON error body before any handler runs.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"rh360.org/internal/attendance"
	"rh360.org/internal/authz"
	"rh360.org/internal/obs"
	"rh360.org/internal/permission"
	"rh360.org/internal/session"
	"rh360.org/internal/tasks"
	"rh360.org/internal/users"
)

// ReadyProbe reports whether the backing store is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators. All dependencies are explicit; the
// API holds no package-level state.
type Config struct {
	Issuer     *session.Issuer
	Authorizer *authz.Authorizer
	Users      users.Store
	Grants     permission.Store
	Punches    attendance.Store
	Tasks      tasks.Store
	ReadyProbe ReadyProbe
	Version    string

	// CORSOrigins is the allow-list of origins; a single "*" echoes any
	// origin back (credentials stay enabled either way).
	CORSOrigins []string

	// Login rate limit, requests per second per client IP.
	LoginRatePerSecond int
	LoginBurst         int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	issuer     *session.Issuer
	authorizer *authz.Authorizer
	users      users.Store
	grants     permission.Store
	punches    attendance.Store
	tasks      tasks.Store
	readyProbe ReadyProbe
	version    string
	corsAll    bool
	corsAllow  map[string]struct{}
}

// New builds the API and registers routes.
func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		issuer:     cfg.Issuer,
		authorizer: cfg.Authorizer,
		users:      cfg.Users,
		grants:     cfg.Grants,
		punches:    cfg.Punches,
		tasks:      cfg.Tasks,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		corsAllow:  make(map[string]struct{}),
	}
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			a.corsAll = true
			continue
		}
		a.corsAllow[origin] = struct{}{}
	}
	if len(cfg.CORSOrigins) == 0 {
		a.corsAll = true
	}

	perSecond := cfg.LoginRatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 10
	}

	// health / docs / metrics (authentication allow-list)
	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReady)
	a.mux.HandleFunc("/api-docs", a.handleOpenAPISpec)
	a.mux.HandleFunc("/v3/api-docs", a.handleOpenAPISpec)
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.Handle("/api/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), burst, perSecond))
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/api/auth/validate", a.handleValidate)

	// users
	a.mux.HandleFunc("/api/users/me", a.handleCurrentUser)

	// permissions
	a.mux.HandleFunc("/api/permissions", a.handlePermissions)
	a.mux.HandleFunc("/api/permissions/", a.handlePermissionScoped)
	a.mux.HandleFunc("/api/permission-templates", a.handlePermissionTemplates)

	// tasks
	a.mux.HandleFunc("/api/tasks", a.handleTasks)

	// attendance
	a.mux.HandleFunc("/api/timeclock", a.handlePunch)
	a.mux.HandleFunc("/api/timeclock/me", a.handleMyPunches)
	a.mux.HandleFunc("/api/timeclock/qr-code", a.handleKioskToken)
	a.mux.HandleFunc("/api/timeclock/mobile", a.handleKioskPunch)

	a.mux.HandleFunc("/api/hello", a.handleHello)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler assembles the middleware pipeline. CORS is outermost so rejected
// requests still carry CORS headers and stay readable from a browser.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withPermissions(h)
	h = a.withAuth(h)
	h = Logging(h)
	h = obs.Instrument(h)
	h = a.withCORS(h)
	return h
}
