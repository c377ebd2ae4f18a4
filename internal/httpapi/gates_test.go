package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rh360.org/internal/authz"
)

func TestAuthGateRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/users/me", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("rejection body must be JSON: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message, got %v", body)
	}
}

func TestAuthGateRejectsMalformedHeader(t *testing.T) {
	env := newTestEnv(t)

	for _, header := range []string{"Basic abc", "Bearer", "Bearer ", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

// A garbage token must yield 401, never 500: parse failures are a trust
// decision, not a server fault.
func TestAuthGateRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/users/me", "!!not-a-jwt!!", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rr.Code)
	}
}

func TestAuthGateAllowsExcludedPaths(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz", "/api-docs", "/v3/api-docs"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		if rr.Code == http.StatusUnauthorized {
			t.Fatalf("%s should not require a token", path)
		}
	}
}

func TestAuthzGateUnconfiguredRoute(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u-1", "ana@rh360.org", "s3cret", "user")
	token := env.login(t, "ana@rh360.org", "s3cret")

	rr := env.do(t, http.MethodGet, "/api/brand-new-feature", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unconfigured route: expected 403, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "permission not configured for this route" {
		t.Fatalf("unexpected error: %q", body["error"])
	}
}

func TestAuthzGateDeniesMissingGrant(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u-1", "ana@rh360.org", "s3cret", "user")
	token := env.login(t, "ana@rh360.org", "s3cret")

	rr := env.do(t, http.MethodGet, "/api/users/me", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without grant, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "access denied: permission '" + authz.PermViewProfile + "' required"
	if body["error"] != want {
		t.Fatalf("error = %q, want %q", body["error"], want)
	}
}

func TestAuthzGateAdminBypassesGrants(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "adm-1", "boss@rh360.org", "s3cret", "admin")
	token := env.login(t, "boss@rh360.org", "s3cret")

	rr := env.do(t, http.MethodGet, "/api/users/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin should bypass grants, got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/users/me", nil)
	req.Header.Set("Origin", "https://app.rh360.org")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.rh360.org" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected Allow-Credentials true")
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected Allow-Methods header")
	}
}

// Browser clients must be able to read gate rejections, so CORS headers ride
// along on 401 responses too.
func TestRejectionCarriesCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Origin", "https://app.rh360.org")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.rh360.org" {
		t.Fatalf("rejection lost CORS headers, Allow-Origin = %q", got)
	}
}

func TestCORSOriginAllowList(t *testing.T) {
	env := newTestEnv(t) // default config echoes any origin
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://anywhere.example" {
		t.Fatal("default config should echo any origin")
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u-1", "ana@rh360.org", "s3cret", "user")

	var limited bool
	for i := 0; i < 30; i++ {
		rr := env.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "ana@rh360.org", "password": "wrong"})
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			if rr.Header().Get("Retry-After") == "" {
				t.Fatal("429 must carry Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Fatal("expected the login rate limit to trip")
	}
}
