package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"streamvault/config"
	"streamvault/services/credentials"
	"streamvault/services/prober"
)

// backendServer fakes one candidate backend that accepts exactly one
// credential pair.
func backendServer(t *testing.T, username, password string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("username") == username && r.URL.Query().Get("password") == password {
			w.Write([]byte(`{"user_info":{"auth":1}}`))
			return
		}
		w.Write([]byte(`{"user_info":{"auth":0}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupAuthHandler(t *testing.T) (*AuthHandler, *credentials.Service, *config.Manager) {
	t.Helper()
	creds, err := credentials.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("creating credential store: %v", err)
	}
	cfg, err := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("creating config: %v", err)
	}
	return NewAuthHandler(prober.NewProber(nil), creds, cfg), creds, cfg
}

func TestLogin_CommitsToAcceptingServer(t *testing.T) {
	handler, creds, _ := setupAuthHandler(t)
	good := backendServer(t, "alice", "secret")
	bad := backendServer(t, "other", "other")

	body := `{"hosts":["` + bad.URL + `","` + good.URL + `"],"username":"alice","password":"secret"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Host != good.URL {
		t.Errorf("committed host = %q, want %q", resp.Host, good.URL)
	}

	session, err := creds.Load()
	if err != nil {
		t.Fatalf("expected persisted session: %v", err)
	}
	if session.Host != good.URL || session.Username != "alice" {
		t.Errorf("persisted session = %+v", session)
	}
}

func TestLogin_AllServersRejectIsUnauthorized(t *testing.T) {
	handler, creds, _ := setupAuthHandler(t)
	srv := backendServer(t, "someone", "else")

	body := `{"hosts":["` + srv.URL + `"],"username":"alice","password":"wrong"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if _, err := creds.Load(); err == nil {
		t.Error("failed login must not persist a session")
	}
}

func TestLogin_ValidatesRequest(t *testing.T) {
	handler, _, _ := setupAuthHandler(t)

	tests := []string{
		`not json`,
		`{"hosts":["http://x"],"username":"","password":"p"}`,
		`{"hosts":["http://x"],"username":"u","password":""}`,
		`{"username":"u","password":"p"}`, // no hosts configured anywhere
	}
	for _, body := range tests {
		rec := httptest.NewRecorder()
		handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestLogin_UsesConfiguredHosts(t *testing.T) {
	handler, _, cfg := setupAuthHandler(t)
	good := backendServer(t, "alice", "secret")
	if err := cfg.SetCandidateHosts([]string{good.URL}); err != nil {
		t.Fatalf("seeding hosts: %v", err)
	}

	body := `{"username":"alice","password":"secret"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLogin_PersistsSuppliedHosts(t *testing.T) {
	handler, _, cfg := setupAuthHandler(t)
	good := backendServer(t, "alice", "secret")

	body := `{"hosts":["` + good.URL + `"],"username":"alice","password":"secret"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	hosts := cfg.Get().CandidateHosts
	if len(hosts) != 1 || hosts[0] != good.URL {
		t.Errorf("persisted hosts = %v", hosts)
	}
}

func TestLogoutAndStatus(t *testing.T) {
	handler, creds, _ := setupAuthHandler(t)
	good := backendServer(t, "alice", "secret")

	body := `{"hosts":["` + good.URL + `"],"username":"alice","password":"secret"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Status(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
	var status map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["loggedIn"] != true || status["username"] != "alice" {
		t.Errorf("status = %v", status)
	}
	if _, exposed := status["password"]; exposed {
		t.Error("status must not expose the password")
	}

	rec = httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if _, err := creds.Load(); err == nil {
		t.Error("logout must clear the stored session")
	}

	rec = httptest.NewRecorder()
	handler.Status(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
	status = nil
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["loggedIn"] != false {
		t.Errorf("status after logout = %v", status)
	}
}
