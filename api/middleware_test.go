package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"streamvault/models"
	"streamvault/services/credentials"
)

func setupCreds(t *testing.T) *credentials.Service {
	t.Helper()
	svc, err := credentials.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("creating credential store: %v", err)
	}
	return svc
}

func TestRequireSession_RejectsWithoutLogin(t *testing.T) {
	creds := setupCreds(t)
	handler := RequireSession(creds)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSession_PassesWithSession(t *testing.T) {
	creds := setupCreds(t)
	if err := creds.Save(models.Session{
		Host:     "http://host.example.com",
		Username: "u",
		Password: "p",
	}); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	handler := RequireSession(creds)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireSession_AllowsPreflight(t *testing.T) {
	creds := setupCreds(t)
	handler := RequireSession(creds)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/catalog", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected preflight to pass, got %d", rec.Code)
	}
}
