package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"streamvault/config"
	"streamvault/models"
	"streamvault/services/credentials"
	"streamvault/services/prober"
)

// AuthHandler handles login and logout against the backend servers.
type AuthHandler struct {
	prober *prober.Prober
	creds  *credentials.Service
	config *config.Manager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(p *prober.Prober, creds *credentials.Service, cfg *config.Manager) *AuthHandler {
	return &AuthHandler{
		prober: p,
		creds:  creds,
		config: cfg,
	}
}

// LoginRequest represents the login request body. Hosts overrides the
// configured candidate list when provided.
type LoginRequest struct {
	Hosts    []string `json:"hosts,omitempty"`
	Username string   `json:"username"`
	Password string   `json:"password"`
}

// LoginResponse represents the login response.
type LoginResponse struct {
	Host     string `json:"host"`
	Username string `json:"username"`
}

// Login races the candidate servers and persists the first that accepts the
// credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		http.Error(w, `{"error": "username and password are required"}`, http.StatusBadRequest)
		return
	}

	hosts := req.Hosts
	if len(hosts) == 0 {
		hosts = h.config.Get().CandidateHosts
	}
	if len(hosts) == 0 {
		http.Error(w, `{"error": "no backend servers configured"}`, http.StatusBadRequest)
		return
	}

	host, ok := h.prober.ProbeAll(r.Context(), hosts, req.Username, req.Password, prober.DefaultTimeout)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "no server accepted the credentials"})
		return
	}

	session := models.Session{Host: host, Username: req.Username, Password: req.Password}
	if err := h.creds.Save(session); err != nil {
		http.Error(w, `{"error": "failed to persist session"}`, http.StatusInternalServerError)
		return
	}
	if len(req.Hosts) > 0 {
		// Remember an explicitly supplied host list for the next login.
		if err := h.config.SetCandidateHosts(req.Hosts); err != nil {
			http.Error(w, `{"error": "failed to persist host list"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Host: host, Username: req.Username})
}

// Logout discards the stored session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.creds.Clear(); err != nil {
		http.Error(w, `{"error": "failed to clear session"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "logged out"})
}

// Status reports whether a session is stored, without exposing the password.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	session, err := h.creds.Load()
	if err != nil {
		json.NewEncoder(w).Encode(map[string]any{"loggedIn": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"loggedIn": true,
		"host":     session.Host,
		"username": session.Username,
	})
}
