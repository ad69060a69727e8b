package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"streamvault/models"
	"streamvault/services/resume"
)

// ResumeHandler exposes playback resume positions.
type ResumeHandler struct {
	resume *resume.Service
}

// NewResumeHandler creates a new resume handler.
func NewResumeHandler(svc *resume.Service) *ResumeHandler {
	return &ResumeHandler{resume: svc}
}

func resumeVars(r *http.Request) (int, models.StreamKind, bool) {
	vars := mux.Vars(r)
	kind := models.StreamKind(vars["kind"])
	id, err := strconv.Atoi(vars["id"])
	if err != nil || !kind.Valid() {
		return 0, "", false
	}
	return id, kind, true
}

// SetResumeRequest represents the position update body.
type SetResumeRequest struct {
	PositionSecs float64 `json:"positionSecs"`
	DurationSecs float64 `json:"durationSecs"`
}

// Set stores the playback position for a stream.
func (h *ResumeHandler) Set(w http.ResponseWriter, r *http.Request) {
	id, kind, ok := resumeVars(r)
	if !ok {
		http.Error(w, `{"error": "invalid stream reference"}`, http.StatusBadRequest)
		return
	}

	var req SetResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.resume.Set(id, kind, req.PositionSecs, req.DurationSecs); err != nil {
		http.Error(w, `{"error": "failed to store position"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Get returns the stored position, or 404 when none exists.
func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, kind, ok := resumeVars(r)
	if !ok {
		http.Error(w, `{"error": "invalid stream reference"}`, http.StatusBadRequest)
		return
	}

	pos, err := h.resume.Get(id, kind)
	if err != nil {
		http.Error(w, `{"error": "failed to load position"}`, http.StatusInternalServerError)
		return
	}
	if pos == nil {
		http.Error(w, `{"error": "no stored position"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pos)
}

// Clear removes the stored position.
func (h *ResumeHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, kind, ok := resumeVars(r)
	if !ok {
		http.Error(w, `{"error": "invalid stream reference"}`, http.StatusBadRequest)
		return
	}

	if err := h.resume.Clear(id, kind); err != nil {
		http.Error(w, `{"error": "failed to clear position"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
