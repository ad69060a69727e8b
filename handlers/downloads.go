package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"streamvault/models"
	"streamvault/services/credentials"
	"streamvault/services/downloads"
	"streamvault/services/transfer"
	"streamvault/services/xtream"
	"streamvault/utils"
)

// DownloadsHandler exposes the download ledger.
type DownloadsHandler struct {
	downloads *downloads.Service
	client    *xtream.Client
	creds     *credentials.Service
}

// NewDownloadsHandler creates a new downloads handler.
func NewDownloadsHandler(svc *downloads.Service, client *xtream.Client, creds *credentials.Service) *DownloadsHandler {
	return &DownloadsHandler{
		downloads: svc,
		client:    client,
		creds:     creds,
	}
}

// CreateDownloadRequest represents the enqueue request body.
type CreateDownloadRequest struct {
	StreamID           int               `json:"streamId"`
	Kind               models.StreamKind `json:"kind"`
	DisplayName        string            `json:"displayName"`
	EpisodeLabel       string            `json:"episodeLabel,omitempty"`
	PosterURL          string            `json:"posterUrl,omitempty"`
	ContainerExtension string            `json:"containerExtension,omitempty"`
}

// Create enqueues a new download.
func (h *DownloadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if !req.Kind.Valid() {
		http.Error(w, `{"error": "unknown stream kind"}`, http.StatusBadRequest)
		return
	}
	if req.Kind == models.KindLive {
		http.Error(w, `{"error": "live channels cannot be downloaded"}`, http.StatusBadRequest)
		return
	}

	session, err := h.creds.Load()
	if err != nil {
		http.Error(w, `{"error": "not logged in"}`, http.StatusUnauthorized)
		return
	}

	source := h.client.StreamURL(session, models.StreamItem{
		ID:                 req.StreamID,
		Kind:               req.Kind,
		ContainerExtension: req.ContainerExtension,
	})
	source, err = utils.EncodeURLWithSpaces(source)
	if err != nil {
		http.Error(w, `{"error": "invalid stream url"}`, http.StatusBadRequest)
		return
	}

	rec, err := h.downloads.Enqueue(r.Context(), downloads.Request{
		StreamID:     req.StreamID,
		Kind:         req.Kind,
		DisplayName:  req.DisplayName,
		EpisodeLabel: req.EpisodeLabel,
		PosterURL:    req.PosterURL,
		SourceURL:    source,
	})
	switch {
	case errors.Is(err, downloads.ErrSourceUnreachable):
		http.Error(w, `{"error": "source is unreachable"}`, http.StatusBadGateway)
		return
	case errors.Is(err, transfer.ErrEnqueueRejected):
		http.Error(w, `{"error": "transfer facility rejected the job"}`, http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Printf("[handlers] download enqueue: %v", err)
		http.Error(w, `{"error": "failed to enqueue download"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// List returns every download record.
func (h *DownloadsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.downloads.List()
	if err != nil {
		http.Error(w, `{"error": "failed to list downloads"}`, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.DownloadRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// Get returns one download record by its local id.
func (h *DownloadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.downloads.Get(mux.Vars(r)["id"])
	if errors.Is(err, downloads.ErrNotFound) {
		http.Error(w, `{"error": "download not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error": "failed to load download"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// File serves the downloaded asset for local playback. A record whose backing
// file has gone missing is a 404, not a server error.
func (h *DownloadsHandler) File(w http.ResponseWriter, r *http.Request) {
	rec, err := h.downloads.Get(mux.Vars(r)["id"])
	if errors.Is(err, downloads.ErrNotFound) {
		http.Error(w, `{"error": "download not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error": "failed to load download"}`, http.StatusInternalServerError)
		return
	}
	if rec.Status != models.DownloadComplete {
		http.Error(w, `{"error": "download is not complete"}`, http.StatusConflict)
		return
	}

	file, err := h.downloads.OpenFile(rec)
	if err != nil {
		http.Error(w, `{"error": "downloaded file is missing"}`, http.StatusNotFound)
		return
	}
	defer file.Close()

	http.ServeContent(w, r, "", rec.CreatedAt, file)
}

// Delete removes a download and its backing file.
func (h *DownloadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.downloads.Delete(mux.Vars(r)["id"])
	if errors.Is(err, downloads.ErrNotFound) {
		http.Error(w, `{"error": "download not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error": "failed to delete download"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
