package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"streamvault/models"
	"streamvault/services/catalog"
	"streamvault/services/credentials"
	"streamvault/services/search"
	"streamvault/services/xtream"
)

// CatalogHandler serves the synchronized catalog, search, and per-stream
// detail endpoints.
type CatalogHandler struct {
	catalog *catalog.Service
	index   *search.Index
	client  *xtream.Client
	creds   *credentials.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(cat *catalog.Service, index *search.Index, client *xtream.Client, creds *credentials.Service) *CatalogHandler {
	return &CatalogHandler{
		catalog: cat,
		index:   index,
		client:  client,
		creds:   creds,
	}
}

// CatalogResponse wraps the current snapshot. Loaded distinguishes an empty
// catalog from one that has not been published yet.
type CatalogResponse struct {
	Loaded bool                `json:"loaded"`
	Items  []models.StreamItem `json:"items"`
}

// List returns the current catalog snapshot.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, loaded := h.catalog.Snapshot()
	if items == nil {
		items = []models.StreamItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CatalogResponse{Loaded: loaded, Items: items})
}

// Refresh triggers a wholesale remote refresh and returns the new snapshot.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.creds.Load()
	if err != nil {
		http.Error(w, `{"error": "not logged in"}`, http.StatusUnauthorized)
		return
	}

	if err := h.catalog.Refresh(r.Context(), session); err != nil {
		http.Error(w, `{"error": "catalog refresh failed"}`, http.StatusBadGateway)
		return
	}
	h.List(w, r)
}

// SearchResponse carries the match list plus the index state so clients can
// distinguish "no matches" from "type something" and "still loading".
type SearchResponse struct {
	State string              `json:"state"`
	Items []models.StreamItem `json:"items"`
}

func searchStateLabel(s search.State) string {
	switch s {
	case search.StateAwaitingInput:
		return "awaiting_input"
	case search.StateLoading:
		return "loading"
	default:
		return "results"
	}
}

// Search answers a substring query against the in-memory index.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	result := h.index.Query(r.URL.Query().Get("q"))
	items := result.Items
	if items == nil {
		items = []models.StreamItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SearchResponse{
		State: searchStateLabel(result.State),
		Items: items,
	})
}

// Categories lists the provider's categories for one stream kind.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	kind := models.StreamKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		http.Error(w, `{"error": "unknown stream kind"}`, http.StatusBadRequest)
		return
	}

	session, err := h.creds.Load()
	if err != nil {
		http.Error(w, `{"error": "not logged in"}`, http.StatusUnauthorized)
		return
	}

	categories, err := h.client.Categories(r.Context(), session, kind)
	if err != nil {
		// Malformed provider responses read as an empty list; only
		// transport failures surface to the client.
		if !xtream.IsDecodeError(err) {
			http.Error(w, `{"error": "category listing failed"}`, http.StatusBadGateway)
			return
		}
		log.Printf("[handlers] category listing for %s decoded badly: %v", kind, err)
		categories = nil
	}
	if categories == nil {
		categories = []models.CatalogCategory{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

// SeriesInfo returns the season/episode structure for one series.
func (h *CatalogHandler) SeriesInfo(w http.ResponseWriter, r *http.Request) {
	seriesID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error": "invalid series id"}`, http.StatusBadRequest)
		return
	}

	session, err := h.creds.Load()
	if err != nil {
		http.Error(w, `{"error": "not logged in"}`, http.StatusUnauthorized)
		return
	}

	info, err := h.client.SeriesInfo(r.Context(), session, seriesID)
	if err != nil {
		if !xtream.IsDecodeError(err) {
			http.Error(w, `{"error": "series info fetch failed"}`, http.StatusBadGateway)
			return
		}
		log.Printf("[handlers] series info for %d decoded badly: %v", seriesID, err)
		info = &models.SeriesInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// EPG returns the upcoming programmes for one live channel.
func (h *CatalogHandler) EPG(w http.ResponseWriter, r *http.Request) {
	streamID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error": "invalid stream id"}`, http.StatusBadRequest)
		return
	}

	limit := 4
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	session, err := h.creds.Load()
	if err != nil {
		http.Error(w, `{"error": "not logged in"}`, http.StatusUnauthorized)
		return
	}

	entries, err := h.client.ShortEPG(r.Context(), session, streamID, limit)
	if err != nil {
		if !xtream.IsDecodeError(err) {
			http.Error(w, `{"error": "epg fetch failed"}`, http.StatusBadGateway)
			return
		}
		log.Printf("[handlers] epg for %d decoded badly: %v", streamID, err)
		entries = nil
	}
	if entries == nil {
		entries = []models.EPGEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// StreamURL returns the direct playback URL for a catalog item.
func (h *CatalogHandler) StreamURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := models.StreamKind(vars["kind"])
	if !kind.Valid() {
		http.Error(w, `{"error": "unknown stream kind"}`, http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, `{"error": "invalid stream id"}`, http.StatusBadRequest)
		return
	}

	session, err := h.creds.Load()
	if err != nil {
		http.Error(w, `{"error": "not logged in"}`, http.StatusUnauthorized)
		return
	}

	item := models.StreamItem{ID: id, Kind: kind, ContainerExtension: r.URL.Query().Get("ext")}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": h.client.StreamURL(session, item)})
}
