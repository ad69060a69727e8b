package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"streamvault/services/metadata"
)

// MetadataHandler proxies enrichment lookups against the metadata provider.
type MetadataHandler struct {
	client *metadata.Client
}

// NewMetadataHandler creates a new metadata handler. A nil client disables
// the endpoint.
func NewMetadataHandler(client *metadata.Client) *MetadataHandler {
	return &MetadataHandler{client: client}
}

// MovieSearchResult is one enriched movie hit with a resolved poster URL.
type MovieSearchResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	PosterURL   string  `json:"posterUrl,omitempty"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// SearchMovies looks up movie metadata by title.
func (h *MetadataHandler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, `{"error": "metadata enrichment is not configured"}`, http.StatusNotImplemented)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, `{"error": "query is required"}`, http.StatusBadRequest)
		return
	}

	movies, err := h.client.SearchMovies(r.Context(), query)
	if err != nil {
		http.Error(w, `{"error": "metadata lookup failed"}`, http.StatusBadGateway)
		return
	}

	results := make([]MovieSearchResult, 0, len(movies))
	for _, m := range movies {
		results = append(results, MovieSearchResult{
			ID:          m.ID,
			Title:       m.Title,
			Overview:    m.Overview,
			PosterURL:   h.client.ImageURL(m.PosterPath),
			ReleaseDate: m.ReleaseDate,
			Rating:      m.VoteAverage,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
