package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

	defaultCacheTTL = 24 * time.Hour
	fetchAttempts   = 3
)

// Client talks to the metadata provider: GET against a fixed base URL with an
// api_key query parameter, JSON responses carrying a results array. Relative
// image paths are joined with the image base to form usable URLs.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	cache        *fileCache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider base URL (used in tests).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithImageBaseURL overrides the image prefix.
func WithImageBaseURL(base string) Option {
	return func(c *Client) { c.imageBaseURL = strings.TrimRight(base, "/") }
}

// WithCacheDir enables the on-disk response cache.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cache = newFileCache(dir, defaultCacheTTL) }
}

// NewClient creates a metadata client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		imageBaseURL: defaultImageBaseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MovieResult is one entry of a search response, reduced to the fields the
// client consumes.
type MovieResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

type searchResponse struct {
	Results []MovieResult `json:"results"`
}

// SearchMovies queries the provider for movies matching the given title.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]MovieResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := cacheKey("search-movie", query)
	var cached []MovieResult
	if c.cache.get(key, &cached) {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(query))

	var resp searchResponse
	if err := c.fetch(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	// Cache writes are best effort.
	_ = c.cache.set(key, resp.Results)
	return resp.Results, nil
}

// ImageURL joins a provider-relative image path with the image base. Absolute
// URLs pass through untouched; empty paths yield "".
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

// fetch performs one GET with bounded retries on transient failures.
func (c *Client) fetch(ctx context.Context, endpoint string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("metadata request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("metadata API returned status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("metadata API returned status %d", resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
			if err != nil {
				return fmt.Errorf("read metadata response: %w", err)
			}
			if err := json.Unmarshal(body, out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode metadata response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(fetchAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
