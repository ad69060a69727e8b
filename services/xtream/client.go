package xtream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"streamvault/models"
)

const (
	// maxResponseBytes caps catalog responses; full VOD listings from large
	// providers run to a few megabytes.
	maxResponseBytes = 20 * 1024 * 1024

	defaultRequestTimeout = 30 * time.Second
)

// Client is a typed request/response layer over the provider's single
// player_api.php endpoint. Every request binds the credentials of the active
// session; requests are paced by a shared limiter so catalog refreshes do not
// hammer the provider.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a catalog client. A nil httpClient gets a default with a
// request timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
}

// categoryRow is a category as returned by get_*_categories.
type categoryRow struct {
	CategoryID   flexNumber `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

// streamRow covers the stream listing shapes of all three kinds; live and VOD
// rows carry stream_id, series rows carry series_id and cover.
type streamRow struct {
	StreamID           flexNumber `json:"stream_id"`
	SeriesID           flexNumber `json:"series_id"`
	Name               string     `json:"name"`
	StreamIcon         string     `json:"stream_icon"`
	Cover              string     `json:"cover"`
	Rating             flexNumber `json:"rating"`
	ContainerExtension string     `json:"container_extension"`
}

// Categories fetches the category list for the given kind.
func (c *Client) Categories(ctx context.Context, sess models.Session, kind models.StreamKind) ([]models.CatalogCategory, error) {
	action, err := categoryAction(kind)
	if err != nil {
		return nil, err
	}

	var rows []categoryRow
	if err := c.get(ctx, sess, action, nil, &rows); err != nil {
		return nil, err
	}

	cats := make([]models.CatalogCategory, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, models.CatalogCategory{
			ID:   row.CategoryID.String(),
			Name: row.CategoryName,
			Kind: kind,
		})
	}
	return cats, nil
}

// Streams fetches the stream list for the given kind. An empty categoryID
// means all categories: the parameter is omitted for live streams, while the
// VOD and series listings expect category_id=0.
func (c *Client) Streams(ctx context.Context, sess models.Session, kind models.StreamKind, categoryID string) ([]models.StreamItem, error) {
	action, err := streamAction(kind)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	switch {
	case categoryID != "":
		params.Set("category_id", categoryID)
	case kind != models.KindLive:
		params.Set("category_id", "0")
	}

	var rows []streamRow
	if err := c.get(ctx, sess, action, params, &rows); err != nil {
		return nil, err
	}

	items := make([]models.StreamItem, 0, len(rows))
	for _, row := range rows {
		item, ok := row.toStreamItem(kind)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// seriesInfoResponse is the shape of get_series_info.
type seriesInfoResponse struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Episodes map[string][]struct {
		ID                 flexNumber `json:"id"`
		Title              string     `json:"title"`
		EpisodeNum         flexNumber `json:"episode_num"`
		ContainerExtension string     `json:"container_extension"`
	} `json:"episodes"`
}

// SeriesInfo fetches the season/episode structure of one series.
func (c *Client) SeriesInfo(ctx context.Context, sess models.Session, seriesID int) (*models.SeriesInfo, error) {
	params := url.Values{}
	params.Set("series_id", strconv.Itoa(seriesID))

	var resp seriesInfoResponse
	if err := c.get(ctx, sess, "get_series_info", params, &resp); err != nil {
		return nil, err
	}

	info := &models.SeriesInfo{SeriesID: seriesID, Name: resp.Info.Name}
	for seasonKey, eps := range resp.Episodes {
		seasonNum, err := strconv.Atoi(seasonKey)
		if err != nil {
			continue
		}
		season := models.SeriesSeason{
			Number: seasonNum,
			Name:   fmt.Sprintf("Season %d", seasonNum),
		}
		for _, ep := range eps {
			id := ep.ID.Int()
			if id == 0 {
				continue
			}
			season.Episodes = append(season.Episodes, models.SeriesEpisode{
				ID:                 id,
				Title:              ep.Title,
				EpisodeNumber:      ep.EpisodeNum.Int(),
				ContainerExtension: ep.ContainerExtension,
			})
		}
		sort.Slice(season.Episodes, func(i, j int) bool {
			return season.Episodes[i].EpisodeNumber < season.Episodes[j].EpisodeNumber
		})
		info.Seasons = append(info.Seasons, season)
	}
	sort.Slice(info.Seasons, func(i, j int) bool {
		return info.Seasons[i].Number < info.Seasons[j].Number
	})
	return info, nil
}

// shortEPGResponse is the shape of get_short_epg.
type shortEPGResponse struct {
	EPGListings []struct {
		Title          string     `json:"title"`
		Description    string     `json:"description"`
		StartTimestamp flexNumber `json:"start_timestamp"`
		StopTimestamp  flexNumber `json:"stop_timestamp"`
	} `json:"epg_listings"`
}

// ShortEPG fetches the now/next listings for one live channel. Title and
// description arrive base64-encoded and are decoded defensively: on decode
// failure the raw string is kept rather than failing the response.
func (c *Client) ShortEPG(ctx context.Context, sess models.Session, streamID, limit int) ([]models.EPGEntry, error) {
	params := url.Values{}
	params.Set("stream_id", strconv.Itoa(streamID))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp shortEPGResponse
	if err := c.get(ctx, sess, "get_short_epg", params, &resp); err != nil {
		return nil, err
	}

	entries := make([]models.EPGEntry, 0, len(resp.EPGListings))
	for _, listing := range resp.EPGListings {
		startTS := listing.StartTimestamp.Int64()
		stopTS := listing.StopTimestamp.Int64()
		if startTS == 0 || stopTS == 0 {
			continue
		}
		entries = append(entries, models.EPGEntry{
			Title:       decodeBase64Safe(listing.Title),
			Description: decodeBase64Safe(listing.Description),
			Start:       time.Unix(startTS, 0).UTC(),
			Stop:        time.Unix(stopTS, 0).UTC(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Start.Before(entries[j].Start)
	})
	return entries, nil
}

// StreamURL builds the direct playback/download URL for an item.
func (c *Client) StreamURL(sess models.Session, item models.StreamItem) string {
	host := strings.TrimRight(sess.Host, "/")
	user := url.PathEscape(sess.Username)
	pass := url.PathEscape(sess.Password)

	switch item.Kind {
	case models.KindLive:
		return fmt.Sprintf("%s/live/%s/%s/%d.ts", host, user, pass, item.ID)
	case models.KindSeries:
		ext := item.ContainerExtension
		if ext == "" {
			ext = "mp4"
		}
		return fmt.Sprintf("%s/series/%s/%s/%d.%s", host, user, pass, item.ID, ext)
	default:
		ext := item.ContainerExtension
		if ext == "" {
			ext = "mp4"
		}
		return fmt.Sprintf("%s/movie/%s/%s/%d.%s", host, user, pass, item.ID, ext)
	}
}

// get performs one player API request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, sess models.Session, action string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Action: action, Err: err}
	}

	values := url.Values{}
	values.Set("username", sess.Username)
	values.Set("password", sess.Password)
	values.Set("action", action)
	for key, vals := range params {
		for _, v := range vals {
			values.Add(key, v)
		}
	}

	apiURL := strings.TrimRight(sess.Host, "/") + "/player_api.php?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Action: action, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Action: action, Err: fmt.Errorf("read response: %w", err)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Action: action, Err: err}
	}
	return nil
}

func (r streamRow) toStreamItem(kind models.StreamKind) (models.StreamItem, bool) {
	id := r.StreamID.Int()
	poster := r.StreamIcon
	if kind == models.KindSeries {
		id = r.SeriesID.Int()
		poster = r.Cover
	}
	if id == 0 {
		return models.StreamItem{}, false
	}

	rating := r.Rating.Float()
	return models.StreamItem{
		ID:                 id,
		Name:               r.Name,
		Kind:               kind,
		PosterURL:          poster,
		Rating:             rating,
		ContainerExtension: r.ContainerExtension,
	}, true
}

func categoryAction(kind models.StreamKind) (string, error) {
	switch kind {
	case models.KindLive:
		return "get_live_categories", nil
	case models.KindVOD:
		return "get_vod_categories", nil
	case models.KindSeries:
		return "get_series_categories", nil
	}
	return "", fmt.Errorf("unknown stream kind %q", kind)
}

func streamAction(kind models.StreamKind) (string, error) {
	switch kind {
	case models.KindLive:
		return "get_live_streams", nil
	case models.KindVOD:
		return "get_vod_streams", nil
	case models.KindSeries:
		return "get_series", nil
	}
	return "", fmt.Errorf("unknown stream kind %q", kind)
}

// decodeBase64Safe attempts to base64-decode a string.
// If decoding fails, returns the original string (it may already be plain text).
func decodeBase64Safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(decoded)
}
