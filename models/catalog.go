package models

// StreamKind identifies which section of the catalog a stream belongs to.
type StreamKind string

const (
	KindLive   StreamKind = "live"
	KindVOD    StreamKind = "vod"
	KindSeries StreamKind = "series"
)

// Valid reports whether k is one of the known stream kinds.
func (k StreamKind) Valid() bool {
	switch k {
	case KindLive, KindVOD, KindSeries:
		return true
	}
	return false
}

// CatalogCategory is a category row from the provider's category listings.
type CatalogCategory struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind StreamKind `json:"kind"`
}

// StreamItem is a single catalog entry. Identity is (ID, Kind): the local
// store never holds two rows with the same pair.
type StreamItem struct {
	ID                 int        `json:"id"`
	Name               string     `json:"name"`
	Kind               StreamKind `json:"kind"`
	PosterURL          string     `json:"posterUrl,omitempty"`
	Rating             float64    `json:"rating,omitempty"`
	ContainerExtension string     `json:"containerExtension,omitempty"`
}

// SeriesSeason is one season of a series as returned by the series info call.
type SeriesSeason struct {
	Number   int             `json:"number"`
	Name     string          `json:"name"`
	Episodes []SeriesEpisode `json:"episodes"`
}

// SeriesEpisode is a single playable episode within a season.
type SeriesEpisode struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	EpisodeNumber      int    `json:"episodeNumber"`
	ContainerExtension string `json:"containerExtension,omitempty"`
}

// SeriesInfo is the season/episode structure of one series.
type SeriesInfo struct {
	SeriesID int            `json:"seriesId"`
	Name     string         `json:"name"`
	Seasons  []SeriesSeason `json:"seasons"`
}
