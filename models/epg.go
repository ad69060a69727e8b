package models

import "time"

// EPGEntry is one now/next programme for a live channel. Title and
// description arrive base64-encoded from the upstream API and are decoded
// defensively before reaching this struct.
type EPGEntry struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}
