package models

import "time"

// ResumePosition is the persisted playback offset for one stream.
type ResumePosition struct {
	StreamID     int        `json:"streamId"`
	Kind         StreamKind `json:"kind"`
	PositionSecs float64    `json:"positionSecs"`
	DurationSecs float64    `json:"durationSecs"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
