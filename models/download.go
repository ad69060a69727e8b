package models

import "time"

// DownloadStatus is the lifecycle state of a download record.
type DownloadStatus string

const (
	DownloadQueued   DownloadStatus = "queued"
	DownloadActive   DownloadStatus = "active"
	DownloadComplete DownloadStatus = "complete"
	DownloadFailed   DownloadStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s DownloadStatus) Terminal() bool {
	return s == DownloadComplete || s == DownloadFailed
}

// DownloadRecord is one row of the download ledger. A record only exists once
// the source URL has been probed reachable and the transfer facility accepted
// the job; Status and ProgressPercent are mutated only by reconciliation.
type DownloadRecord struct {
	LocalID         string         `json:"localId"`
	TransferHandle  int64          `json:"transferHandle"`
	StreamID        int            `json:"streamId"`
	Kind            StreamKind     `json:"kind"`
	DisplayName     string         `json:"displayName"`
	EpisodeLabel    string         `json:"episodeLabel,omitempty"`
	PosterURL       string         `json:"posterUrl,omitempty"`
	FilePath        string         `json:"filePath"`
	Status          DownloadStatus `json:"status"`
	ProgressPercent int            `json:"progressPercent"`
	CreatedAt       time.Time      `json:"createdAt"`
}
