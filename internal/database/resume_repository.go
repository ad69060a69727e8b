package database

import (
	"database/sql"
	"fmt"
	"time"

	"streamvault/models"
)

// ResumeRepository persists per-stream playback positions.
type ResumeRepository struct {
	conn *sql.DB
}

// NewResumeRepository creates a resume repository over the given connection.
func NewResumeRepository(conn *sql.DB) *ResumeRepository {
	return &ResumeRepository{conn: conn}
}

// Upsert stores or replaces the position for the given stream.
func (r *ResumeRepository) Upsert(pos models.ResumePosition) error {
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now().UTC()
	}
	_, err := r.conn.Exec(`
		INSERT INTO resume_positions (stream_id, kind, position_secs, duration_secs, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (stream_id, kind) DO UPDATE SET
			position_secs = excluded.position_secs,
			duration_secs = excluded.duration_secs,
			updated_at = excluded.updated_at`,
		pos.StreamID, string(pos.Kind), pos.PositionSecs, pos.DurationSecs, pos.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert resume position: %w", err)
	}
	return nil
}

// Get returns the stored position for the given stream, or nil if absent.
func (r *ResumeRepository) Get(streamID int, kind models.StreamKind) (*models.ResumePosition, error) {
	row := r.conn.QueryRow(`
		SELECT stream_id, kind, position_secs, duration_secs, updated_at
		FROM resume_positions
		WHERE stream_id = ? AND kind = ?`, streamID, string(kind))

	var pos models.ResumePosition
	var k string
	err := row.Scan(&pos.StreamID, &k, &pos.PositionSecs, &pos.DurationSecs, &pos.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan resume position: %w", err)
	}
	pos.Kind = models.StreamKind(k)
	return &pos, nil
}

// Delete removes the stored position for the given stream. Deleting a missing
// row is not an error.
func (r *ResumeRepository) Delete(streamID int, kind models.StreamKind) error {
	if _, err := r.conn.Exec(`DELETE FROM resume_positions WHERE stream_id = ? AND kind = ?`,
		streamID, string(kind)); err != nil {
		return fmt.Errorf("delete resume position: %w", err)
	}
	return nil
}
