package database

import (
	"database/sql"
	"fmt"
	"time"

	"streamvault/models"
)

// DownloadRepository is the durable download ledger.
type DownloadRepository struct {
	conn *sql.DB
}

// NewDownloadRepository creates a download repository over the given connection.
func NewDownloadRepository(conn *sql.DB) *DownloadRepository {
	return &DownloadRepository{conn: conn}
}

// Insert stores a new download record. CreatedAt is set if zero.
func (r *DownloadRepository) Insert(rec *models.DownloadRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn.Exec(`
		INSERT INTO downloads (local_id, transfer_handle, stream_id, kind, display_name,
			episode_label, poster_url, file_path, status, progress_percent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LocalID, rec.TransferHandle, rec.StreamID, string(rec.Kind), rec.DisplayName,
		rec.EpisodeLabel, rec.PosterURL, rec.FilePath, string(rec.Status), rec.ProgressPercent, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// SettleByHandle moves the record with the given transfer handle to a terminal
// status. The update is a no-op when the record is already terminal or has
// been deleted, which makes concurrent reconciliation notifications safe: at
// most one caller observes settled == true.
func (r *DownloadRepository) SettleByHandle(handle int64, status models.DownloadStatus, progress *int) (bool, error) {
	var res sql.Result
	var err error
	if progress != nil {
		res, err = r.conn.Exec(`
			UPDATE downloads SET status = ?, progress_percent = ?
			WHERE transfer_handle = ? AND status NOT IN ('complete', 'failed')`,
			string(status), *progress, handle)
	} else {
		res, err = r.conn.Exec(`
			UPDATE downloads SET status = ?
			WHERE transfer_handle = ? AND status NOT IN ('complete', 'failed')`,
			string(status), handle)
	}
	if err != nil {
		return false, fmt.Errorf("settle download: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("settle download rows: %w", err)
	}
	return n > 0, nil
}

// MarkActiveByHandle moves the record with the given transfer handle from
// queued to active. Records past queued, and deleted records, are left alone.
func (r *DownloadRepository) MarkActiveByHandle(handle int64) (bool, error) {
	res, err := r.conn.Exec(`
		UPDATE downloads SET status = ?
		WHERE transfer_handle = ? AND status = ?`,
		string(models.DownloadActive), handle, string(models.DownloadQueued))
	if err != nil {
		return false, fmt.Errorf("mark download active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark download active rows: %w", err)
	}
	return n > 0, nil
}

// GetByHandle returns the record for the given transfer handle, or nil.
func (r *DownloadRepository) GetByHandle(handle int64) (*models.DownloadRecord, error) {
	return r.getOne(`WHERE transfer_handle = ?`, handle)
}

// GetByLocalID returns the record with the given local id, or nil.
func (r *DownloadRepository) GetByLocalID(localID string) (*models.DownloadRecord, error) {
	return r.getOne(`WHERE local_id = ?`, localID)
}

// Delete removes the record with the given local id.
func (r *DownloadRepository) Delete(localID string) error {
	if _, err := r.conn.Exec(`DELETE FROM downloads WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("delete download: %w", err)
	}
	return nil
}

// ListAll returns every download record, newest first.
func (r *DownloadRepository) ListAll() ([]models.DownloadRecord, error) {
	rows, err := r.conn.Query(selectDownload + ` ORDER BY created_at DESC, local_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var recs []models.DownloadRecord
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

const selectDownload = `
	SELECT local_id, transfer_handle, stream_id, kind, display_name,
		episode_label, poster_url, file_path, status, progress_percent, created_at
	FROM downloads`

func (r *DownloadRepository) getOne(where string, arg any) (*models.DownloadRecord, error) {
	rows, err := r.conn.Query(selectDownload+" "+where, arg)
	if err != nil {
		return nil, fmt.Errorf("query download: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanDownload(rows)
}

func scanDownload(rows *sql.Rows) (*models.DownloadRecord, error) {
	var rec models.DownloadRecord
	var kind, status string
	if err := rows.Scan(&rec.LocalID, &rec.TransferHandle, &rec.StreamID, &kind, &rec.DisplayName,
		&rec.EpisodeLabel, &rec.PosterURL, &rec.FilePath, &status, &rec.ProgressPercent, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan download row: %w", err)
	}
	rec.Kind = models.StreamKind(kind)
	rec.Status = models.DownloadStatus(status)
	return &rec, nil
}
