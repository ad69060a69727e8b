package database

import (
	"database/sql"
	"fmt"
	"time"

	"streamvault/models"
)

// CatalogRepository is the durable store of previously fetched streams.
// Rows are keyed by (stream_id, kind); upserting the same pair twice never
// produces a duplicate.
type CatalogRepository struct {
	conn *sql.DB
}

// NewCatalogRepository creates a catalog repository over the given connection.
func NewCatalogRepository(conn *sql.DB) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// UpsertStreams writes the given items in a single transaction, inserting new
// rows and refreshing existing ones in place.
func (r *CatalogRepository) UpsertStreams(items []models.StreamItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO catalog_items (stream_id, kind, name, poster_url, rating, container_extension, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (stream_id, kind) DO UPDATE SET
			name = excluded.name,
			poster_url = excluded.poster_url,
			rating = excluded.rating,
			container_extension = excluded.container_extension,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, item := range items {
		if _, err := stmt.Exec(item.ID, string(item.Kind), item.Name, item.PosterURL,
			item.Rating, item.ContainerExtension, now); err != nil {
			return fmt.Errorf("upsert stream %d/%s: %w", item.ID, item.Kind, err)
		}
	}

	return tx.Commit()
}

// RecentByKind returns up to limit items of the given kind, most recently
// refreshed first.
func (r *CatalogRepository) RecentByKind(kind models.StreamKind, limit int) ([]models.StreamItem, error) {
	rows, err := r.conn.Query(`
		SELECT stream_id, kind, name, poster_url, rating, container_extension
		FROM catalog_items
		WHERE kind = ?
		ORDER BY updated_at DESC, name ASC
		LIMIT ?`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	return scanStreamItems(rows)
}

// GetStream returns the item with the given identity, or nil if absent.
func (r *CatalogRepository) GetStream(id int, kind models.StreamKind) (*models.StreamItem, error) {
	row := r.conn.QueryRow(`
		SELECT stream_id, kind, name, poster_url, rating, container_extension
		FROM catalog_items
		WHERE stream_id = ? AND kind = ?`, id, string(kind))

	var item models.StreamItem
	var k string
	err := row.Scan(&item.ID, &k, &item.Name, &item.PosterURL, &item.Rating, &item.ContainerExtension)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan stream: %w", err)
	}
	item.Kind = models.StreamKind(k)
	return &item, nil
}

// CountByKind returns the number of stored items of the given kind.
func (r *CatalogRepository) CountByKind(kind models.StreamKind) (int, error) {
	var n int
	err := r.conn.QueryRow(`SELECT COUNT(*) FROM catalog_items WHERE kind = ?`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func scanStreamItems(rows *sql.Rows) ([]models.StreamItem, error) {
	var items []models.StreamItem
	for rows.Next() {
		var item models.StreamItem
		var kind string
		if err := rows.Scan(&item.ID, &kind, &item.Name, &item.PosterURL,
			&item.Rating, &item.ContainerExtension); err != nil {
			return nil, fmt.Errorf("scan stream row: %w", err)
		}
		item.Kind = models.StreamKind(kind)
		items = append(items, item)
	}
	return items, rows.Err()
}
