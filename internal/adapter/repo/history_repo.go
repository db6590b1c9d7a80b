package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoreel/internal/domain"
)

// HistoryRepositoryPG implements domain.HistoryRepository. History rows are
// append-only audit records; after a terminal status only publish results
// may still be added.
type HistoryRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a history repository backed by PostgreSQL.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepositoryPG {
	return &HistoryRepositoryPG{pool: pool}
}

// Create appends a new attempt record.
func (r *HistoryRepositoryPG) Create(ctx context.Context, rec *domain.HistoryRecord) error {
	query := `
INSERT INTO generation_history (id, config_id, product_id, media_asset_id, status, error_message, published_platforms)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.ConfigID,
		rec.ProductID,
		rec.MediaAssetID,
		rec.Status,
		rec.ErrorMessage,
		rec.PublishedPlatforms,
	)
	return err
}

// SetStatus updates the attempt outcome, stamping completed_at once the
// status turns terminal.
func (r *HistoryRepositoryPG) SetStatus(ctx context.Context, id string, status domain.HistoryStatus, errMsg string, mediaAssetID string) error {
	query := `
UPDATE generation_history
SET status = $2,
    error_message = $3,
    media_asset_id = CASE WHEN $4 = '' THEN media_asset_id ELSE $4 END,
    completed_at = CASE WHEN $2 IN ('ready', 'failed') THEN NOW() ELSE completed_at END
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, status, errMsg, mediaAssetID)
	return err
}

// GetByMediaAsset resolves the attempt that produced a generation job.
func (r *HistoryRepositoryPG) GetByMediaAsset(ctx context.Context, mediaAssetID string) (*domain.HistoryRecord, error) {
	query := `
SELECT id, config_id, product_id, media_asset_id, status, error_message, published_platforms, completed_at, created_at
FROM generation_history
WHERE media_asset_id = $1
ORDER BY created_at DESC
LIMIT 1;
`
	row := r.pool.QueryRow(ctx, query, mediaAssetID)
	rec, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// AddPublishResult appends a platform to the published set.
func (r *HistoryRepositoryPG) AddPublishResult(ctx context.Context, id string, platform string) error {
	query := `
UPDATE generation_history
SET published_platforms = array_append(published_platforms, $2)
WHERE id = $1 AND NOT ($2 = ANY (published_platforms));
`
	_, err := r.pool.Exec(ctx, query, id, platform)
	return err
}

// ListByConfig returns the most recent attempts for one config.
func (r *HistoryRepositoryPG) ListByConfig(ctx context.Context, configID string, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, config_id, product_id, media_asset_id, status, error_message, published_platforms, completed_at, created_at
FROM generation_history
WHERE config_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, configID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanHistory(row rowScanner) (*domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	if err := row.Scan(
		&rec.ID,
		&rec.ConfigID,
		&rec.ProductID,
		&rec.MediaAssetID,
		&rec.Status,
		&rec.ErrorMessage,
		&rec.PublishedPlatforms,
		&rec.CompletedAt,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ domain.HistoryRepository = (*HistoryRepositoryPG)(nil)
