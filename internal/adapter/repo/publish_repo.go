package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"autoreel/internal/domain"
)

// PublishRepositoryPG implements domain.PublishRepository.
type PublishRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPublishRepository creates a publish-job repository backed by PostgreSQL.
func NewPublishRepository(pool *pgxpool.Pool) *PublishRepositoryPG {
	return &PublishRepositoryPG{pool: pool}
}

// Create inserts a new publish job handed to the remote provider.
func (r *PublishRepositoryPG) Create(ctx context.Context, job *domain.PublishJob) error {
	query := `
INSERT INTO publish_jobs (id, history_id, platform, remote_job_id, status, public_url, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.HistoryID,
		job.Platform,
		job.RemoteJobID,
		job.Status,
		job.PublicURL,
		job.ErrorMessage,
	)
	return err
}

// ListInFlight returns jobs awaiting an authoritative remote answer.
func (r *PublishRepositoryPG) ListInFlight(ctx context.Context) ([]domain.PublishJob, error) {
	query := `
SELECT id, history_id, platform, remote_job_id, status, public_url, error_message, published_at, created_at, updated_at
FROM publish_jobs
WHERE status IN ('scheduled', 'posting')
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.PublishJob
	for rows.Next() {
		var job domain.PublishJob
		if err := rows.Scan(
			&job.ID,
			&job.HistoryID,
			&job.Platform,
			&job.RemoteJobID,
			&job.Status,
			&job.PublicURL,
			&job.ErrorMessage,
			&job.PublishedAt,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateStatus merges a reconciled remote status into the local record.
func (r *PublishRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.PublishStatus, publicURL, errMsg string, publishedAt *time.Time) error {
	query := `
UPDATE publish_jobs
SET status = $2,
    public_url = CASE WHEN $3 = '' THEN public_url ELSE $3 END,
    error_message = $4,
    published_at = COALESCE($5, published_at),
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, status, publicURL, errMsg, publishedAt)
	return err
}

var _ domain.PublishRepository = (*PublishRepositoryPG)(nil)
