package repo

import (
	"context"
	"time"

	"autoreel/internal/domain"
	"autoreel/internal/infra"
	"autoreel/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on top of the marker-tagged
// SQL runner.
type JobRepositoryPG struct {
	runner *infra.SQLRunner
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(runner *infra.SQLRunner) *JobRepositoryPG {
	return &JobRepositoryPG{runner: runner}
}

// Create inserts a new generation job including its chain state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	_, err := r.runner.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.OwnerID,
		job.Provider,
		job.Kind,
		job.Status,
		job.ProductID,
		job.ProductTitle,
		job.Locale,
		job.AspectRatio,
		job.ExternalJobID,
		job.ChainStage,
		job.ImageURL,
		job.AnalysisText,
		job.VideoPrompt,
		job.SubmitIntentAt,
		job.ImageStartedAt,
		job.VideoStartedAt,
		job.CompletedAt,
		job.ErrorStage,
		job.ErrorMessage,
		job.ResultURLs,
	)
	return err
}

// Update persists every mutable chain field of the job.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.GenerationJob) error {
	_, err := r.runner.Exec(ctx, sqlinline.QUpdateJob,
		job.ID,
		job.Provider,
		job.Kind,
		job.Status,
		job.ExternalJobID,
		job.ChainStage,
		job.ImageURL,
		job.AnalysisText,
		job.VideoPrompt,
		job.SubmitIntentAt,
		job.ImageStartedAt,
		job.VideoStartedAt,
		job.CompletedAt,
		job.ErrorStage,
		job.ErrorMessage,
		job.ResultURLs,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QGetJob, id)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListProcessing returns every job whose chain stage is non-terminal.
func (r *JobRepositoryPG) ListProcessing(ctx context.Context) ([]domain.GenerationJob, error) {
	rows, err := r.runner.Query(ctx, sqlinline.QListProcessingJobs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ListOrphanedIntents returns non-terminal jobs with an unconfirmed submit
// intent older than the cutoff.
func (r *JobRepositoryPG) ListOrphanedIntents(ctx context.Context, cutoff time.Time) ([]domain.GenerationJob, error) {
	rows, err := r.runner.Query(ctx, sqlinline.QListOrphanedIntents, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Provider,
		&job.Kind,
		&job.Status,
		&job.ProductID,
		&job.ProductTitle,
		&job.Locale,
		&job.AspectRatio,
		&job.ExternalJobID,
		&job.ChainStage,
		&job.ImageURL,
		&job.AnalysisText,
		&job.VideoPrompt,
		&job.SubmitIntentAt,
		&job.ImageStartedAt,
		&job.VideoStartedAt,
		&job.CompletedAt,
		&job.ErrorStage,
		&job.ErrorMessage,
		&job.ResultURLs,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
