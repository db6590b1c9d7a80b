// Package publish reconciles locally tracked publish jobs against the
// remote publishing provider's authoritative status. It is a pure
// state-merge loop: fetch remote, map, write only when something changed.
package publish

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"autoreel/internal/domain"
	"autoreel/internal/infra"
	"autoreel/internal/providers/publisher"
)

// defaultConcurrency bounds the fan-out across publish jobs per tick. Each
// job is independent, so per-entity serialization is free.
const defaultConcurrency = 4

// Reconciler merges remote publish status into local records on its own
// periodic trigger, independent of generation.
type Reconciler struct {
	repo     domain.PublishRepository
	provider publisher.API
	logger   infra.Logger
	now      func() time.Time
	limit    int
}

// NewReconciler wires a reconciler.
func NewReconciler(repo domain.PublishRepository, provider publisher.API, logger infra.Logger) *Reconciler {
	return &Reconciler{
		repo:     repo,
		provider: provider,
		logger:   logger,
		now:      time.Now,
		limit:    defaultConcurrency,
	}
}

// Run reconciles every in-flight publish job once. Job failures are consumed
// per job; one unreachable remote never aborts its siblings and never
// escalates to a terminal local state.
func (r *Reconciler) Run(ctx context.Context) {
	jobs, err := r.repo.ListInFlight(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("reconcile: list in-flight jobs failed")
		return
	}
	if len(jobs) == 0 {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			r.reconcileOne(ctx, &job)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reconciler) reconcileOne(ctx context.Context, job *domain.PublishJob) {
	if job.RemoteJobID == "" {
		r.logger.Warn().Str("publish_id", job.ID).Msg("reconcile: job missing remote id, skipping")
		return
	}
	remote, err := r.provider.Status(ctx, job.RemoteJobID)
	if err != nil {
		// Unreachable remote is retried on the next tick, never treated as
		// a publish failure.
		r.logger.Warn().Err(err).Str("publish_id", job.ID).Msg("reconcile: remote status unavailable")
		return
	}

	mapped, publishedAt := r.mapStatus(job, remote)
	if mapped == "" || mapped == job.Status {
		// Still in flight, unrecognized, or no change: idempotent no-op.
		return
	}
	if err := r.repo.UpdateStatus(ctx, job.ID, mapped, remote.PublicURL, remote.Message, publishedAt); err != nil {
		r.logger.Error().Err(err).Str("publish_id", job.ID).Msg("reconcile: update failed")
		return
	}
	r.logger.Info().
		Str("publish_id", job.ID).
		Str("platform", job.Platform).
		Str("status", string(mapped)).
		Msg("reconcile: status merged")
}

// mapStatus translates the remote vocabulary into the local one. Remote
// in-flight states and anything unrecognized produce no local change.
func (r *Reconciler) mapStatus(job *domain.PublishJob, remote publisher.StatusResult) (domain.PublishStatus, *time.Time) {
	switch remote.Status {
	case publisher.RemotePublished:
		now := r.now()
		return domain.PublishPublished, &now
	case publisher.RemoteFailed:
		return domain.PublishFailed, nil
	case publisher.RemoteScheduled, publisher.RemotePosting:
		return "", nil
	default:
		r.logger.Warn().
			Str("publish_id", job.ID).
			Str("remote_status", string(remote.Status)).
			Msg("reconcile: unrecognized remote status")
		return "", nil
	}
}
