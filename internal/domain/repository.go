package domain

import (
	"context"
	"time"
)

// JobRepository persists generation jobs including their chain state.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	Update(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, id string) (*GenerationJob, error)
	// ListProcessing returns all jobs whose chain stage is non-terminal,
	// for the unconditional poll pass.
	ListProcessing(ctx context.Context) ([]GenerationJob, error)
	// ListOrphanedIntents returns non-terminal jobs whose submit intent is
	// older than the cutoff and that never recorded an external job id.
	ListOrphanedIntents(ctx context.Context, cutoff time.Time) ([]GenerationJob, error)
}

// ProductRepository feeds the rotation pool.
type ProductRepository interface {
	ListActive(ctx context.Context, storeID string) ([]Product, error)
	MarkUsed(ctx context.Context, productID string, usedAt time.Time) error
	Deactivate(ctx context.Context, productID string) error
}

// ConfigRepository persists autopilot configs and their counters.
type ConfigRepository interface {
	ListDue(ctx context.Context, now time.Time) ([]AutopilotConfig, error)
	List(ctx context.Context) ([]AutopilotConfig, error)
	GetByID(ctx context.Context, id string) (*AutopilotConfig, error)
	AdvanceSchedule(ctx context.Context, configID string, next time.Time, generatedAt time.Time) error
	IncrementStats(ctx context.Context, configID string, poolCycled bool) error
}

// HistoryRepository appends and finalizes generation attempt records.
type HistoryRepository interface {
	Create(ctx context.Context, rec *HistoryRecord) error
	SetStatus(ctx context.Context, id string, status HistoryStatus, errMsg string, mediaAssetID string) error
	GetByMediaAsset(ctx context.Context, mediaAssetID string) (*HistoryRecord, error)
	AddPublishResult(ctx context.Context, id string, platform string) error
	ListByConfig(ctx context.Context, configID string, limit int) ([]HistoryRecord, error)
}

// PublishRepository tracks publish jobs for reconciliation.
type PublishRepository interface {
	Create(ctx context.Context, job *PublishJob) error
	ListInFlight(ctx context.Context) ([]PublishJob, error)
	UpdateStatus(ctx context.Context, id string, status PublishStatus, publicURL, errMsg string, publishedAt *time.Time) error
}
