package domain

import "time"

// GenerationMode selects how the autopilot produces a video for a config.
type GenerationMode string

const (
	// ModeChain drives the full image -> analysis -> video provider chain.
	ModeChain GenerationMode = "chain"
	// ModeComposed submits a single video job carrying a scene plan with
	// narration-derived timings.
	ModeComposed GenerationMode = "composed"
)

// AutopilotConfig is a recurring-generation subscription for one store.
type AutopilotConfig struct {
	ID      string
	StoreID string

	CadencePerWeek int
	Platforms      []string
	Mode           GenerationMode
	Locale         string

	IsActive   bool
	IsApproved bool

	NextScheduledAt time.Time
	LastGeneratedAt *time.Time

	VideosGenerated int
	PoolCycles      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Runnable reports whether the config may be picked up by the scheduler at
// all. Due-ness is a separate, time-based question.
func (c *AutopilotConfig) Runnable() bool {
	return c.IsActive && c.IsApproved
}

// HistoryStatus enumerates the lifecycle of one generation attempt.
type HistoryStatus string

const (
	HistoryPending    HistoryStatus = "pending"
	HistoryGenerating HistoryStatus = "generating"
	HistoryReady      HistoryStatus = "ready"
	HistoryFailed     HistoryStatus = "failed"
)

// HistoryRecord is an append-only audit row for one generation attempt. After
// reaching a terminal status it is never mutated except to add publish
// results.
type HistoryRecord struct {
	ID        string
	ConfigID  string
	ProductID string

	// MediaAssetID is null until the attempt produces a job.
	MediaAssetID string

	Status       HistoryStatus
	ErrorMessage string

	PublishedPlatforms []string
	CompletedAt        *time.Time
	CreatedAt          time.Time
}
