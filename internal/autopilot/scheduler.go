// Package autopilot decides when and for what product to generate next,
// independent of the chain internals, and records every attempt in the
// generation history.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoreel/internal/chain"
	"autoreel/internal/domain"
	"autoreel/internal/infra"
	"autoreel/internal/providers/narration"
	"autoreel/internal/providers/publisher"
	"autoreel/internal/scene"
)

// Generator starts generation jobs. Satisfied by *chain.Orchestrator.
type Generator interface {
	StartImageGeneration(ctx context.Context, req chain.Request) (*domain.GenerationJob, error)
	StartComposed(ctx context.Context, req chain.ComposedRequest) (*domain.GenerationJob, error)
}

// Scheduler runs the autopilot cadence: due-work discovery, fair product
// rotation, generation kickoff and history bookkeeping. One Run covers one
// periodic trigger invocation.
type Scheduler struct {
	configs  domain.ConfigRepository
	products domain.ProductRepository
	history  domain.HistoryRepository
	publish  domain.PublishRepository

	generator Generator
	narrator  narration.Synthesizer
	publisher publisher.API
	timing    *scene.Calculator

	logger infra.Logger
	now    func() time.Time
}

// NewScheduler wires a scheduler. The narrator may be nil; composed-mode
// scenes then fall back to their default durations.
func NewScheduler(
	configs domain.ConfigRepository,
	products domain.ProductRepository,
	history domain.HistoryRepository,
	publish domain.PublishRepository,
	generator Generator,
	narrator narration.Synthesizer,
	pub publisher.API,
	logger infra.Logger,
) *Scheduler {
	return &Scheduler{
		configs:   configs,
		products:  products,
		history:   history,
		publish:   publish,
		generator: generator,
		narrator:  narrator,
		publisher: pub,
		timing:    scene.NewCalculator(),
		logger:    logger,
		now:       time.Now,
	}
}

// NextScheduled computes the next run time: from + 7/videosPerWeek days,
// rounded down to the top of the hour, bumped forward one hour if the
// rounding would not land strictly after from.
func NextScheduled(videosPerWeek int, from time.Time) (time.Time, error) {
	if videosPerWeek <= 0 {
		return time.Time{}, domain.ErrInvalidCadence
	}
	interval := time.Duration(float64(7*24*time.Hour) / float64(videosPerWeek))
	next := from.Add(interval).Truncate(time.Hour)
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next, nil
}

// RunDue processes every due config sequentially. A failure on one config
// never aborts the rest of the batch.
func (s *Scheduler) RunDue(ctx context.Context) {
	now := s.now()
	due, err := s.configs.ListDue(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("autopilot: list due configs failed")
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Info().Int("count", len(due)).Msg("autopilot: processing due configs")
	for i := range due {
		s.ExecuteGeneration(ctx, &due[i])
	}
}

// ExecuteGeneration runs one generation attempt for one config. The schedule
// advances by the normal cadence FIRST, before any provider work: a claimed
// config is no longer due, so an overlapping tick cannot pick it up again and
// double-generate. Every failure path after that is recorded in history; the
// next cadence tick is the retry, so a broken provider cannot cause a retry
// storm.
func (s *Scheduler) ExecuteGeneration(ctx context.Context, cfg *domain.AutopilotConfig) {
	if !cfg.Runnable() {
		s.logger.Warn().Str("config_id", cfg.ID).Msg("autopilot: config not runnable, skipping")
		return
	}
	if cfg.CadencePerWeek <= 0 {
		// Configuration error; rejected here rather than at computation time.
		s.logger.Error().Str("config_id", cfg.ID).Msg("autopilot: invalid cadence, skipping")
		return
	}
	s.advance(ctx, cfg)

	pool, err := s.products.ListActive(ctx, cfg.StoreID)
	if err != nil {
		s.logger.Error().Err(err).Str("config_id", cfg.ID).Msg("autopilot: list products failed")
		return
	}
	product := NextProduct(pool)
	if product == nil {
		s.recordFailure(ctx, cfg, "", "", domain.ErrPoolExhausted.Error())
		return
	}

	if len(product.Images) < domain.MinProductImages {
		// Deactivate so the product stops recurring until an operator fixes
		// it; the attempt fails but the schedule has already advanced.
		if err := s.products.Deactivate(ctx, product.ID); err != nil {
			s.logger.Error().Err(err).Str("product_id", product.ID).Msg("autopilot: deactivate product failed")
		}
		s.recordFailure(ctx, cfg, product.ID, "", domain.ErrInsufficientImages.Error())
		s.logger.Warn().
			Str("config_id", cfg.ID).
			Str("product_id", product.ID).
			Msg("autopilot: product deactivated, insufficient images")
		return
	}

	rec := &domain.HistoryRecord{
		ID:        uuid.NewString(),
		ConfigID:  cfg.ID,
		ProductID: product.ID,
		Status:    domain.HistoryPending,
		CreatedAt: s.now(),
	}
	if err := s.history.Create(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("config_id", cfg.ID).Msg("autopilot: create history failed")
		return
	}

	job, err := s.startGeneration(ctx, cfg, product)
	if err != nil {
		jobID := ""
		if job != nil {
			jobID = job.ID
		}
		if histErr := s.history.SetStatus(ctx, rec.ID, domain.HistoryFailed, err.Error(), jobID); histErr != nil {
			s.logger.Error().Err(histErr).Str("history_id", rec.ID).Msg("autopilot: finalize history failed")
		}
		s.logger.Warn().Err(err).
			Str("config_id", cfg.ID).
			Str("product_id", product.ID).
			Msg("autopilot: generation attempt failed")
		return
	}

	if err := s.history.SetStatus(ctx, rec.ID, domain.HistoryGenerating, "", job.ID); err != nil {
		s.logger.Error().Err(err).Str("history_id", rec.ID).Msg("autopilot: update history failed")
	}
	if err := s.products.MarkUsed(ctx, product.ID, s.now()); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID).Msg("autopilot: mark product used failed")
	}
	if err := s.configs.IncrementStats(ctx, cfg.ID, CompletesCycle(pool, product.ID)); err != nil {
		s.logger.Error().Err(err).Str("config_id", cfg.ID).Msg("autopilot: increment stats failed")
	}
	s.logger.Info().
		Str("config_id", cfg.ID).
		Str("product_id", product.ID).
		Str("job_id", job.ID).
		Msg("autopilot: generation started")
}

func (s *Scheduler) startGeneration(ctx context.Context, cfg *domain.AutopilotConfig, product *domain.Product) (*domain.GenerationJob, error) {
	switch cfg.Mode {
	case domain.ModeComposed:
		return s.startComposed(ctx, cfg, product)
	default:
		return s.generator.StartImageGeneration(ctx, chain.Request{
			OwnerID:       cfg.StoreID,
			ProductID:     product.ID,
			ProductTitle:  product.Title,
			ProductPrice:  product.Price,
			ProductImages: product.Images,
			Locale:        cfg.Locale,
			AspectRatio:   "9:16",
		})
	}
}

// startComposed synthesizes per-scene narration, computes clamped scene
// timings and submits one video job carrying the resulting scene plan.
func (s *Scheduler) startComposed(ctx context.Context, cfg *domain.AutopilotConfig, product *domain.Product) (*domain.GenerationJob, error) {
	scripts := narrationScripts(product)
	results := make(map[string]scene.Narration, len(scripts))
	for name, text := range scripts {
		if s.narrator == nil {
			break
		}
		res, err := s.narrator.Synthesize(ctx, text, cfg.Locale)
		if err != nil {
			// Degrades to the scene default; the composition still renders.
			s.logger.Warn().Err(err).Str("scene", name).Msg("autopilot: narration failed, using default duration")
			continue
		}
		results[name] = scene.Narration{AudioURL: res.AudioURL, DurationSeconds: res.DurationSeconds, OK: true}
	}

	plan := s.timing.Build(results, map[string]float64{"intro": 4})
	plan = s.timing.AdjustToTarget(plan)
	if err := s.timing.ValidateTotal(plan); err != nil {
		s.logger.Warn().Err(err).Str("config_id", cfg.ID).Msg("autopilot: scene plan off window")
	}

	return s.generator.StartComposed(ctx, chain.ComposedRequest{
		OwnerID:     cfg.StoreID,
		Prompt:      chain.BuildComposedVideoPrompt(product.Title, product.Price, cfg.Locale),
		AspectRatio: "9:16",
		ScenePlan:   scenePlanPayload(plan, results, product),
	})
}

func scenePlanPayload(plan scene.Plan, results map[string]scene.Narration, product *domain.Product) map[string]any {
	scenes := make([]map[string]any, 0, len(plan.Scenes))
	for _, d := range plan.Scenes {
		entry := map[string]any{
			"name":    d.Name,
			"seconds": d.Seconds,
			"frames":  d.Frames,
		}
		if n, ok := results[d.Name]; ok && n.OK {
			entry["audio_url"] = n.AudioURL
		}
		scenes = append(scenes, entry)
	}
	return map[string]any{
		"fps":            scene.FPS,
		"scenes":         scenes,
		"product_images": product.Images,
	}
}

// narrationScripts renders the per-scene voice-over texts for a product.
func narrationScripts(product *domain.Product) map[string]string {
	title := product.Title
	scripts := map[string]string{
		"problem":      fmt.Sprintf("Still searching for the right %s? Most options out there just don't deliver.", title),
		"features":     fmt.Sprintf("%s changes that. Carefully made, built to last, and designed around how you actually use it every day.", title),
		"social_proof": fmt.Sprintf("Customers keep coming back to %s, and the reviews speak for themselves.", title),
		"cta":          "Tap the link to get yours today.",
	}
	if product.Price != "" {
		scripts["cta"] = fmt.Sprintf("Get yours now for just %s. Tap the link before it's gone.", product.Price)
	}
	return scripts
}

// recordFailure appends a failed history row for an attempt that never
// produced a job.
func (s *Scheduler) recordFailure(ctx context.Context, cfg *domain.AutopilotConfig, productID, jobID, message string) {
	rec := &domain.HistoryRecord{
		ID:           uuid.NewString(),
		ConfigID:     cfg.ID,
		ProductID:    productID,
		MediaAssetID: jobID,
		Status:       domain.HistoryFailed,
		ErrorMessage: message,
		CreatedAt:    s.now(),
	}
	if err := s.history.Create(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("config_id", cfg.ID).Msg("autopilot: record failure failed")
	}
}

// advance moves nextScheduledAt forward by the normal cadence. It runs at
// claim time, before the attempt, so a config being processed is never due
// again and a failed attempt never stalls the schedule.
func (s *Scheduler) advance(ctx context.Context, cfg *domain.AutopilotConfig) {
	now := s.now()
	next, err := NextScheduled(cfg.CadencePerWeek, now)
	if err != nil {
		s.logger.Error().Err(err).Str("config_id", cfg.ID).Msg("autopilot: cadence computation failed")
		return
	}
	if err := s.configs.AdvanceSchedule(ctx, cfg.ID, next, now); err != nil {
		s.logger.Error().Err(err).Str("config_id", cfg.ID).Msg("autopilot: advance schedule failed")
		return
	}
	cfg.NextScheduledAt = next
	cfg.LastGeneratedAt = &now
}

// FinalizeJob settles history and publishing for a job that turned terminal
// during a poll pass. Completed jobs are handed to the publishing provider
// for every configured platform; failures are logged per platform and never
// abort the others.
func (s *Scheduler) FinalizeJob(ctx context.Context, job *domain.GenerationJob) {
	rec, err := s.history.GetByMediaAsset(ctx, job.ID)
	if err != nil {
		// Jobs started outside the autopilot have no history row.
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("autopilot: history lookup failed")
		}
		return
	}

	if job.ChainStage == domain.StageError {
		if err := s.history.SetStatus(ctx, rec.ID, domain.HistoryFailed, job.ErrorMessage, job.ID); err != nil {
			s.logger.Error().Err(err).Str("history_id", rec.ID).Msg("autopilot: finalize history failed")
		}
		return
	}
	if job.ChainStage != domain.StageCompleted || len(job.ResultURLs) == 0 {
		return
	}
	if err := s.history.SetStatus(ctx, rec.ID, domain.HistoryReady, "", job.ID); err != nil {
		s.logger.Error().Err(err).Str("history_id", rec.ID).Msg("autopilot: finalize history failed")
	}

	cfg, err := s.configs.GetByID(ctx, rec.ConfigID)
	if err != nil {
		s.logger.Error().Err(err).Str("config_id", rec.ConfigID).Msg("autopilot: config lookup failed")
		return
	}
	videoURL := job.ResultURLs[0]
	for _, platform := range cfg.Platforms {
		remoteID, err := s.publisher.Schedule(ctx, publisher.ScheduleRequest{
			Platform: platform,
			VideoURL: videoURL,
			Caption:  job.ProductTitle,
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Str("platform", platform).
				Msg("autopilot: publish scheduling failed")
			continue
		}
		now := s.now()
		pubJob := &domain.PublishJob{
			ID:          uuid.NewString(),
			HistoryID:   rec.ID,
			Platform:    platform,
			RemoteJobID: remoteID,
			Status:      domain.PublishScheduled,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.publish.Create(ctx, pubJob); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("autopilot: persist publish job failed")
			continue
		}
		if err := s.history.AddPublishResult(ctx, rec.ID, platform); err != nil {
			s.logger.Error().Err(err).Str("history_id", rec.ID).Msg("autopilot: record publish result failed")
		}
	}
}
