// Package chain drives a generation job through the fixed provider sequence
// image -> analysis -> video. Both provider calls are asynchronous (submit
// now, poll later); polling happens on an external re-invocation, never by
// blocking in-process.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoreel/internal/domain"
	"autoreel/internal/infra"
	"autoreel/internal/providers/mediajob"
	"autoreel/internal/providers/vision"
)

// Request carries the variables a chained generation starts from.
type Request struct {
	OwnerID       string
	ProductID     string
	ProductTitle  string
	ProductPrice  string
	ProductImages []string
	Locale        string
	AspectRatio   string
	Provider      string
}

// ComposedRequest starts a single-stage video job whose payload embeds a
// precomputed scene plan instead of running the full chain.
type ComposedRequest struct {
	OwnerID     string
	Prompt      string
	AspectRatio string
	Provider    string
	// ScenePlan is attached verbatim to the provider payload. The rendering
	// side consumes it; this core only guarantees the timings inside it.
	ScenePlan map[string]any
}

// Orchestrator owns the chain state of generation jobs. All collaborators
// are injected; there are no package-level service objects.
type Orchestrator struct {
	jobs   domain.JobRepository
	image  mediajob.Client
	video  mediajob.Client
	vision vision.Analyzer
	logger infra.Logger
	now    func() time.Time
}

// New wires an orchestrator.
func New(jobs domain.JobRepository, image, video mediajob.Client, analyzer vision.Analyzer, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   jobs,
		image:  image,
		video:  video,
		vision: analyzer,
		logger: logger,
		now:    time.Now,
	}
}

// StartImageGeneration accepts a chained generation request: it persists the
// job with a submit intent before talking to the provider, submits the image
// stage, and records the returned external job id. A crash between submit
// and the final persist leaves a discoverable intent for the orphan sweep
// rather than a silently leaked provider job.
func (o *Orchestrator) StartImageGeneration(ctx context.Context, req Request) (*domain.GenerationJob, error) {
	now := o.now()
	job := &domain.GenerationJob{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Provider:       req.Provider,
		Kind:           domain.JobKindImage,
		Status:         domain.JobStatusProcessing,
		ProductID:      req.ProductID,
		ProductTitle:   req.ProductTitle,
		Locale:         req.Locale,
		AspectRatio:    req.AspectRatio,
		SubmitIntentAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := job.Transition(domain.StageGeneratingImage); err != nil {
		return nil, err
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job intent: %w", err)
	}

	prompt := BuildImagePrompt(req)
	externalID, err := o.image.Submit(ctx, mediajob.SubmitRequest{
		Prompt:      prompt,
		AspectRatio: req.AspectRatio,
		RequestID:   job.ID,
	})
	if err != nil {
		o.failJob(ctx, job, domain.StageGeneratingImage, fmt.Sprintf("image submit: %v", err))
		return job, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	started := o.now()
	job.ExternalJobID = externalID
	job.ImageStartedAt = &started
	job.SubmitIntentAt = nil
	if err := o.jobs.Update(ctx, job); err != nil {
		return job, fmt.Errorf("persist job after submit: %w", err)
	}
	o.logger.Info().
		Str("job_id", job.ID).
		Str("external_job_id", externalID).
		Msg("chain: image generation submitted")
	return job, nil
}

// StartComposed accepts a single-stage video request carrying a scene plan.
// The job enters the chain directly at generating_video and is finished by
// the same CheckVideoStatus poll as chained jobs.
func (o *Orchestrator) StartComposed(ctx context.Context, req ComposedRequest) (*domain.GenerationJob, error) {
	now := o.now()
	job := &domain.GenerationJob{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Provider:       req.Provider,
		Kind:           domain.JobKindVideo,
		Status:         domain.JobStatusProcessing,
		AspectRatio:    req.AspectRatio,
		VideoPrompt:    req.Prompt,
		SubmitIntentAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := job.Transition(domain.StageGeneratingVideo); err != nil {
		return nil, err
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job intent: %w", err)
	}

	externalID, err := o.video.Submit(ctx, mediajob.SubmitRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Payload:     req.ScenePlan,
		RequestID:   job.ID,
	})
	if err != nil {
		o.failJob(ctx, job, domain.StageGeneratingVideo, fmt.Sprintf("video submit: %v", err))
		return job, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	started := o.now()
	job.ExternalJobID = externalID
	job.VideoStartedAt = &started
	job.SubmitIntentAt = nil
	if err := o.jobs.Update(ctx, job); err != nil {
		return job, fmt.Errorf("persist job after submit: %w", err)
	}
	o.logger.Info().
		Str("job_id", job.ID).
		Str("external_job_id", externalID).
		Msg("chain: composed video submitted")
	return job, nil
}

// CheckImageStatus polls the outstanding image job. It is a no-op unless the
// job sits in generating_image, so a single external poller may call it
// unconditionally on every job. Safe to call repeatedly: an inconclusive
// provider answer changes nothing.
func (o *Orchestrator) CheckImageStatus(ctx context.Context, job *domain.GenerationJob) error {
	if job.ChainStage != domain.StageGeneratingImage || job.ExternalJobID == "" {
		return nil
	}
	result, err := o.image.Poll(ctx, job.ExternalJobID)
	if err != nil {
		// Unreachable provider is inconclusive, not terminal; the next
		// tick re-polls.
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("chain: image poll failed")
		return nil
	}
	switch result.Status {
	case mediajob.StatusFailed:
		o.failJob(ctx, job, domain.StageGeneratingImage, result.Message)
		return nil
	case mediajob.StatusReady:
		if len(result.ResultURLs) == 0 {
			o.failJob(ctx, job, domain.StageGeneratingImage, "provider returned no image url")
			return nil
		}
		return o.analyzeImage(ctx, job, result.ResultURLs[0])
	default:
		return nil
	}
}

// analyzeImage bridges the image and video stages: it describes the generated
// image and uses the description to build the video prompt. Any failure here
// fails the whole job; the spent image cost is not retried and no partial
// success is surfaced.
func (o *Orchestrator) analyzeImage(ctx context.Context, job *domain.GenerationJob, imageURL string) error {
	if err := job.Transition(domain.StageAnalyzingImage); err != nil {
		return err
	}
	job.ImageURL = imageURL
	job.ExternalJobID = ""
	if err := o.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist analysis stage: %w", err)
	}

	analysis, err := o.vision.Analyze(ctx, imageURL, analysisInstructions)
	if err != nil {
		o.failJob(ctx, job, domain.StageAnalyzingImage, fmt.Sprintf("analysis: %v", err))
		return nil
	}
	job.AnalysisText = analysis
	return o.startVideoGeneration(ctx, job, BuildVideoPrompt(job.ProductTitle, analysis), imageURL)
}

// startVideoGeneration submits the video stage using the generated image as
// a visual reference. The job's kind flips to video and its external handle
// is replaced.
func (o *Orchestrator) startVideoGeneration(ctx context.Context, job *domain.GenerationJob, prompt, referenceImageURL string) error {
	if err := job.Transition(domain.StageGeneratingVideo); err != nil {
		return err
	}
	now := o.now()
	job.Kind = domain.JobKindVideo
	job.VideoPrompt = prompt
	job.SubmitIntentAt = &now
	if err := o.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist video intent: %w", err)
	}

	externalID, err := o.video.Submit(ctx, mediajob.SubmitRequest{
		Prompt:            prompt,
		ReferenceImageURL: referenceImageURL,
		RequestID:         job.ID,
	})
	if err != nil {
		o.failJob(ctx, job, domain.StageGeneratingVideo, fmt.Sprintf("video submit: %v", err))
		return nil
	}

	started := o.now()
	job.ExternalJobID = externalID
	job.VideoStartedAt = &started
	job.SubmitIntentAt = nil
	if err := o.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist job after video submit: %w", err)
	}
	o.logger.Info().
		Str("job_id", job.ID).
		Str("external_job_id", externalID).
		Msg("chain: video generation submitted")
	return nil
}

// CheckVideoStatus polls the outstanding video job, symmetric to
// CheckImageStatus. On success the job completes and exposes its result
// URLs through the coarse projection.
func (o *Orchestrator) CheckVideoStatus(ctx context.Context, job *domain.GenerationJob) error {
	if job.ChainStage != domain.StageGeneratingVideo || job.ExternalJobID == "" {
		return nil
	}
	result, err := o.video.Poll(ctx, job.ExternalJobID)
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("chain: video poll failed")
		return nil
	}
	switch result.Status {
	case mediajob.StatusFailed:
		o.failJob(ctx, job, domain.StageGeneratingVideo, result.Message)
		return nil
	case mediajob.StatusReady:
		if len(result.ResultURLs) == 0 {
			o.failJob(ctx, job, domain.StageGeneratingVideo, "provider returned no video url")
			return nil
		}
		if err := job.Transition(domain.StageCompleted); err != nil {
			return err
		}
		now := o.now()
		job.Status = domain.JobStatusReady
		job.ResultURLs = result.ResultURLs
		job.CompletedAt = &now
		if err := o.jobs.Update(ctx, job); err != nil {
			return fmt.Errorf("persist completed job: %w", err)
		}
		o.logger.Info().Str("job_id", job.ID).Msg("chain: completed")
		return nil
	default:
		return nil
	}
}

// failJob is the single funnel for every failure path. Calling it on an
// already-errored job only overwrites the message; a completed job is left
// untouched.
func (o *Orchestrator) failJob(ctx context.Context, job *domain.GenerationJob, stage domain.ChainStage, message string) {
	if job.ChainStage == domain.StageCompleted {
		return
	}
	if job.ChainStage != domain.StageError {
		if err := job.Transition(domain.StageError); err != nil {
			o.logger.Error().Err(err).Str("job_id", job.ID).Msg("chain: error transition rejected")
			return
		}
		job.ErrorStage = stage
	}
	job.Status = domain.JobStatusError
	job.ErrorMessage = message
	if err := o.jobs.Update(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("chain: persist error state failed")
		return
	}
	o.logger.Warn().
		Str("job_id", job.ID).
		Str("stage", string(stage)).
		Str("reason", message).
		Msg("chain: job failed")
}

// PollProcessing runs both status checks over every non-terminal job. The
// state machine self-selects which check applies, so no branching on job
// kind happens here. Jobs that turned terminal during this pass are
// returned; a failure on one job never stops the rest.
func (o *Orchestrator) PollProcessing(ctx context.Context) []domain.GenerationJob {
	jobs, err := o.jobs.ListProcessing(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("chain: list processing jobs failed")
		return nil
	}
	var finished []domain.GenerationJob
	for i := range jobs {
		job := &jobs[i]
		if err := o.CheckImageStatus(ctx, job); err != nil {
			o.logger.Error().Err(err).Str("job_id", job.ID).Msg("chain: image check failed")
			continue
		}
		if err := o.CheckVideoStatus(ctx, job); err != nil {
			o.logger.Error().Err(err).Str("job_id", job.ID).Msg("chain: video check failed")
			continue
		}
		if job.ChainStage.Terminal() {
			finished = append(finished, *job)
		}
	}
	return finished
}

// SweepOrphanedIntents fails jobs that recorded a submit intent but never an
// external job id within the cutoff window, surfacing a crash between submit
// and persist as a discoverable error instead of a silent leak.
func (o *Orchestrator) SweepOrphanedIntents(ctx context.Context, maxAge time.Duration) []domain.GenerationJob {
	cutoff := o.now().Add(-maxAge)
	orphans, err := o.jobs.ListOrphanedIntents(ctx, cutoff)
	if err != nil {
		o.logger.Error().Err(err).Msg("chain: list orphaned intents failed")
		return nil
	}
	var failed []domain.GenerationJob
	for i := range orphans {
		job := &orphans[i]
		o.failJob(ctx, job, job.ChainStage, "submit intent never confirmed; provider job may be orphaned")
		failed = append(failed, *job)
	}
	if len(failed) > 0 {
		o.logger.Warn().Int("count", len(failed)).Msg("chain: swept orphaned submit intents")
	}
	return failed
}
