package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"autoreel/internal/adapter/repo"
	"autoreel/internal/autopilot"
	"autoreel/internal/chain"
	"autoreel/internal/infra"
	"autoreel/internal/providers/dashscope"
	"autoreel/internal/providers/narration"
	"autoreel/internal/providers/publisher"
	"autoreel/internal/providers/vision"
	"autoreel/internal/publish"
)

// Task types for the three independent periodic triggers. The autopilot and
// the reconciler deliberately do not share a loop; each runs to completion
// within its own tick.
const (
	taskAutopilotTick    = "autopilot:tick"
	taskChainPoll        = "chain:poll"
	taskPublishReconcile = "publish:reconcile"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	if err := infra.Migrate(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("worker: migrations failed")
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	jobs := repo.NewJobRepository(runner)
	configs := repo.NewConfigRepository(runner)
	history := repo.NewHistoryRepository(pool)
	products := repo.NewProductRepository(pool)
	publishJobs := repo.NewPublishRepository(pool)

	httpClient := &http.Client{Timeout: 60 * time.Second}

	imageClient, err := dashscope.NewClient(dashscope.Options{
		APIKey:     cfg.DashScopeAPIKey,
		BaseURL:    cfg.DashScopeBaseURL,
		Model:      cfg.ImageModel,
		Kind:       dashscope.TaskImage,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure image client")
	}
	videoClient, err := dashscope.NewClient(dashscope.Options{
		APIKey:     cfg.DashScopeAPIKey,
		BaseURL:    cfg.DashScopeBaseURL,
		Model:      cfg.VideoModel,
		Kind:       dashscope.TaskVideo,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure video client")
	}
	analyzer := vision.NewClient(vision.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.VisionModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	narrator := narration.NewClient(narration.Options{
		APIKey:     cfg.NarrationAPIKey,
		BaseURL:    cfg.NarrationBaseURL,
		Voice:      cfg.NarrationVoice,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	pub := publisher.NewClient(publisher.Options{
		APIKey:     cfg.PublisherAPIKey,
		BaseURL:    cfg.PublisherBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})

	orchestrator := chain.New(jobs, imageClient, videoClient, analyzer, logger)
	scheduler := autopilot.NewScheduler(configs, products, history, publishJobs, orchestrator, narrator, pub, logger)
	reconciler := publish.NewReconciler(publishJobs, pub, logger)

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to parse redis url")
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(taskAutopilotTick, func(ctx context.Context, t *asynq.Task) error {
		scheduler.RunDue(ctx)
		return nil
	})
	mux.HandleFunc(taskChainPoll, func(ctx context.Context, t *asynq.Task) error {
		for _, job := range orchestrator.PollProcessing(ctx) {
			finished := job
			scheduler.FinalizeJob(ctx, &finished)
		}
		for _, job := range orchestrator.SweepOrphanedIntents(ctx, cfg.OrphanIntentMaxAge) {
			orphan := job
			scheduler.FinalizeJob(ctx, &orphan)
		}
		return nil
	})
	mux.HandleFunc(taskPublishReconcile, func(ctx context.Context, t *asynq.Task) error {
		reconciler.Run(ctx)
		return nil
	})

	srv := asynq.NewServer(redisOpt, asynq.Config{
		// The three task types may run side by side; the fixed task ids below
		// keep two instances of the same type from ever running at once.
		Concurrency: 3,
		Logger:      &asynqLogger{logger: logger},
	})

	periodic := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: &asynqLogger{logger: logger}})
	entries := []struct {
		spec string
		task string
	}{
		{fmt.Sprintf("@every %s", cfg.AutopilotTickInterval), taskAutopilotTick},
		{fmt.Sprintf("@every %s", cfg.ChainPollInterval), taskChainPoll},
		{fmt.Sprintf("@every %s", cfg.ReconcileInterval), taskPublishReconcile},
	}
	for _, e := range entries {
		// A fixed task id per type: while one tick is still pending or
		// running, enqueueing the next is a duplicate and is dropped, so a
		// slow tick (provider timeouts) is never overlapped by the next one.
		if _, err := periodic.Register(e.spec, asynq.NewTask(e.task, nil), asynq.TaskID(e.task)); err != nil {
			logger.Fatal().Err(err).Str("task", e.task).Msg("worker: failed to register periodic task")
		}
	}

	if err := periodic.Start(); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to start periodic scheduler")
	}
	defer periodic.Shutdown()

	logger.Info().Msg("worker: started")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// asynqLogger adapts zerolog to the asynq.Logger interface.
type asynqLogger struct {
	logger infra.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
