package autopilot

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"autoreel/internal/chain"
	"autoreel/internal/domain"
	"autoreel/internal/infra"
	"autoreel/internal/providers/narration"
	"autoreel/internal/providers/publisher"
	"autoreel/internal/scene"
)

type fakeConfigRepo struct {
	due       []domain.AutopilotConfig
	byID      map[string]*domain.AutopilotConfig
	advanced  []time.Time
	increment int
	cycled    []bool
	events    *[]string
}

func (f *fakeConfigRepo) ListDue(ctx context.Context, now time.Time) ([]domain.AutopilotConfig, error) {
	return f.due, nil
}

func (f *fakeConfigRepo) List(ctx context.Context) ([]domain.AutopilotConfig, error) {
	return f.due, nil
}

func (f *fakeConfigRepo) GetByID(ctx context.Context, id string) (*domain.AutopilotConfig, error) {
	cfg, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeConfigRepo) AdvanceSchedule(ctx context.Context, configID string, next time.Time, generatedAt time.Time) error {
	f.advanced = append(f.advanced, next)
	if f.events != nil {
		*f.events = append(*f.events, "advance")
	}
	return nil
}

func (f *fakeConfigRepo) IncrementStats(ctx context.Context, configID string, poolCycled bool) error {
	f.increment++
	f.cycled = append(f.cycled, poolCycled)
	return nil
}

type fakeProductRepo struct {
	pool        []domain.Product
	used        []string
	deactivated []string
}

func (f *fakeProductRepo) ListActive(ctx context.Context, storeID string) ([]domain.Product, error) {
	return f.pool, nil
}

func (f *fakeProductRepo) MarkUsed(ctx context.Context, productID string, usedAt time.Time) error {
	f.used = append(f.used, productID)
	return nil
}

func (f *fakeProductRepo) Deactivate(ctx context.Context, productID string) error {
	f.deactivated = append(f.deactivated, productID)
	return nil
}

type fakeHistoryRepo struct {
	records map[string]*domain.HistoryRecord
	byAsset map[string]*domain.HistoryRecord
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{
		records: map[string]*domain.HistoryRecord{},
		byAsset: map[string]*domain.HistoryRecord{},
	}
}

func (f *fakeHistoryRepo) Create(ctx context.Context, rec *domain.HistoryRecord) error {
	clone := *rec
	f.records[rec.ID] = &clone
	if rec.MediaAssetID != "" {
		f.byAsset[rec.MediaAssetID] = &clone
	}
	return nil
}

func (f *fakeHistoryRepo) SetStatus(ctx context.Context, id string, status domain.HistoryStatus, errMsg string, mediaAssetID string) error {
	rec, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errMsg
	if mediaAssetID != "" {
		rec.MediaAssetID = mediaAssetID
		f.byAsset[mediaAssetID] = rec
	}
	return nil
}

func (f *fakeHistoryRepo) GetByMediaAsset(ctx context.Context, mediaAssetID string) (*domain.HistoryRecord, error) {
	rec, ok := f.byAsset[mediaAssetID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeHistoryRepo) AddPublishResult(ctx context.Context, id string, platform string) error {
	rec, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.PublishedPlatforms = append(rec.PublishedPlatforms, platform)
	return nil
}

func (f *fakeHistoryRepo) ListByConfig(ctx context.Context, configID string, limit int) ([]domain.HistoryRecord, error) {
	var out []domain.HistoryRecord
	for _, rec := range f.records {
		if rec.ConfigID == configID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) single(t *testing.T) *domain.HistoryRecord {
	t.Helper()
	if len(f.records) != 1 {
		t.Fatalf("history rows = %d, want 1", len(f.records))
	}
	for _, rec := range f.records {
		return rec
	}
	return nil
}

type fakePublishRepo struct {
	created  []domain.PublishJob
	inFlight []domain.PublishJob
}

func (f *fakePublishRepo) Create(ctx context.Context, job *domain.PublishJob) error {
	f.created = append(f.created, *job)
	return nil
}

func (f *fakePublishRepo) ListInFlight(ctx context.Context) ([]domain.PublishJob, error) {
	return f.inFlight, nil
}

func (f *fakePublishRepo) UpdateStatus(ctx context.Context, id string, status domain.PublishStatus, publicURL, errMsg string, publishedAt *time.Time) error {
	return nil
}

type fakeGenerator struct {
	chainCalls    []chain.Request
	composedCalls []chain.ComposedRequest
	err           error
	events        *[]string
}

func (f *fakeGenerator) StartImageGeneration(ctx context.Context, req chain.Request) (*domain.GenerationJob, error) {
	f.chainCalls = append(f.chainCalls, req)
	if f.events != nil {
		*f.events = append(*f.events, "generate")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.GenerationJob{ID: "job-1", ChainStage: domain.StageGeneratingImage}, nil
}

func (f *fakeGenerator) StartComposed(ctx context.Context, req chain.ComposedRequest) (*domain.GenerationJob, error) {
	f.composedCalls = append(f.composedCalls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.GenerationJob{ID: "job-1", ChainStage: domain.StageGeneratingVideo}, nil
}

type fakeSynthesizer struct {
	durations map[string]float64
	err       error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, locale string) (narration.Result, error) {
	if f.err != nil {
		return narration.Result{}, f.err
	}
	// Keyed by text so per-scene scripts can get distinct durations.
	d, ok := f.durations[text]
	if !ok {
		d = 8
	}
	return narration.Result{AudioURL: "https://cdn.example/clip.mp3", DurationSeconds: d}, nil
}

type fakePublisherAPI struct {
	scheduled   []publisher.ScheduleRequest
	scheduleErr map[string]error
	statuses    map[string]publisher.StatusResult
	nextID      int
}

func (f *fakePublisherAPI) Schedule(ctx context.Context, req publisher.ScheduleRequest) (string, error) {
	if err := f.scheduleErr[req.Platform]; err != nil {
		return "", err
	}
	f.scheduled = append(f.scheduled, req)
	f.nextID++
	return "remote-" + req.Platform, nil
}

func (f *fakePublisherAPI) Status(ctx context.Context, remoteJobID string) (publisher.StatusResult, error) {
	res, ok := f.statuses[remoteJobID]
	if !ok {
		return publisher.StatusResult{}, errors.New("unknown remote job")
	}
	return res, nil
}

type schedulerFixture struct {
	scheduler *Scheduler
	configs   *fakeConfigRepo
	products  *fakeProductRepo
	history   *fakeHistoryRepo
	publish   *fakePublishRepo
	generator *fakeGenerator
	publisher *fakePublisherAPI
	now       time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	fx := &schedulerFixture{
		configs:   &fakeConfigRepo{byID: map[string]*domain.AutopilotConfig{}},
		products:  &fakeProductRepo{},
		history:   newFakeHistoryRepo(),
		publish:   &fakePublishRepo{},
		generator: &fakeGenerator{},
		publisher: &fakePublisherAPI{scheduleErr: map[string]error{}, statuses: map[string]publisher.StatusResult{}},
		now:       time.Date(2026, 3, 10, 14, 23, 0, 0, time.UTC),
	}
	logger := infra.Logger(zerolog.New(io.Discard))
	fx.scheduler = NewScheduler(
		fx.configs,
		fx.products,
		fx.history,
		fx.publish,
		fx.generator,
		&fakeSynthesizer{},
		fx.publisher,
		logger,
	)
	fx.scheduler.now = func() time.Time { return fx.now }
	return fx
}

func runnableConfig(vpw int) *domain.AutopilotConfig {
	return &domain.AutopilotConfig{
		ID:             "cfg-1",
		StoreID:        "store-1",
		CadencePerWeek: vpw,
		Platforms:      []string{"tiktok", "instagram"},
		Mode:           domain.ModeChain,
		Locale:         "en-US",
		IsActive:       true,
		IsApproved:     true,
	}
}

func TestNextScheduled(t *testing.T) {
	from := time.Date(2026, 3, 10, 14, 23, 0, 0, time.UTC)
	tests := []struct {
		name string
		vpw  int
		want time.Time
	}{
		{"weekly", 1, time.Date(2026, 3, 17, 14, 0, 0, 0, time.UTC)},
		{"daily", 7, time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)},
		{"twice weekly", 2, time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := NextScheduled(tt.vpw, from)
		if err != nil {
			t.Fatalf("%s: NextScheduled error: %v", tt.name, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("%s: NextScheduled = %v, want %v", tt.name, got, tt.want)
		}
		if !got.After(from) {
			t.Fatalf("%s: NextScheduled %v not strictly after %v", tt.name, got, from)
		}
	}
}

func TestNextScheduledBumpsWhenTruncationLandsOnFrom(t *testing.T) {
	// Interval under an hour truncates back onto from; the result must still
	// land strictly after.
	from := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	got, err := NextScheduled(200, from)
	if err != nil {
		t.Fatalf("NextScheduled error: %v", err)
	}
	want := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextScheduled = %v, want %v", got, want)
	}
}

func TestNextScheduledRejectsInvalidCadence(t *testing.T) {
	for _, vpw := range []int{0, -1} {
		if _, err := NextScheduled(vpw, time.Now()); !errors.Is(err, domain.ErrInvalidCadence) {
			t.Fatalf("vpw=%d: err = %v, want ErrInvalidCadence", vpw, err)
		}
	}
}

func TestExecuteGenerationSuccess(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(7)
	fx.products.pool = []domain.Product{
		poolProduct("p1", 0, 0, nil),
	}

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	if len(fx.generator.chainCalls) != 1 {
		t.Fatalf("chain starts = %d, want 1", len(fx.generator.chainCalls))
	}
	req := fx.generator.chainCalls[0]
	if req.ProductID != "p1" || req.OwnerID != "store-1" || req.AspectRatio != "9:16" {
		t.Fatalf("unexpected chain request: %+v", req)
	}

	rec := fx.history.single(t)
	if rec.Status != domain.HistoryGenerating || rec.MediaAssetID != "job-1" {
		t.Fatalf("history = %+v, want generating with job-1", rec)
	}
	if len(fx.products.used) != 1 || fx.products.used[0] != "p1" {
		t.Fatalf("marked used = %v, want [p1]", fx.products.used)
	}
	if fx.configs.increment != 1 || !fx.configs.cycled[0] {
		t.Fatalf("stats increments = %d (cycled %v), want 1 with cycle", fx.configs.increment, fx.configs.cycled)
	}
	if len(fx.configs.advanced) != 1 {
		t.Fatalf("schedule advances = %d, want 1", len(fx.configs.advanced))
	}
	if !fx.configs.advanced[0].After(fx.now) {
		t.Fatalf("advanced to %v, not after %v", fx.configs.advanced[0], fx.now)
	}
}

func TestExecuteGenerationAdvancesScheduleBeforeGenerating(t *testing.T) {
	// A slow provider call must not leave the config still matching the due
	// query: the schedule moves forward before any generation work, so a
	// second tick that fires mid-attempt cannot pick the config up again.
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(7)
	fx.products.pool = []domain.Product{poolProduct("p1", 0, 0, nil)}

	var events []string
	fx.configs.events = &events
	fx.generator.events = &events

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	if len(events) != 2 || events[0] != "advance" || events[1] != "generate" {
		t.Fatalf("events = %v, want schedule advanced before generation", events)
	}
	if !cfg.NextScheduledAt.After(fx.now) {
		t.Fatalf("config still due after claim: next %v, now %v", cfg.NextScheduledAt, fx.now)
	}
}

func TestExecuteGenerationProviderFailureAdvancesSchedule(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(7)
	fx.products.pool = []domain.Product{poolProduct("p1", 0, 0, nil)}
	fx.generator.err = domain.ErrProviderFailure

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	rec := fx.history.single(t)
	if rec.Status != domain.HistoryFailed {
		t.Fatalf("history status = %s, want failed", rec.Status)
	}
	if rec.ErrorMessage == "" {
		t.Fatalf("failed history row missing error message")
	}
	if len(fx.products.used) != 0 {
		t.Fatalf("failed attempt marked product used: %v", fx.products.used)
	}
	if fx.configs.increment != 0 {
		t.Fatalf("failed attempt incremented stats")
	}
	// Daily cadence still advances roughly one day despite the failure.
	if len(fx.configs.advanced) != 1 {
		t.Fatalf("schedule advances = %d, want 1", len(fx.configs.advanced))
	}
	gap := fx.configs.advanced[0].Sub(fx.now)
	if gap < 23*time.Hour || gap > 25*time.Hour {
		t.Fatalf("advance gap = %v, want about one day", gap)
	}
}

func TestExecuteGenerationInsufficientImagesDeactivates(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(1)
	thin := poolProduct("p1", 0, 0, nil)
	thin.Images = []string{"only.jpg"}
	fx.products.pool = []domain.Product{thin}

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	if len(fx.products.deactivated) != 1 || fx.products.deactivated[0] != "p1" {
		t.Fatalf("deactivated = %v, want [p1]", fx.products.deactivated)
	}
	rec := fx.history.single(t)
	if rec.Status != domain.HistoryFailed || rec.ErrorMessage != domain.ErrInsufficientImages.Error() {
		t.Fatalf("history = %+v, want failed/insufficient images", rec)
	}
	if len(fx.generator.chainCalls) != 0 {
		t.Fatalf("generation started for ineligible product")
	}
	if len(fx.configs.advanced) != 1 {
		t.Fatalf("schedule advances = %d, want 1", len(fx.configs.advanced))
	}
}

func TestExecuteGenerationEmptyPool(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(1)

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	rec := fx.history.single(t)
	if rec.Status != domain.HistoryFailed || rec.ErrorMessage != domain.ErrPoolExhausted.Error() {
		t.Fatalf("history = %+v, want failed/pool exhausted", rec)
	}
	if len(fx.configs.advanced) != 1 {
		t.Fatalf("schedule advances = %d, want 1", len(fx.configs.advanced))
	}
}

func TestExecuteGenerationSkipsUnrunnableConfig(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(1)
	cfg.IsApproved = false
	fx.products.pool = []domain.Product{poolProduct("p1", 0, 0, nil)}

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	if len(fx.generator.chainCalls) != 0 || len(fx.history.records) != 0 || len(fx.configs.advanced) != 0 {
		t.Fatalf("unrunnable config produced side effects")
	}
}

func TestExecuteGenerationComposedMode(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(1)
	cfg.Mode = domain.ModeComposed
	fx.products.pool = []domain.Product{poolProduct("p1", 0, 0, nil)}

	fx.scheduler.ExecuteGeneration(context.Background(), cfg)

	if len(fx.generator.composedCalls) != 1 {
		t.Fatalf("composed starts = %d, want 1", len(fx.generator.composedCalls))
	}
	req := fx.generator.composedCalls[0]
	if !strings.Contains(req.Prompt, "Product p1") || strings.Contains(req.Prompt, "product photo") {
		t.Fatalf("composed prompt not in video register: %q", req.Prompt)
	}
	if req.ScenePlan == nil {
		t.Fatalf("composed request missing scene plan")
	}
	if fps, ok := req.ScenePlan["fps"].(int); !ok || fps != scene.FPS {
		t.Fatalf("scene plan fps = %v, want %d", req.ScenePlan["fps"], scene.FPS)
	}
	rec := fx.history.single(t)
	if rec.Status != domain.HistoryGenerating {
		t.Fatalf("history status = %s, want generating", rec.Status)
	}
}

func TestFinalizeJobCompletedSchedulesAllPlatforms(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(1)
	fx.configs.byID[cfg.ID] = cfg
	rec := &domain.HistoryRecord{
		ID:           "hist-1",
		ConfigID:     cfg.ID,
		ProductID:    "p1",
		MediaAssetID: "job-1",
		Status:       domain.HistoryGenerating,
		CreatedAt:    fx.now,
	}
	if err := fx.history.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	job := &domain.GenerationJob{
		ID:           "job-1",
		ProductTitle: "Walnut Desk",
		ChainStage:   domain.StageCompleted,
		ResultURLs:   []string{"https://cdn.example/video.mp4"},
	}
	fx.scheduler.FinalizeJob(context.Background(), job)

	got := fx.history.records["hist-1"]
	if got.Status != domain.HistoryReady {
		t.Fatalf("history status = %s, want ready", got.Status)
	}
	if len(fx.publisher.scheduled) != 2 {
		t.Fatalf("publish schedules = %d, want 2", len(fx.publisher.scheduled))
	}
	if len(fx.publish.created) != 2 {
		t.Fatalf("publish jobs persisted = %d, want 2", len(fx.publish.created))
	}
	for _, pj := range fx.publish.created {
		if pj.Status != domain.PublishScheduled || pj.HistoryID != "hist-1" || pj.RemoteJobID == "" {
			t.Fatalf("unexpected publish job: %+v", pj)
		}
	}
	if len(got.PublishedPlatforms) != 2 {
		t.Fatalf("published platforms = %v, want both", got.PublishedPlatforms)
	}
}

func TestFinalizeJobOnePlatformFailureDoesNotAbortOthers(t *testing.T) {
	fx := newSchedulerFixture(t)
	cfg := runnableConfig(1)
	fx.configs.byID[cfg.ID] = cfg
	fx.publisher.scheduleErr["tiktok"] = errors.New("provider down")
	rec := &domain.HistoryRecord{
		ID:           "hist-1",
		ConfigID:     cfg.ID,
		MediaAssetID: "job-1",
		Status:       domain.HistoryGenerating,
		CreatedAt:    fx.now,
	}
	if err := fx.history.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	job := &domain.GenerationJob{
		ID:         "job-1",
		ChainStage: domain.StageCompleted,
		ResultURLs: []string{"https://cdn.example/video.mp4"},
	}
	fx.scheduler.FinalizeJob(context.Background(), job)

	if len(fx.publish.created) != 1 || fx.publish.created[0].Platform != "instagram" {
		t.Fatalf("publish jobs = %+v, want instagram only", fx.publish.created)
	}
}

func TestFinalizeJobFailedChain(t *testing.T) {
	fx := newSchedulerFixture(t)
	rec := &domain.HistoryRecord{
		ID:           "hist-1",
		ConfigID:     "cfg-1",
		MediaAssetID: "job-1",
		Status:       domain.HistoryGenerating,
		CreatedAt:    fx.now,
	}
	if err := fx.history.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	job := &domain.GenerationJob{
		ID:           "job-1",
		ChainStage:   domain.StageError,
		ErrorMessage: "video submit rejected",
	}
	fx.scheduler.FinalizeJob(context.Background(), job)

	got := fx.history.records["hist-1"]
	if got.Status != domain.HistoryFailed || got.ErrorMessage != "video submit rejected" {
		t.Fatalf("history = %+v, want failed with message", got)
	}
	if len(fx.publisher.scheduled) != 0 {
		t.Fatalf("failed chain scheduled publishes: %v", fx.publisher.scheduled)
	}
}

func TestFinalizeJobWithoutHistoryIsNoop(t *testing.T) {
	fx := newSchedulerFixture(t)
	job := &domain.GenerationJob{
		ID:         "manual-job",
		ChainStage: domain.StageCompleted,
		ResultURLs: []string{"https://cdn.example/video.mp4"},
	}
	fx.scheduler.FinalizeJob(context.Background(), job)
	if len(fx.publisher.scheduled) != 0 || len(fx.publish.created) != 0 {
		t.Fatalf("job without history produced publishes")
	}
}
