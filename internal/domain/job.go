package domain

import "time"

// JobKind enumerates the media kind a generation job currently produces. A
// chained job starts as an image job and becomes a video job once the video
// stage is submitted.
type JobKind string

const (
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

// JobStatus is the coarse, user-facing projection of a job's lifecycle.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusError      JobStatus = "error"
)

// ChainStage is the fine-grained stage of the generation chain. It is owned
// exclusively by the chain orchestrator; collaborators only see JobStatus.
type ChainStage string

const (
	StageGeneratingImage ChainStage = "generating_image"
	StageAnalyzingImage  ChainStage = "analyzing_image"
	StageGeneratingVideo ChainStage = "generating_video"
	StageCompleted       ChainStage = "completed"
	StageError           ChainStage = "error"
)

// chainTransitions is the exhaustive set of legal stage transitions. Anything
// not listed is rejected with ErrIllegalTransition.
var chainTransitions = map[ChainStage][]ChainStage{
	StageGeneratingImage: {StageAnalyzingImage, StageError},
	StageAnalyzingImage:  {StageGeneratingVideo, StageError},
	StageGeneratingVideo: {StageCompleted, StageError},
	StageCompleted:       {},
	StageError:           {},
}

// CanTransition reports whether moving from one chain stage to another is
// legal. The zero stage enters at generating_image for chained jobs, or
// directly at generating_video for composed single-stage jobs.
func CanTransition(from, to ChainStage) bool {
	if from == "" {
		return to == StageGeneratingImage || to == StageGeneratingVideo
	}
	for _, next := range chainTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a stage admits no further transitions.
func (s ChainStage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// GenerationJob is one user-visible unit of generated output, driven through
// the provider chain by the orchestrator. It is created when a generation
// request is accepted and never deleted by this core.
type GenerationJob struct {
	ID      string
	OwnerID string

	Provider string
	Kind     JobKind
	Status   JobStatus

	// Prompt context captured at acceptance time so later chain stages can
	// rebuild prompts without refetching the product.
	ProductID    string
	ProductTitle string
	Locale       string
	AspectRatio  string

	// ExternalJobID holds the currently outstanding provider-side handle.
	// It is replaced at each chain stage.
	ExternalJobID string

	ChainStage   ChainStage
	ImageURL     string
	AnalysisText string
	VideoPrompt  string

	// SubmitIntentAt marks that a provider submission was about to happen.
	// A job carrying an old intent with no external id is an orphan candidate.
	SubmitIntentAt *time.Time

	ImageStartedAt *time.Time
	VideoStartedAt *time.Time
	CompletedAt    *time.Time

	ErrorStage   ChainStage
	ErrorMessage string

	ResultURLs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition mutates the job's chain stage after validating legality.
func (j *GenerationJob) Transition(to ChainStage) error {
	if !CanTransition(j.ChainStage, to) {
		return ErrIllegalTransition
	}
	j.ChainStage = to
	return nil
}
