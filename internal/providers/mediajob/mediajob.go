// Package mediajob defines the asynchronous contract every long-running
// generation provider exposes: submit now, receive an opaque job id, poll
// later for a terminal result or error.
package mediajob

import "context"

// Status is the normalized provider-side job state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// SubmitRequest carries everything a provider needs to start a job.
type SubmitRequest struct {
	Prompt string
	// ReferenceImageURL anchors video generation to a previously generated
	// image. Empty for pure text-to-media jobs.
	ReferenceImageURL string
	AspectRatio       string
	// Payload carries provider-specific extras, e.g. an embedded scene plan
	// for composed renders. JSON-serializable.
	Payload map[string]any
	// RequestID correlates provider traffic with the local job.
	RequestID string
}

// PollResult is the normalized answer to a status poll. A processing status
// carries no URLs and no message; ready carries result URLs; failed carries
// the provider's message.
type PollResult struct {
	Status     Status
	ResultURLs []string
	Message    string
}

// Client is the submit/poll contract for one provider endpoint.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Poll(ctx context.Context, jobID string) (PollResult, error)
}
