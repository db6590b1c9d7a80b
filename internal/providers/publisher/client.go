// Package publisher talks to the external publishing service that posts
// finished videos to social platforms. The remote side is authoritative for
// publish status; the reconciliation poller merges it into local state.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"autoreel/internal/infra"
)

// RemoteStatus is the publishing provider's own job state vocabulary.
type RemoteStatus string

const (
	RemoteScheduled RemoteStatus = "scheduled"
	RemotePosting   RemoteStatus = "posting"
	RemotePublished RemoteStatus = "published"
	RemoteFailed    RemoteStatus = "failed"
)

// StatusResult is the authoritative answer for one remote publish job.
type StatusResult struct {
	Status    RemoteStatus
	PublicURL string
	Message   string
}

// ScheduleRequest asks the provider to post a video on a platform.
type ScheduleRequest struct {
	Platform string
	VideoURL string
	Caption  string
}

// API is the publishing collaborator contract consumed by the core.
type API interface {
	Schedule(ctx context.Context, req ScheduleRequest) (string, error)
	Status(ctx context.Context, remoteJobID string) (StatusResult, error)
}

// Options configures the publishing client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is the HTTP implementation of API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type scheduleResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status    string `json:"status"`
	PublicURL string `json:"public_url"`
	Error     string `json:"error"`
}

// NewClient constructs the publishing client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Schedule submits a post and returns the provider-side job id.
func (c *Client) Schedule(ctx context.Context, req ScheduleRequest) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("publisher: client not configured")
	}
	body, err := json.Marshal(map[string]string{
		"platform":  req.Platform,
		"video_url": req.VideoURL,
		"caption":   req.Caption,
	})
	if err != nil {
		return "", fmt.Errorf("publisher: encode request: %w", err)
	}
	raw, status, err := c.do(ctx, http.MethodPost, "/v1/posts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", fmt.Errorf("publisher: status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	var decoded scheduleResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("publisher: decode response: %w", err)
	}
	if decoded.JobID == "" {
		return "", errors.New("publisher: empty job id")
	}
	c.logger.Debug().Str("platform", req.Platform).Str("remote_job_id", decoded.JobID).Msg("publisher: post scheduled")
	return decoded.JobID, nil
}

// Status fetches the authoritative state of a remote publish job.
func (c *Client) Status(ctx context.Context, remoteJobID string) (StatusResult, error) {
	if c.baseURL == "" {
		return StatusResult{}, errors.New("publisher: client not configured")
	}
	remoteJobID = strings.TrimSpace(remoteJobID)
	if remoteJobID == "" {
		return StatusResult{}, errors.New("publisher: remote job id is required")
	}
	raw, status, err := c.do(ctx, http.MethodGet, "/v1/posts/"+remoteJobID, nil)
	if err != nil {
		return StatusResult{}, err
	}
	if status >= 300 {
		return StatusResult{}, fmt.Errorf("publisher: status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return StatusResult{}, fmt.Errorf("publisher: decode response: %w", err)
	}
	return StatusResult{
		Status:    RemoteStatus(strings.ToLower(strings.TrimSpace(decoded.Status))),
		PublicURL: decoded.PublicURL,
		Message:   decoded.Error,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("publisher: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("publisher: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("publisher: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

var _ API = (*Client)(nil)
