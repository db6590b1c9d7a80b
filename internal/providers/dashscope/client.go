// Package dashscope implements the async submit/poll contract against the
// DashScope task API: a submission with the async header returns a task id
// immediately, and task status is fetched separately until it turns terminal.
package dashscope

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
	"autoreel/internal/providers/mediajob"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("dashscope: api key is required")

// TaskKind selects which generation endpoint a client submits to.
type TaskKind string

const (
	TaskImage TaskKind = "image"
	TaskVideo TaskKind = "video"
)

// Options configures the DashScope client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	Kind           TaskKind
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against one DashScope generation endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	kind       TaskKind
	httpClient *http.Client
	logger     *infra.Logger
}

type submitRequest struct {
	Model      string       `json:"model"`
	Input      submitInput  `json:"input"`
	Parameters submitParams `json:"parameters,omitempty"`
}

type submitInput struct {
	Prompt string         `json:"prompt"`
	ImgURL string         `json:"img_url,omitempty"`
	Extras map[string]any `json:"extras,omitempty"`
}

type submitParams struct {
	Size string `json:"size,omitempty"`
}

type submitResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type taskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		VideoURL   string `json:"video_url"`
		Results    []struct {
			URL string `json:"url"`
		} `json:"results"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	kind := opts.Kind
	if kind == "" {
		kind = TaskImage
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		if kind == TaskVideo {
			model = "wan2.2-i2v-plus"
		} else {
			model = "wan2.2-t2i-plus"
		}
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
		baseURL:    baseURL,
		model:      model,
		kind:       kind,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

func (c *Client) endpoint() string {
	if c.kind == TaskVideo {
		return c.baseURL + "/services/aigc/video-generation/video-synthesis"
	}
	return c.baseURL + "/services/aigc/text2image/image-synthesis"
}

// Submit starts an asynchronous generation task and returns its task id.
func (c *Client) Submit(ctx context.Context, req mediajob.SubmitRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("dashscope: prompt is required")
	}
	payload := submitRequest{
		Model: c.model,
		Input: submitInput{
			Prompt: prompt,
			ImgURL: strings.TrimSpace(req.ReferenceImageURL),
			Extras: req.Payload,
		},
	}
	if size := sizeForAspect(req.AspectRatio); size != "" {
		payload.Parameters.Size = size
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("dashscope: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

	raw, status, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", decodeError(raw, status)
	}
	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("dashscope: decode response: %w", err)
	}
	if decoded.Code != "" {
		return "", fmt.Errorf("dashscope: %s (%s)", decoded.Message, decoded.Code)
	}
	taskID := strings.TrimSpace(decoded.Output.TaskID)
	if taskID == "" {
		return "", errors.New("dashscope: empty task id")
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("task_id", taskID).
		Str("request_id", req.RequestID).
		Msg("dashscope: task submitted")
	return taskID, nil
}

// Poll fetches the task status and normalizes it to the mediajob contract.
func (c *Client) Poll(ctx context.Context, jobID string) (mediajob.PollResult, error) {
	if !c.HasCredentials() {
		return mediajob.PollResult{}, ErrMissingAPIKey
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return mediajob.PollResult{}, errors.New("dashscope: task id is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+jobID, nil)
	if err != nil {
		return mediajob.PollResult{}, fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, status, err := c.do(httpReq)
	if err != nil {
		return mediajob.PollResult{}, err
	}
	if status >= 300 {
		return mediajob.PollResult{}, decodeError(raw, status)
	}
	var decoded taskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return mediajob.PollResult{}, fmt.Errorf("dashscope: decode response: %w", err)
	}
	if decoded.Code != "" {
		return mediajob.PollResult{}, fmt.Errorf("dashscope: %s (%s)", decoded.Message, decoded.Code)
	}
	return normalizeTask(decoded), nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("dashscope: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("dashscope: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func decodeError(raw []byte, status int) error {
	var detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return fmt.Errorf("dashscope: %s (%s)", detail.Message, detail.Code)
	}
	return fmt.Errorf("dashscope: status %d: %s", status, strings.TrimSpace(string(raw)))
}

func normalizeTask(resp taskResponse) mediajob.PollResult {
	switch strings.ToUpper(strings.TrimSpace(resp.Output.TaskStatus)) {
	case "SUCCEEDED":
		urls := make([]string, 0, len(resp.Output.Results)+1)
		if v := strings.TrimSpace(resp.Output.VideoURL); v != "" {
			urls = append(urls, v)
		}
		for _, r := range resp.Output.Results {
			if u := strings.TrimSpace(r.URL); u != "" {
				urls = append(urls, u)
			}
		}
		return mediajob.PollResult{Status: mediajob.StatusReady, ResultURLs: urls}
	case "FAILED", "CANCELED":
		message := strings.TrimSpace(resp.Output.Message)
		if message == "" {
			message = "task failed without detail"
		}
		return mediajob.PollResult{Status: mediajob.StatusFailed, Message: message}
	default:
		// PENDING, RUNNING and anything unrecognized stay inconclusive; the
		// next poll tick re-checks.
		return mediajob.PollResult{Status: mediajob.StatusProcessing}
	}
}

func sizeForAspect(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "9:16":
		return "720*1280"
	case "16:9":
		return "1280*720"
	case "1:1":
		return "1024*1024"
	default:
		return ""
	}
}

var _ mediajob.Client = (*Client)(nil)
