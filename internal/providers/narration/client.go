// Package narration synthesizes scene voice-overs and reports the resulting
// audio duration, which drives the scene timing calculation. Synthesis
// failures are expected and degrade to per-scene default durations.
package narration

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

// Result is one synthesized voice-over clip.
type Result struct {
	AudioURL        string
	DurationSeconds float64
}

// Synthesizer converts narration text into an audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, locale string) (Result, error)
}

// Options configures the TTS client.
type Options struct {
	APIKey     string
	BaseURL    string
	Voice      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls a hosted TTS endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	voice      string
	httpClient *http.Client
	logger     *infra.Logger
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Locale string `json:"locale,omitempty"`
}

type synthesizeResponse struct {
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	Message         string  `json:"message"`
}

// NewClient constructs the TTS client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = "alloy"
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
		voice:      voice,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Synthesize fulfils the Synthesizer interface.
func (c *Client) Synthesize(ctx context.Context, text, locale string) (Result, error) {
	if c.apiKey == "" || c.baseURL == "" {
		return Result{}, errors.New("narration: client not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, errors.New("narration: text is required")
	}
	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: c.voice, Locale: locale})
	if err != nil {
		return Result{}, fmt.Errorf("narration: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("narration: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("narration: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("narration: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("narration: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded synthesizeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, fmt.Errorf("narration: decode response: %w", err)
	}
	if decoded.AudioURL == "" || decoded.DurationSeconds <= 0 {
		return Result{}, errors.New("narration: empty synthesis result")
	}
	c.logger.Debug().Float64("duration_s", decoded.DurationSeconds).Msg("narration: synthesized clip")
	return Result{AudioURL: decoded.AudioURL, DurationSeconds: decoded.DurationSeconds}, nil
}

var _ Synthesizer = (*Client)(nil)
