package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/ollama/ollama/api"
	"golang.org/x/time/rate"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// Defaults
const (
	DefaultBaseURL      = "http://localhost:11434"
	DefaultProbeTimeout = 5 * time.Second
	DefaultPullTimeout  = 5 * time.Minute
)

var olog = log.WithField("component", "ollama")

// Config holds the client settings
type Config struct {
	BaseURL           string
	ProbeTimeout      time.Duration
	PullTimeout       time.Duration
	RequestsPerSecond float64 // 0 means unlimited
}

// Client talks to a local Ollama server.
// It is safe for concurrent use; the underlying transport is shared.
type Client struct {
	api          *api.Client
	baseURL      string
	probeTimeout time.Duration
	pullTimeout  time.Duration
	rateLimiter  *rate.Limiter
}

// NewClient creates a new Ollama client
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.PullTimeout <= 0 {
		cfg.PullTimeout = DefaultPullTimeout
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama base url %q: scheme and host are required", cfg.BaseURL)
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond) + 1
	}

	// Per-call deadlines come from the context, so the transport itself has no timeout
	return &Client{
		api:          api.NewClient(base, &http.Client{}),
		baseURL:      base.String(),
		probeTimeout: cfg.ProbeTimeout,
		pullTimeout:  cfg.PullTimeout,
		rateLimiter:  rate.NewLimiter(limit, burst),
	}, nil
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return nil
}

// IsAvailable probes the server's model listing with a short timeout
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return false
	}
	if _, err := c.api.List(ctx); err != nil {
		olog.WithError(err).Warn("ollama not available")
		return false
	}
	return true
}

// InstalledModels returns the raw model names the server reports
func (c *Client) InstalledModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, classify(ctx, "list models", err)
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ListModels merges the built-in catalog with the installed inventory.
// Any backend failure yields an empty list.
func (c *Client) ListModels(ctx context.Context) []domain.AIModel {
	names, err := c.InstalledModels(ctx)
	if err != nil {
		olog.WithError(err).Error("could not list models")
		return []domain.AIModel{}
	}
	return merge(names)
}

// Generate runs a single non-streaming completion bounded by cfg.Timeout
func (c *Client) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	ctx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	olog.WithField("model", cfg.ModelID).Debug("generating")
	start := time.Now()

	var out strings.Builder
	req := &api.GenerateRequest{
		Model:   cfg.ModelID,
		Prompt:  prompt,
		Stream:  new(bool),
		Options: options(cfg),
	}
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		err = classify(ctx, "generate", err)
		olog.WithError(err).WithField("model", cfg.ModelID).Error("generation failed")
		return "", err
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("%w: model %s", domain.ErrEmptyResponse, cfg.ModelID)
	}

	olog.WithFields(log.Fields{
		"model":   cfg.ModelID,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("generation finished")
	return text, nil
}

// Chat runs a single non-streaming chat completion bounded by cfg.Timeout
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage, cfg domain.GenerationConfig) (string, error) {
	ctx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	var out strings.Builder
	req := &api.ChatRequest{
		Model:    cfg.ModelID,
		Messages: msgs,
		Stream:   new(bool),
		Options:  options(cfg),
	}
	err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		err = classify(ctx, "chat", err)
		olog.WithError(err).WithField("model", cfg.ModelID).Error("chat failed")
		return "", err
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("%w: model %s", domain.ErrEmptyResponse, cfg.ModelID)
	}
	return text, nil
}

// PullModel downloads a model, reporting each status event to onProgress
// (may be nil). It returns true once the server reports success.
func (c *Client) PullModel(ctx context.Context, modelID string, onProgress func(domain.PullProgress)) bool {
	ctx, cancel := context.WithTimeout(ctx, c.pullTimeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return false
	}

	plog := olog.WithField("model", modelID)
	plog.Info("pulling model")

	succeeded := false
	err := c.api.Pull(ctx, &api.PullRequest{Model: modelID}, func(resp api.ProgressResponse) error {
		if onProgress != nil {
			onProgress(domain.PullProgress{
				Status:    resp.Status,
				Digest:    resp.Digest,
				Total:     resp.Total,
				Completed: resp.Completed,
			})
		}
		if resp.Status == "success" {
			succeeded = true
		}
		return nil
	})
	if err != nil {
		plog.WithError(classify(ctx, "pull", err)).Error("pull failed")
		return false
	}

	if succeeded {
		plog.Info("model pulled")
	} else {
		plog.Warn("pull stream ended without success")
	}
	return succeeded
}

func options(cfg domain.GenerationConfig) map[string]any {
	return map[string]any{
		"temperature": cfg.Temperature,
		"num_predict": cfg.MaxTokens,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classify maps client errors onto the domain sentinels
func classify(ctx context.Context, op string, err error) error {
	var statusErr api.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Errorf("%w: %s: status %d: %s", domain.ErrBackendStatus, op, statusErr.StatusCode, statusErr.ErrorMessage)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", domain.ErrBackendTimeout, op)
	default:
		return fmt.Errorf("%w: %s: %v", domain.ErrBackendUnavailable, op, err)
	}
}
