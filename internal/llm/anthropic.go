package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicRunner runs prompts against the Anthropic Messages API.
type AnthropicRunner struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	available bool
	logger    *slog.Logger
}

// AnthropicOptions configures an AnthropicRunner.
type AnthropicOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewAnthropicRunner creates a runner. An empty API key yields a runner that
// reports Available() == false and fails calls with ErrUnavailable.
func NewAnthropicRunner(opts AnthropicOptions, logger *slog.Logger) *AnthropicRunner {
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-5"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &AnthropicRunner{
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		logger:    logger.With("component", "llm"),
	}
	if opts.APIKey != "" {
		r.client = anthropic.NewClient(option.WithAPIKey(opts.APIKey))
		r.available = true
	}
	return r
}

func (r *AnthropicRunner) Model() string { return r.model }

func (r *AnthropicRunner) Available() bool { return r.available }

func (r *AnthropicRunner) Complete(ctx context.Context, system, user string) (*Result, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(r.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty completion from model %s", r.model)
	}

	r.logger.Debug("completion finished",
		"model", r.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens_in", resp.Usage.InputTokens,
		"tokens_out", resp.Usage.OutputTokens,
	)

	return &Result{
		Text: text.String(),
		Usage: Usage{
			TokensIn:  int(resp.Usage.InputTokens),
			TokensOut: int(resp.Usage.OutputTokens),
		},
	}, nil
}
