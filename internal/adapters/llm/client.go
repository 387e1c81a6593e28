// Package llm wraps an OpenAI compatible chat completion endpoint
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

// Options configures the Client
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds one completion call
	Timeout time.Duration
	// MaxRetries is passed to the SDK, zero disables its internal retry
	MaxRetries int
	HTTPClient *http.Client
}

// Client issues single shot chat completions
type Client struct {
	api   openai.Client
	opts  Options
	ready bool
	log   logger.Logger
}

// NewClient builds a Client, a missing key leaves it unconfigured
func NewClient(o Options) *Client {
	o.APIKey = strings.TrimSpace(o.APIKey)
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(o.MaxRetries),
	}
	if o.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.BaseURL))
	}

	return &Client{
		api:   openai.NewClient(reqOpts...),
		opts:  o,
		ready: o.APIKey != "",
		log:   *logger.Named("llm"),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool { return c != nil && c.ready }

// Model returns the configured model name
func (c *Client) Model() string { return c.opts.Model }

// Complete sends one system and one user message at temperature zero and returns the first choice
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", perr.Unavailablef("llm not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", mapError(ctx, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", perr.Newf(perr.ErrorCodeJSON, "llm returned no choices")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Debug().
		Str("model", c.opts.Model).
		Dur("took", time.Since(start)).
		Int64("prompt_tokens", resp.Usage.PromptTokens).
		Int64("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm completion")
	if out == "" {
		return "", perr.Newf(perr.ErrorCodeJSON, "llm returned empty content")
	}
	return out, nil
}

func mapError(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return perr.Wrapf(err, perr.ErrorCodeTooManyRequests, "llm rate limited")
		case apiErr.StatusCode >= 500:
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "llm upstream %d", apiErr.StatusCode)
		default:
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "llm rejected request (status %d)", apiErr.StatusCode)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return perr.Wrap(err, perr.ErrorCodeTimeout, "llm request timed out")
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "llm transport error")
}
