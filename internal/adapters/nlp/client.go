// Package nlp is the HTTP client for the optional external annotation service
package nlp

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

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"

	"github.com/avast/retry-go/v4"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultHealthTimeout = 3 * time.Second
	defaultRetryBackoff  = 2 * time.Second
	defaultAttempts      = 2 // one call plus one retry
	defaultUA            = "cancioneiro-pipeline"
	maxBody              = 8 << 20
)

// Options configures the Client
type Options struct {
	// BaseURL of the service, empty means unconfigured
	BaseURL   string
	UserAgent string

	// Timeout bounds each annotate request
	Timeout time.Duration
	// HealthTimeout bounds the health probe
	HealthTimeout time.Duration
	// RetryBackoff is the fixed pause before the retry
	RetryBackoff time.Duration
	// Attempts including the first call
	Attempts int
}

// Health is the /health payload
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// OK reports whether the service declared itself usable
func (h Health) OK() bool {
	switch strings.ToLower(strings.TrimSpace(h.Status)) {
	case "ok", "healthy", "up", "ready":
		return true
	}
	return false
}

// AnnotateRequest is the /annotate body
type AnnotateRequest struct {
	Tokens   []string `json:"tokens"`
	FullText string   `json:"fullText"`
}

// Annotation is one entry of the /annotate response
type Annotation struct {
	Word        string            `json:"word"`
	Lemma       string            `json:"lemma"`
	POS         string            `json:"pos"`
	PosDetailed string            `json:"posDetailed"`
	Features    map[string]string `json:"features"`
	Confidence  float64           `json:"confidence"`
}

// AnnotateResponse is the /annotate payload
type AnnotateResponse struct {
	Annotations []Annotation `json:"annotations"`
}

// Client talks to the external annotation service
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with defaults filled in
func NewClient(o Options) *Client {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = defaultHealthTimeout
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.Attempts <= 0 {
		o.Attempts = defaultAttempts
	}
	return &Client{
		// per request deadlines come from the context
		http: &http.Client{},
		opts: o,
		log:  *logger.Named("nlp"),
	}
}

// Configured reports whether a base URL is set
func (c *Client) Configured() bool { return c != nil && c.opts.BaseURL != "" }

// Health probes GET /health within HealthTimeout
func (c *Client) Health(ctx context.Context) (Health, error) {
	if !c.Configured() {
		return Health{}, perr.Unavailablef("nlp service not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return Health{}, err
	}
	if !h.OK() {
		return h, perr.Unavailablef("nlp service unhealthy: status=%q", h.Status)
	}
	return h, nil
}

// Annotate posts the batch, retrying transport failures and timeouts after a fixed backoff
func (c *Client) Annotate(ctx context.Context, tokens []string, fullText string) ([]Annotation, error) {
	if !c.Configured() {
		return nil, perr.Unavailablef("nlp service not configured")
	}
	body, err := json.Marshal(AnnotateRequest{Tokens: tokens, FullText: fullText})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "nlp encode request")
	}

	var out AnnotateResponse
	attempt := 0
	err = retry.Do(
		func() error {
			attempt++
			actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			out = AnnotateResponse{}
			return c.do(actx, http.MethodPost, "/annotate", body, &out)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.Attempts)),
		retry.Delay(c.opts.RetryBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Uint("attempt", n+1).Msg("nlp annotate failed, retrying")
		}),
	)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("tokens", len(tokens)).Int("annotations", len(out.Annotations)).Int("attempts", attempt).Msg("nlp annotate")
	return out.Annotations, nil
}

// retryable covers transport errors, timeouts and 5xx
func retryable(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUnavailable, perr.ErrorCodeTimeout, perr.ErrorCodeTooManyRequests:
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, into any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, rdr)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "nlp new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return perr.Wrap(err, perr.ErrorCodeTimeout, "nlp request timed out")
		}
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "nlp transport error")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "nlp read body")
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "nlp %s %s: 429", method, path)
	case resp.StatusCode >= 500:
		return perr.Unavailablef("nlp %s %s: %d", method, path, resp.StatusCode)
	case resp.StatusCode >= 300:
		return perr.Newf(perr.ErrorCodeInvalidArgument, "nlp %s %s: %d %s", method, path, resp.StatusCode, truncate(raw, 200))
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, fmt.Sprintf("nlp decode %s", path))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
