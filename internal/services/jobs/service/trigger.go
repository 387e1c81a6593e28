package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/services/jobs/domain"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// TriggerOptions configures HTTPTrigger
type TriggerOptions struct {
	// BaseURL is the public URL of the API, e.g. http://127.0.0.1:4000
	BaseURL string
	// Timeout bounds one delivery attempt
	Timeout time.Duration
	// Attempts including the first
	Attempts int
	// Backoff between attempts
	Backoff time.Duration
	Client  *http.Client
}

// HTTPTrigger re-invokes the continuation endpoint over HTTP
type HTTPTrigger struct {
	opts TriggerOptions
	log  logger.Logger
}

var _ domain.Trigger = (*HTTPTrigger)(nil)

// NewHTTPTrigger fills defaults
func NewHTTPTrigger(o TriggerOptions) *HTTPTrigger {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	return &HTTPTrigger{opts: o, log: *logger.Named("jobs.trigger")}
}

// Trigger posts the cursor to /api/v1/jobs/{id}/continue. The caller's cancellation is ignored
// so a finished request cannot take the continuation down with it
func (t *HTTPTrigger) Trigger(ctx context.Context, id uuid.UUID, cur domain.Cursor) error {
	body, err := json.Marshal(domain.ContinueInput{Cursor: cur})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "trigger encode")
	}
	url := fmt.Sprintf("%s/api/v1/jobs/%s/continue", t.opts.BaseURL, id)
	base := context.WithoutCancel(ctx)

	return retry.Do(
		func() error {
			actx, cancel := context.WithTimeout(base, t.opts.Timeout)
			defer cancel()
			return t.post(actx, url, body)
		},
		retry.Context(base),
		retry.Attempts(uint(t.opts.Attempts)),
		retry.Delay(t.opts.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			t.log.Warn().Err(err).Str("job_id", id.String()).Uint("attempt", n+1).Msg("continuation trigger failed, retrying")
		}),
	)
}

func (t *HTTPTrigger) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(perr.Wrap(err, perr.ErrorCodeUnknown, "trigger new request"))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.opts.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return perr.Wrap(err, perr.ErrorCodeTimeout, "trigger timed out")
		}
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "trigger transport")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return perr.Newf(perr.ErrorCodeUnavailable, "trigger status %d", resp.StatusCode)
	default:
		return retry.Unrecoverable(perr.Newf(perr.ErrorCodeInvalidArgument, "trigger status %d", resp.StatusCode))
	}
}

// TriggerFunc adapts a function, used in process by the CLI and tests
type TriggerFunc func(ctx context.Context, id uuid.UUID, cur domain.Cursor) error

// Trigger calls f
func (f TriggerFunc) Trigger(ctx context.Context, id uuid.UUID, cur domain.Cursor) error {
	return f(ctx, id, cur)
}
