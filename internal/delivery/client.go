// Package delivery ships readings to the ingestion endpoint with a bounded,
// fixed-delay retry policy. Failures never escape as errors; every call ends
// in an Outcome the orchestrator aggregates.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"syscall"
	"time"

	"github.com/talgya/wildsim/internal/fleet"
)

// Defaults for the wire call.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 3 // One call plus two retries
	DefaultRetryDelay  = time.Second
)

// Class is the failure classification of one attempt.
type Class uint8

const (
	ClassNone              Class = iota // Attempt succeeded
	ClassConnectionRefused              // Endpoint unreachable; never retried
	ClassTransient                      // Timeout, 5xx, other network error; retried
	ClassRejected                       // 4xx; the payload itself was refused, never retried
	ClassAborted                        // Process is shutting down
)

// String returns a human-readable name.
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassConnectionRefused:
		return "connection_refused"
	case ClassTransient:
		return "transient"
	case ClassRejected:
		return "rejected"
	case ClassAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt could change the result.
func (c Class) Retryable() bool {
	return c == ClassTransient
}

// Status is the terminal result of a delivery.
type Status uint8

const (
	StatusSuccess   Status = iota
	StatusExhausted        // Gave up: non-retryable failure or retry budget spent
	StatusAborted          // Interrupted by shutdown; not counted either way
)

// String returns a human-readable name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusExhausted:
		return "exhausted"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one agent's delivery in one tick.
type Outcome struct {
	AgentID  fleet.AgentID
	Status   Status
	Attempts int
	Class    Class // Classification of the last failed attempt
	Err      error // Last failure, nil on success
}

// Options configures a Client.
type Options struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client POSTs JSON payloads to one ingestion URL.
type Client struct {
	url         string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

// NewClient creates a delivery client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Client{
		url: opts.URL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Deliver sends payload, retrying transient failures with a fixed delay.
// It never returns an error; cancellation of ctx yields StatusAborted.
func (c *Client) Deliver(ctx context.Context, id fleet.AgentID, payload any) Outcome {
	out := Outcome{AgentID: id}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("delivery failed", "sensor", id, "error", err)
		out.Status = StatusExhausted
		out.Class = ClassRejected
		out.Err = fmt.Errorf("marshal payload: %w", err)
		return out
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		out.Attempts = attempt

		class, err := c.post(ctx, body)
		if class == ClassNone {
			slog.Info("reading delivered", "sensor", id, "attempt", attempt)
			out.Status = StatusSuccess
			out.Class = ClassNone
			out.Err = nil
			return out
		}
		out.Class = class
		out.Err = err

		if class == ClassAborted {
			out.Status = StatusAborted
			return out
		}
		if !class.Retryable() || attempt == c.maxAttempts {
			break
		}

		slog.Warn("delivery failed, retrying",
			"sensor", id,
			"attempt", attempt,
			"class", class.String(),
			"retry_in", c.retryDelay,
			"error", err,
		)
		if !sleep(ctx, c.retryDelay) {
			out.Status = StatusAborted
			out.Class = ClassAborted
			return out
		}
	}

	slog.Error("delivery failed",
		"sensor", id,
		"attempts", out.Attempts,
		"class", out.Class.String(),
		"error", out.Err,
	)
	out.Status = StatusExhausted
	return out
}

// post performs one attempt and classifies its result.
func (c *Client) post(ctx context.Context, body []byte) (Class, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return ClassRejected, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ClassAborted, ctx.Err()
		}
		return Classify(err, 0), fmt.Errorf("post reading: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection is reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	class := Classify(nil, resp.StatusCode)
	if class != ClassNone {
		return class, fmt.Errorf("ingestion error %d", resp.StatusCode)
	}
	return ClassNone, nil
}

// Classify maps a transport error or HTTP status to a failure class.
func Classify(err error, status int) Class {
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return ClassConnectionRefused
		}
		if errors.Is(err, context.Canceled) {
			return ClassAborted
		}
		return ClassTransient
	}
	switch {
	case status >= 200 && status < 300:
		return ClassNone
	case status >= 500:
		return ClassTransient
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return ClassTransient
	default:
		return ClassRejected
	}
}

// sleep waits for d or until ctx is done. Returns false if interrupted.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
