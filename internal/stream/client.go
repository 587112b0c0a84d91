// Package stream owns the lifecycle of one server-sent-event connection
// per logical retrieval run: it opens the connection, forwards raw data
// frames in wire order, and emits a single terminal frame when the
// stream ends or fails.
package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrBaseURLRequired indicates a client constructed without a backend URL.
var ErrBaseURLRequired = errors.New("stream base url is required")

const (
	defaultStreamPath = "/agentic/stream"
	tenantHeader      = "tenant"

	// Scanner line capacity; final payloads embed full evidence sets.
	maxFrameBytes = 4 << 20

	frameBufferSize = 16
)

// FrameType discriminates transport frames.
type FrameType string

const (
	// FrameData carries one raw JSON frame for the decoder.
	FrameData FrameType = "data"
	// FrameError is terminal: the connection failed.
	FrameError FrameType = "error"
	// FrameDone is terminal: the server closed the stream normally.
	FrameDone FrameType = "done"
)

// Frame is one unit delivered on the transport channel.
type Frame struct {
	Type  FrameType
	Event string
	Data  string
	Err   error
}

// Config configures the SSE client.
type Config struct {
	BaseURL    string
	Path       string
	Tenant     string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Logger     zerolog.Logger
}

// Client opens server-sent-event streams against the agent backend.
type Client struct {
	baseURL    string
	path       string
	tenant     string
	httpClient *http.Client
	retry      RetryPolicy
	log        zerolog.Logger
}

// New constructs a client with sane defaults. The HTTP client carries no
// overall timeout: a run streams for as long as the server keeps talking.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = defaultStreamPath
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		path:       path,
		tenant:     strings.TrimSpace(cfg.Tenant),
		httpClient: httpClient,
		retry:      normalizeRetryPolicy(cfg.Retry),
		log:        cfg.Logger,
	}
}

// Stream opens one connection for query and forwards its frames. The
// returned channel is closed after a terminal frame (error or done) or
// when the context is canceled; canceling the context is the only
// cancellation primitive and closes the underlying connection.
func (c *Client) Stream(ctx context.Context, query string) (<-chan Frame, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	frames := make(chan Frame, frameBufferSize)
	go func() {
		defer close(frames)
		forwarded := false
		if err := c.streamWithRetry(ctx, query, frames, &forwarded); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			sendTerminalFrame(frames, Frame{Type: FrameError, Err: err})
		}
	}()
	return frames, nil
}

// streamWithRetry retries connection opens only while nothing has been
// forwarded yet. Once any frame reached the consumer the run has visible
// state and a failure is terminal.
func (c *Client) streamWithRetry(ctx context.Context, query string, frames chan<- Frame, forwarded *bool) error {
	attempt := 0
	for {
		attemptErr := c.streamOnce(ctx, query, frames, forwarded)
		if attemptErr == nil {
			return nil
		}
		if errors.Is(attemptErr, context.Canceled) || errors.Is(attemptErr, context.DeadlineExceeded) {
			return attemptErr
		}
		if !isRetryableError(attemptErr) || *forwarded || attempt >= c.retry.MaxRetries {
			return attemptErr
		}

		delay := computeBackoffDelay(c.retry, attempt)
		c.log.Debug().Err(attemptErr).Dur("delay", delay).Msg("retrying stream connect")
		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
		attempt++
	}
}

func (c *Client) streamOnce(ctx context.Context, query string, frames chan<- Frame, forwarded *bool) error {
	streamURL := c.baseURL + c.path + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.tenant != "" {
		req.Header.Set(tenantHeader, c.tenant)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return markRetryable(fmt.Errorf("open stream: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("stream endpoint returned status %d", resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError {
			return markRetryable(err)
		}
		return err
	}

	return c.consume(ctx, resp.Body, frames, forwarded)
}

// consume parses the SSE wire format: "event:" names the channel,
// "data:" lines accumulate the payload, a blank line dispatches it.
func (c *Client) consume(ctx context.Context, body io.Reader, frames chan<- Frame, forwarded *bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)

	var event, data string
	dispatch := func() (terminal bool, err error) {
		if event == "" && data == "" {
			return false, nil
		}
		frame, terminal := classifyFrame(event, data)
		event, data = "", ""
		if err := sendFrame(ctx, frames, frame); err != nil {
			return false, err
		}
		*forwarded = true
		return terminal, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			terminal, err := dispatch()
			if err != nil || terminal {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			chunk := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data != "" {
				data += "\n" + chunk
			} else {
				data = chunk
			}
		case strings.HasPrefix(line, ":"):
			// Comment/heartbeat line.
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("read stream: %w", err)
	}

	// Flush a final event that was not followed by a blank line.
	if _, err := dispatch(); err != nil {
		return err
	}

	if !*forwarded {
		return markRetryable(errors.New("stream ended without any frames"))
	}
	return sendFrame(ctx, frames, Frame{Type: FrameDone})
}

// classifyFrame routes named error/done events to the transport-level
// channels; everything else is a data frame for the decoder.
func classifyFrame(event, data string) (Frame, bool) {
	switch event {
	case "error":
		err := errors.New("server reported stream error")
		if strings.TrimSpace(data) != "" {
			err = fmt.Errorf("server reported stream error: %s", data)
		}
		return Frame{Type: FrameError, Event: event, Data: data, Err: err}, true
	case "done":
		return Frame{Type: FrameDone, Event: event, Data: data}, true
	default:
		return Frame{Type: FrameData, Event: event, Data: data}, false
	}
}

func sendFrame(ctx context.Context, frames chan<- Frame, frame Frame) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case frames <- frame:
		return nil
	}
}

// sendTerminalFrame emits a terminal frame without blocking when the
// consumer has stopped reading; the channel buffer guarantees room in
// the normal case.
func sendTerminalFrame(frames chan<- Frame, frame Frame) {
	select {
	case frames <- frame:
	default:
	}
}
