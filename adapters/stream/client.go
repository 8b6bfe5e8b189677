// Package stream implements the transport session against the agent
// backend: one long-lived server-push event stream plus a request/response
// send endpoint, both scoped to a client-generated session id.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/entities"
	"github.com/questly/voicebridge/domain/repositories"
	"github.com/questly/voicebridge/internal/metrics"
)

const (
	// ReconnectDelay is the fixed wait before re-opening a failed stream.
	// Retries repeat indefinitely while the surface stays open.
	ReconnectDelay = 5 * time.Second

	// Maximum accepted size of one pushed event. Base64 PCM frames are
	// ~11KB; leave generous headroom.
	maxEventSize = 512 * 1024

	eventBuffer = 256
)

// Config holds configuration for the stream client
type Config struct {
	// BaseURL of the agent backend, e.g. "http://localhost:8000".
	BaseURL string
	// HTTPClient to use; defaults to a client without a global timeout so
	// the push stream can stay open indefinitely.
	HTTPClient *http.Client
	// ReconnectDelay overrides the fixed reconnect wait. Zero means the
	// standard 5 seconds; tests shorten it.
	ReconnectDelay time.Duration
}

// Client maintains the inbound event stream and the outbound send
// primitive for one session. Stream failures are recovered with a fixed
// 5-second reconnect; send failures are logged and never retried.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	reconnectDelay time.Duration
	session        *entities.Session
	logger         *zap.Logger
	metrics        *metrics.Metrics

	events    chan domain.StreamEvent
	connected atomic.Bool

	mu     sync.Mutex
	opened bool
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

var _ repositories.EventStream = (*Client)(nil)

// NewClient creates a stream client scoped to session.
func NewClient(config Config, session *entities.Session, m *metrics.Metrics, logger *zap.Logger) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	delay := config.ReconnectDelay
	if delay <= 0 {
		delay = ReconnectDelay
	}
	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		httpClient:     httpClient,
		reconnectDelay: delay,
		session:        session,
		logger:         logger,
		metrics:        m,
		events:         make(chan domain.StreamEvent, eventBuffer),
		done:           make(chan struct{}),
	}
}

// Open implements repositories.EventStream
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &domain.ConnectError{Err: fmt.Errorf("stream client is closed")}
	}
	if c.opened {
		// Already streaming for this session id; nothing to do.
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.opened = true
	go c.run(runCtx)

	c.logger.Info("Event stream opening", zap.String("sessionID", c.session.ID))
	return nil
}

// run owns the connect/consume/reconnect cycle until Close.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	for {
		err := c.consume(ctx)
		c.setConnected(false)

		if ctx.Err() != nil {
			return
		}

		connErr := &domain.ConnectError{Err: err}
		c.logger.Warn("Event stream lost, reconnecting",
			zap.String("sessionID", c.session.ID),
			zap.Duration("delay", c.reconnectDelay),
			zap.Error(connErr))
		c.metrics.RecordReconnect()

		select {
		case <-time.After(c.reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// consume runs one connection lifetime: open the push stream and deliver
// events in arrival order until the transport fails.
func (c *Client) consume(ctx context.Context) error {
	url := fmt.Sprintf("%s/events/%s", c.baseURL, c.session.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected stream status %d", resp.StatusCode)
	}

	c.setConnected(true)
	c.logger.Info("Event stream established", zap.String("sessionID", c.session.ID))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 4096), maxEventSize)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				if !c.dispatch(ctx, strings.Join(data, "\n")) {
					return ctx.Err()
				}
				data = data[:0]
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(payload, " "))
		}
		// Other SSE fields (event:, id:, retry:) carry nothing in this
		// protocol and are ignored.
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

// dispatch parses one pushed payload and delivers it. Malformed payloads
// are logged and skipped, never delivered and never dropped silently.
// Returns false when the stream context ended.
func (c *Client) dispatch(ctx context.Context, payload string) bool {
	var event domain.StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Error("Failed to parse stream event",
			zap.String("sessionID", c.session.ID),
			zap.Error(err))
		c.metrics.RecordParseError()
		return true
	}

	c.metrics.RecordEvent(eventKind(event))

	c.mu.Lock()
	c.session.Touch()
	c.mu.Unlock()

	select {
	case c.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func eventKind(event domain.StreamEvent) string {
	switch {
	case event.TurnComplete:
		return "turn_complete"
	case event.Interrupted:
		return "interrupted"
	case event.IsAudioFragment():
		return "audio"
	case event.IsTextFragment():
		return "text"
	default:
		return "unknown"
	}
}

// Events implements repositories.EventStream
func (c *Client) Events() <-chan domain.StreamEvent {
	return c.events
}

// Send implements repositories.EventStream. One envelope is delivered via
// a request/response call; failure is reported as *domain.SendError,
// logged, and never retried. Send failures do not touch the stream.
func (c *Client) Send(ctx context.Context, envelope domain.Envelope) error {
	if c.session == nil || c.session.ID == "" {
		err := &domain.SendError{Err: fmt.Errorf("no session established yet")}
		c.logger.Error("Dropping outbound envelope", zap.Error(err))
		c.metrics.RecordSendFailure()
		return err
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		sendErr := &domain.SendError{Err: fmt.Errorf("failed to marshal envelope: %w", err)}
		c.logger.Error("Dropping outbound envelope", zap.Error(sendErr))
		c.metrics.RecordSendFailure()
		return sendErr
	}

	url := fmt.Sprintf("%s/send/%s", c.baseURL, c.session.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		sendErr := &domain.SendError{Err: err}
		c.logger.Error("Failed to create send request", zap.Error(sendErr))
		c.metrics.RecordSendFailure()
		return sendErr
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		sendErr := &domain.SendError{Err: err}
		c.logger.Error("Send request failed",
			zap.String("sessionID", c.session.ID),
			zap.String("mimeType", envelope.MimeType),
			zap.Error(sendErr))
		c.metrics.RecordSendFailure()
		return sendErr
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		sendErr := &domain.SendError{Status: resp.StatusCode}
		c.logger.Error("Send rejected by backend",
			zap.String("sessionID", c.session.ID),
			zap.String("mimeType", envelope.MimeType),
			zap.Int("status", resp.StatusCode))
		c.metrics.RecordSendFailure()
		return sendErr
	}

	c.metrics.RecordSend()
	return nil
}

// Connected implements repositories.EventStream
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// SessionID implements repositories.EventStream
func (c *Client) SessionID() string {
	return c.session.ID
}

// Close implements repositories.EventStream. Safe to call multiple times;
// cancels the stream goroutine and any pending reconnect timer.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	opened := c.opened
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if opened {
		<-c.done
	} else {
		close(c.events)
	}

	c.setConnected(false)
	c.logger.Info("Event stream closed", zap.String("sessionID", c.session.ID))
	return nil
}

func (c *Client) setConnected(up bool) {
	c.connected.Store(up)
	c.metrics.SetConnected(up)

	c.mu.Lock()
	defer c.mu.Unlock()
	if up {
		c.session.MarkConnected()
	} else {
		c.session.MarkDisconnected()
	}
}
