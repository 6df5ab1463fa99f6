package queue

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

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"fourall/internal/config"
	"fourall/internal/models"
)

// Sink delivers queued actions and analytics batches to the backend
type Sink interface {
	Deliver(ctx context.Context, a *models.QueuedAction) error
	DeliverEvents(ctx context.Context, events []models.AnalyticsEvent) error
}

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status code %d, message: %s", e.StatusCode, e.Message)
}

// Permanent reports whether retrying the same request cannot succeed
func (e *APIError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 &&
		e.StatusCode != http.StatusRequestTimeout && e.StatusCode != http.StatusTooManyRequests
}

// isPermanent reports whether err should fail an action without further retries
func isPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Permanent()
}

// HTTPSink posts JSON to the banking backend
type HTTPSink struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPSink creates a sink posting to baseURL
func NewHTTPSink(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPSink {
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Deliver posts the action payload to /api/<type>
func (s *HTTPSink) Deliver(ctx context.Context, a *models.QueuedAction) error {
	return s.post(ctx, "/api/"+string(a.Type), a.Data, a.ID)
}

// DeliverEvents posts a batch to /api/events
func (s *HTTPSink) DeliverEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	return s.post(ctx, "/api/events", body, "")
}

func (s *HTTPSink) post(ctx context.Context, path string, body []byte, idempotencyKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	return s.handleResponse(resp)
}

// handleResponse decodes a non-2xx body into an APIError
func (s *HTTPSink) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "failed to read error response body"}
	}
	s.logger.Warn("backend returned non-2xx response",
		zap.Int("status", resp.StatusCode),
		zap.String("url", resp.Request.URL.Path),
		zap.ByteString("body", bodyBytes),
	)

	var apiErr APIError
	if err := json.Unmarshal(bodyBytes, &apiErr); err != nil || apiErr.Message == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unknown error: %s", string(bodyBytes))}
	}
	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}

// publisher is the part of *nats.Conn the sink uses
type publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSSink publishes actions to <subject>.<type> and events to <subject>.events
type NATSSink struct {
	conn    publisher
	close   func()
	subject string
}

// NewNATSSink connects to url
func NewNATSSink(url, subject string, logger *zap.Logger) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("fourall-queue"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSSink{conn: nc, close: nc.Close, subject: subject}, nil
}

func (s *NATSSink) Deliver(ctx context.Context, a *models.QueuedAction) error {
	msg, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	return s.publish(ctx, s.subject+"."+string(a.Type), msg)
}

func (s *NATSSink) DeliverEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	msg, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	return s.publish(ctx, s.subject+".events", msg)
}

// publish returns once the server has acknowledged the flush
func (s *NATSSink) publish(ctx context.Context, subject string, msg []byte) error {
	if err := s.conn.Publish(subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	return nil
}

// Close drops the connection
func (s *NATSSink) Close() {
	if s.close != nil {
		s.close()
	}
}

// NewSink builds the sink selected by cfg.Sink. The returned close function is never nil.
func NewSink(cfg config.Queue, logger *zap.Logger) (Sink, func(), error) {
	switch strings.ToLower(cfg.Sink) {
	case "", "http":
		return NewHTTPSink(cfg.BackendURL, 10*time.Second, logger), func() {}, nil
	case "nats":
		s, err := NewNATSSink(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported queue sink: %s", cfg.Sink)
	}
}
