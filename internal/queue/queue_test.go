package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fourall/internal/config"
	"fourall/internal/logger"
	"fourall/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memoryStore is an in-memory Store
type memoryStore struct {
	mu      sync.Mutex
	actions map[string]*models.QueuedAction
}

func newMemoryStore() *memoryStore {
	return &memoryStore{actions: make(map[string]*models.QueuedAction)}
}

func (s *memoryStore) Insert(_ context.Context, a *models.QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.actions[a.ID] = &cp
	return nil
}

func (s *memoryStore) sorted(keep func(*models.QueuedAction) bool) []*models.QueuedAction {
	var out []*models.QueuedAction
	for _, a := range s.actions {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (s *memoryStore) ListBySession(_ context.Context, sessionID string) ([]*models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(a *models.QueuedAction) bool { return a.SessionID == sessionID }), nil
}

func (s *memoryStore) ListByStatus(_ context.Context, status models.ActionStatus, limit int) ([]*models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted(func(a *models.QueuedAction) bool { return a.Status == status })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) UpdateState(_ context.Context, a *models.QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.actions[a.ID]
	if !ok {
		return models.ErrNotFound
	}
	cur.Status, cur.RetryCount, cur.LastError = a.Status, a.RetryCount, a.LastError
	return nil
}

func (s *memoryStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok || a.Status != models.StatusQueued {
		return false, nil
	}
	a.Status = models.StatusProcessing
	return true, nil
}

func (s *memoryStore) DeleteFinished(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.actions {
		if a.SessionID == sessionID && (a.Status == models.StatusCompleted || a.Status == models.StatusFailed) {
			delete(s.actions, id)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) ResetProcessing(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.actions {
		if a.Status == models.StatusProcessing {
			a.Status = models.StatusQueued
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) get(id string) models.QueuedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.actions[id]
}

// scriptedSink fails deliveries of the listed types
type scriptedSink struct {
	mu        sync.Mutex
	failTypes map[models.ActionType]error
	delivered []string
	events    [][]models.AnalyticsEvent
	eventErr  error
}

func (s *scriptedSink) Deliver(_ context.Context, a *models.QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failTypes[a.Type]; err != nil {
		return err
	}
	s.delivered = append(s.delivered, a.ID)
	return nil
}

func (s *scriptedSink) DeliverEvents(_ context.Context, events []models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventErr != nil {
		return s.eventErr
	}
	s.events = append(s.events, events)
	return nil
}

func newTestQueue(sink Sink) (*Queue, *memoryStore) {
	store := newMemoryStore()
	q := New(store, sink, 0, logger.NewNop())
	clock := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	q.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return q, store
}

func TestQueue_Enqueue(t *testing.T) {
	q, _ := newTestQueue(&scriptedSink{})
	ctx := context.Background()

	a, err := q.Enqueue(ctx, "s1", models.ActionTransfer, json.RawMessage(`{"amount":5000}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, a.Status)
	assert.Equal(t, models.DefaultMaxRetries, a.MaxRetries)
	assert.NotEmpty(t, a.ID)

	b, err := q.Enqueue(ctx, "s1", models.ActionProfileUpdate, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b.Data))

	_, err = q.Enqueue(ctx, "s1", models.ActionType("loan"), nil)
	assert.True(t, models.IsValidationError(err))
	_, err = q.Enqueue(ctx, "s1", models.ActionBillPayment, json.RawMessage(`{broken`))
	assert.True(t, models.IsValidationError(err))
}

func TestQueue_FlushLifecycle(t *testing.T) {
	sink := &scriptedSink{failTypes: map[models.ActionType]error{
		models.ActionBillPayment: errors.New("backend unreachable"),
	}}
	q, store := newTestQueue(sink)
	ctx := context.Background()

	ok, err := q.Enqueue(ctx, "s1", models.ActionTransfer, json.RawMessage(`{"to":"0123"}`))
	require.NoError(t, err)
	flaky, err := q.Enqueue(ctx, "s1", models.ActionBillPayment, json.RawMessage(`{"biller":"ikedc"}`))
	require.NoError(t, err)

	res, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Delivered: 1, Retried: 1}, res)
	assert.Equal(t, models.StatusCompleted, store.get(ok.ID).Status)

	got := store.get(flaky.ID)
	assert.Equal(t, models.StatusQueued, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "backend unreachable", got.LastError)

	_, err = q.Flush(ctx)
	require.NoError(t, err)
	res, err = q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Failed: 1}, res)
	got = store.get(flaky.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)

	res, err = q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, res, "failed actions are not retried")
	assert.Equal(t, []string{ok.ID}, sink.delivered)

	n, err := q.Cleanup(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	list, err := q.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQueue_PermanentErrorFailsImmediately(t *testing.T) {
	sink := &scriptedSink{failTypes: map[models.ActionType]error{
		models.ActionTransfer: &APIError{StatusCode: http.StatusUnprocessableEntity, Message: "insufficient funds"},
	}}
	q, store := newTestQueue(sink)
	ctx := context.Background()

	a, err := q.Enqueue(ctx, "s1", models.ActionTransfer, nil)
	require.NoError(t, err)

	res, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Failed: 1}, res)
	assert.Equal(t, models.StatusFailed, store.get(a.ID).Status)
}

func TestQueue_FlushSkipsClaimedActions(t *testing.T) {
	sink := &scriptedSink{}
	q, store := newTestQueue(sink)
	ctx := context.Background()

	a, err := q.Enqueue(ctx, "s1", models.ActionTransfer, nil)
	require.NoError(t, err)
	claimed, err := store.Claim(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	res, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{}, res)
	assert.Empty(t, sink.delivered)
}

func TestQueue_RunRequeuesAndStops(t *testing.T) {
	sink := &scriptedSink{}
	q, store := newTestQueue(sink)
	ctx, cancel := context.WithCancel(context.Background())

	a, err := q.Enqueue(ctx, "s1", models.ActionTransfer, nil)
	require.NoError(t, err)
	_, err = store.Claim(ctx, a.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return store.get(a.ID).Status == models.StatusCompleted }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestEventBuffer(t *testing.T) {
	sink := &scriptedSink{}
	b := NewEventBuffer(sink, 3, logger.NewNop())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		b.Add(models.AnalyticsEvent{Name: name})
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 1, b.Dropped())

	sink.eventErr = errors.New("offline")
	_, err := b.Flush(ctx)
	assert.Error(t, err)
	assert.Equal(t, 3, b.Len(), "failed batch kept for the next flush")

	sink.eventErr = nil
	n, err := b.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, b.Len())
	require.Len(t, sink.events, 1)
	assert.Equal(t, "b", sink.events[0][0].Name)

	n, err = b.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEventBuffer_RunStops(t *testing.T) {
	sink := &scriptedSink{}
	b := NewEventBuffer(sink, 10, logger.NewNop())
	b.Add(models.AnalyticsEvent{Name: "tap"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestHTTPSink(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		keys  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/api/transfer":
			assert.JSONEq(t, `{"amount":100}`, string(body))
			w.WriteHeader(http.StatusCreated)
		case "/api/bill_payment":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unknown biller"}`))
		case "/api/events":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/", time.Second, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, sink.Deliver(ctx, &models.QueuedAction{ID: "a1", Type: models.ActionTransfer, Data: json.RawMessage(`{"amount":100}`)}))

	err := sink.Deliver(ctx, &models.QueuedAction{ID: "a2", Type: models.ActionBillPayment, Data: json.RawMessage(`{}`)})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "unknown biller", apiErr.Message)
	assert.True(t, isPermanent(err))

	err = sink.Deliver(ctx, &models.QueuedAction{ID: "a3", Type: models.ActionProfileUpdate, Data: json.RawMessage(`{}`)})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream down")
	assert.False(t, isPermanent(err))

	require.NoError(t, sink.DeliverEvents(ctx, []models.AnalyticsEvent{{Name: "tap"}}))

	assert.Equal(t, []string{"/api/transfer", "/api/bill_payment", "/api/profile_update", "/api/events"}, paths)
	assert.Equal(t, []string{"a1", "a2", "a3", ""}, keys)
	srv.CloseClientConnections()
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(subj string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subj)
	p.payloads = append(p.payloads, data)
	return nil
}

func (p *fakePublisher) FlushWithContext(context.Context) error { return nil }

func TestNATSSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := &NATSSink{conn: pub, subject: "fourall.actions"}
	ctx := context.Background()

	require.NoError(t, sink.Deliver(ctx, &models.QueuedAction{ID: "a1", Type: models.ActionBillPayment, Data: json.RawMessage(`{"x":1}`)}))
	require.NoError(t, sink.DeliverEvents(ctx, []models.AnalyticsEvent{{Name: "tap"}}))
	assert.Equal(t, []string{"fourall.actions.bill_payment", "fourall.actions.events"}, pub.subjects)

	var decoded models.QueuedAction
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "a1", decoded.ID)

	pub.err = errors.New("connection closed")
	assert.ErrorContains(t, sink.Deliver(ctx, &models.QueuedAction{Type: models.ActionTransfer}), "connection closed")
	sink.Close()
}

func TestNewSink(t *testing.T) {
	s, closeFn, err := NewSink(config.Queue{Sink: "http", BackendURL: "http://backend"}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSink{}, s)
	closeFn()

	_, _, err = NewSink(config.Queue{Sink: "carrier-pigeon"}, logger.NewNop())
	assert.ErrorContains(t, err, "unsupported queue sink")
}
