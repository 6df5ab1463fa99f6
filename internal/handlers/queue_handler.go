package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"fourall/internal/models"
	"fourall/internal/queue"
)

// ActionQueue is the offline action queue
type ActionQueue interface {
	Enqueue(ctx context.Context, sessionID string, t models.ActionType, data json.RawMessage) (*models.QueuedAction, error)
	Flush(ctx context.Context) (queue.FlushResult, error)
	Cleanup(ctx context.Context, sessionID string) (int64, error)
	List(ctx context.Context, sessionID string) ([]*models.QueuedAction, error)
}

// EventCollector buffers analytics events
type EventCollector interface {
	Add(events ...models.AnalyticsEvent)
}

// QueueHandler serves the offline action queue and analytics intake
type QueueHandler struct {
	queue  ActionQueue
	events EventCollector
	logger *zap.Logger
	now    func() time.Time
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(q ActionQueue, events EventCollector, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{queue: q, events: events, logger: logger, now: time.Now}
}

type enqueueRequest struct {
	Type models.ActionType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

type eventsRequest struct {
	Events []models.AnalyticsEvent `json:"events"`
}

// maxEventsPerRequest bounds one analytics upload
const maxEventsPerRequest = 200

// Enqueue stores an action for later delivery
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad enqueue request", err)
		return
	}

	a, err := h.queue.Enqueue(r.Context(), GetSessionID(r.Context()), req.Type, req.Data)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to queue action", err)
		return
	}
	respondJSON(w, http.StatusAccepted, a)
}

// List returns the session's actions
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	actions, err := h.queue.List(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to list actions", err)
		return
	}
	if actions == nil {
		actions = []*models.QueuedAction{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

// Flush delivers every queued action now
func (h *QueueHandler) Flush(w http.ResponseWriter, r *http.Request) {
	res, err := h.queue.Flush(r.Context())
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to flush queue", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Cleanup removes the session's finished actions
func (h *QueueHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.queue.Cleanup(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to clean up queue", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// Events accepts a batch of analytics events for the session
func (h *QueueHandler) Events(w http.ResponseWriter, r *http.Request) {
	var req eventsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad events request", err)
		return
	}
	if len(req.Events) > maxEventsPerRequest {
		respondJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Too many events in one request."})
		return
	}

	sessionID := GetSessionID(r.Context())
	now := h.now().UTC()
	accepted := make([]models.AnalyticsEvent, 0, len(req.Events))
	for _, e := range req.Events {
		if e.Name == "" {
			continue
		}
		e.SessionID = sessionID
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		accepted = append(accepted, e)
	}
	h.events.Add(accepted...)

	respondJSON(w, http.StatusAccepted, map[string]int{"accepted": len(accepted)})
}
