package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fourall/internal/models"
)

// EventBuffer batches analytics events in memory. When full, the oldest
// events are dropped. A failed flush keeps the batch for the next one.
type EventBuffer struct {
	sink     Sink
	capacity int
	logger   *zap.Logger

	mu      sync.Mutex
	events  []models.AnalyticsEvent
	dropped int
}

// NewEventBuffer creates a buffer holding at most capacity events
func NewEventBuffer(sink Sink, capacity int, logger *zap.Logger) *EventBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &EventBuffer{sink: sink, capacity: capacity, logger: logger}
}

// Add appends events
func (b *EventBuffer) Add(events ...models.AnalyticsEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	b.trim()
}

func (b *EventBuffer) trim() {
	if over := len(b.events) - b.capacity; over > 0 {
		b.events = append([]models.AnalyticsEvent(nil), b.events[over:]...)
		b.dropped += over
	}
}

// Len returns the number of buffered events
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Dropped returns how many events were discarded for lack of room
func (b *EventBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Flush delivers the buffered events as one batch
func (b *EventBuffer) Flush(ctx context.Context) (int, error) {
	b.mu.Lock()
	batch := b.events
	b.events = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	if err := b.sink.DeliverEvents(ctx, batch); err != nil {
		b.mu.Lock()
		b.events = append(batch, b.events...)
		b.trim()
		b.mu.Unlock()
		return 0, err
	}
	return len(batch), nil
}

// Run flushes every interval until ctx is done
func (b *EventBuffer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := b.Flush(ctx); err != nil && ctx.Err() == nil {
				b.logger.Warn("event flush failed", zap.Error(err), zap.Int("buffered", b.Len()))
			}
		}
	}
}
