package models

import (
	"encoding/json"
	"time"
)

// ActionType is the kind of network action held in the offline queue
type ActionType string

const (
	ActionTransfer      ActionType = "transfer"
	ActionBillPayment   ActionType = "bill_payment"
	ActionProfileUpdate ActionType = "profile_update"
)

// Valid reports whether t is a known action type
func (t ActionType) Valid() bool {
	return t == ActionTransfer || t == ActionBillPayment || t == ActionProfileUpdate
}

// ActionStatus is the delivery state of a queued action
type ActionStatus string

const (
	StatusQueued     ActionStatus = "queued"
	StatusProcessing ActionStatus = "processing"
	StatusCompleted  ActionStatus = "completed"
	StatusFailed     ActionStatus = "failed"
)

// DefaultMaxRetries is the retry budget of a new queued action
const DefaultMaxRetries = 3

// QueuedAction is a network action buffered until it can be delivered
type QueuedAction struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionId"`
	Type       ActionType      `json:"type"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
	Status     ActionStatus    `json:"status"`
	LastError  string          `json:"lastError,omitempty"`
}

// AnalyticsEvent is a client interaction event buffered for batch delivery
type AnalyticsEvent struct {
	SessionID  string         `json:"sessionId"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
