package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Startup step names
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepServices   = "Initializing services"
	StepReady      = "Server ready"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus creates a status with the server's startup steps pending
func NewStartupStatus() *StartupStatus {
	return &StartupStatus{
		current: "Initializing...",
		steps: []StartupStep{
			{Name: StepDatabase},
			{Name: StepMigrations},
			{Name: StepServices},
			{Name: StepReady},
		},
	}
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	s.progress = (completed * 100) / len(s.steps)
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.CompleteStep(StepReady)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = StepReady
	s.progress = 100
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

type healthResponse struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
	Database string        `json:"database"`
}

func (s *StartupStatus) snapshot() healthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return healthResponse{
		Ready:    s.ready,
		Current:  s.current,
		Progress: s.progress,
		Steps:    append([]StartupStep(nil), s.steps...),
	}
}

// Pinger checks a backing dependency
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports readiness
type HealthHandler struct {
	status *StartupStatus
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(status *StartupStatus, db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{status: status, db: db, logger: logger}
}

// Healthz answers 200 once startup finished and the database responds, 503 otherwise
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := h.status.snapshot()
	resp.Database = "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("health check: database unreachable", zap.Error(err))
		resp.Database = "unreachable"
		resp.Ready = false
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
