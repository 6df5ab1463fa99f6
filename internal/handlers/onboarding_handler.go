package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"fourall/internal/models"
	"fourall/internal/onboarding"
)

// OnboardingService is the onboarding state machine
type OnboardingService interface {
	Start(ctx context.Context, sessionID string, lang models.Language) (*models.OnboardingProgress, error)
	Resume(ctx context.Context, sessionID string) (*models.OnboardingProgress, error)
	Status(ctx context.Context, sessionID string) (models.OnboardingStatus, error)
	UpdateStep(ctx context.Context, sessionID string, id models.StepID, data map[string]any, completed bool) (*models.OnboardingProgress, error)
	Next(ctx context.Context, sessionID string) (*models.OnboardingProgress, error)
	Prev(ctx context.Context, sessionID string) (*models.OnboardingProgress, error)
	SubmitQuiz(ctx context.Context, sessionID string, responses []models.QuizResponse) (*models.OnboardingProgress, error)
	Complete(ctx context.Context, sessionID string) (*onboarding.CompletionResult, error)
}

// OnboardingHandler serves the onboarding flow
type OnboardingHandler struct {
	onboarding OnboardingService
	logger     *zap.Logger
}

// NewOnboardingHandler creates a new onboarding handler
func NewOnboardingHandler(svc OnboardingService, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{onboarding: svc, logger: logger}
}

type startRequest struct {
	Language models.Language `json:"language"`
}

type stepRequest struct {
	Data      map[string]any `json:"data"`
	Completed bool           `json:"completed"`
}

type quizRequest struct {
	Responses []models.QuizResponse `json:"responses"`
}

// Start begins a fresh onboarding, discarding any earlier progress
func (h *OnboardingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad start request", err)
			return
		}
	}

	p, err := h.onboarding.Start(r.Context(), GetSessionID(r.Context()), req.Language)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to start onboarding", err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// Resume returns the in-flight progress
func (h *OnboardingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	p, err := h.onboarding.Resume(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to resume onboarding", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Get reports whether resumable progress exists
func (h *OnboardingHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.onboarding.Status(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to load onboarding", err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// UpdateStep stores the data of one step
func (h *OnboardingHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad step request", err)
		return
	}

	id := models.StepID(r.PathValue("id"))
	p, err := h.onboarding.UpdateStep(r.Context(), GetSessionID(r.Context()), id, req.Data, req.Completed)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to update step", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Next advances to the following step
func (h *OnboardingHandler) Next(w http.ResponseWriter, r *http.Request) {
	p, err := h.onboarding.Next(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to advance onboarding", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Prev moves back one step
func (h *OnboardingHandler) Prev(w http.ResponseWriter, r *http.Request) {
	p, err := h.onboarding.Prev(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to go back", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// SubmitQuiz scores the cognitive quiz
func (h *OnboardingHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad quiz request", err)
		return
	}

	p, err := h.onboarding.SubmitQuiz(r.Context(), GetSessionID(r.Context()), req.Responses)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to score quiz", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Complete turns the finished progress into a profile
func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	res, err := h.onboarding.Complete(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to complete onboarding", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
