package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"fourall/internal/models"
)

// Assistant answers free-form coaching questions
type Assistant interface {
	Reply(ctx context.Context, p *models.UserProfile, message string) string
}

// AssistantHandler serves the conversational assistant
type AssistantHandler struct {
	assistant Assistant
	profiles  ProfileService
	logger    *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant Assistant, profiles ProfileService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, profiles: profiles, logger: logger}
}

type assistantRequest struct {
	Message string `json:"message"`
}

type assistantResponse struct {
	Reply string `json:"reply"`
}

// Ask replies to one message, tailoring the answer to the profile when there is one
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad assistant request", err)
		return
	}

	p, err := h.profiles.Get(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Warn("assistant answering without profile", zap.Error(err))
		}
		p = nil
	}

	respondJSON(w, http.StatusOK, assistantResponse{Reply: h.assistant.Reply(r.Context(), p, req.Message)})
}
