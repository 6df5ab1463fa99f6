package ai

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fourall/internal/models"
)

// AssistantFallback is the reply when the collaborator cannot answer
const AssistantFallback = "Sorry, I can't answer that right now. Please try again in a moment."

// Assistant is Ziva, the conversational financial coach
type Assistant struct {
	collab Collaborator
	logger *zap.Logger
}

// NewAssistant creates the assistant on top of a collaborator
func NewAssistant(collab Collaborator, logger *zap.Logger) *Assistant {
	return &Assistant{collab: collab, logger: logger}
}

// Reply answers a user message. It never fails: collaborator errors yield the fallback text.
func (a *Assistant) Reply(ctx context.Context, p *models.UserProfile, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return AssistantFallback
	}

	req := models.AIRequest{
		Type:    models.AIFinancialCoaching,
		Prompt:  message,
		Context: map[string]any{},
	}
	if p != nil {
		req.Context["language"] = p.Language
		req.Context["uiComplexity"] = p.UIComplexity
		req.Context["name"] = p.Name
	}

	resp, err := a.collab.Generate(ctx, req)
	if err != nil || !resp.Success {
		if err != nil {
			a.logger.Debug("assistant falling back", zap.Error(err))
		}
		if resp.Fallback != "" {
			return resp.Fallback
		}
		return AssistantFallback
	}

	reply, _ := resp.Data["reply"].(string)
	if reply == "" {
		return AssistantFallback
	}
	return reply
}
