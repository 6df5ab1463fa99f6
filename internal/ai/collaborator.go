// Package ai talks to the generative AI collaborator used for profile
// enrichment, quiz scoring and the Ziva assistant.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"fourall/internal/config"
	"fourall/internal/models"
)

// Collaborator answers AI requests. Callers treat an error and Success=false the same way.
type Collaborator interface {
	Generate(ctx context.Context, req models.AIRequest) (models.AIResponse, error)
}

// ErrDisabled is returned when no collaborator is configured
var ErrDisabled = errors.New("ai collaborator disabled")

// Disabled is a collaborator that never succeeds
type Disabled struct{}

var _ Collaborator = Disabled{}

func (Disabled) Generate(context.Context, models.AIRequest) (models.AIResponse, error) {
	return models.AIResponse{Success: false}, ErrDisabled
}

// contentGenerator is the part of the genai client this package uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements Collaborator on the Gemini API
type GeminiClient struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ Collaborator = (*GeminiClient)(nil)

// New returns a Gemini collaborator, or Disabled when no API key is configured
func New(ctx context.Context, cfg config.Gemini, logger *zap.Logger) (Collaborator, error) {
	if cfg.APIKey == "" {
		logger.Info("Gemini API key not set, AI features use local fallbacks")
		return Disabled{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGeminiClient(client.Models, cfg, logger), nil
}

func newGeminiClient(gen contentGenerator, cfg config.Gemini, logger *zap.Logger) *GeminiClient {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{models: gen, model: model, timeout: cfg.Timeout, logger: logger}
}

// Generate sends the request to Gemini. Structured request types ask for JSON
// and decode it into Data; coaching replies land in Data["reply"].
func (c *GeminiClient) Generate(ctx context.Context, req models.AIRequest) (models.AIResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return models.AIResponse{}, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(req.Type), genai.RoleUser),
	}
	if wantsJSON(req.Type) {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		c.logger.Warn("gemini request failed",
			zap.String("type", string(req.Type)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return models.AIResponse{}, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return models.AIResponse{Success: false}, nil
	}

	if !wantsJSON(req.Type) {
		return models.AIResponse{Success: true, Data: map[string]any{"reply": text}}, nil
	}

	data := map[string]any{}
	if err := json.Unmarshal([]byte(stripFence(text)), &data); err != nil {
		c.logger.Warn("gemini returned malformed JSON", zap.String("type", string(req.Type)), zap.Error(err))
		return models.AIResponse{Success: false}, nil
	}
	return models.AIResponse{Success: true, Data: data}, nil
}

func wantsJSON(t models.AIRequestType) bool {
	return t == models.AIProfileGeneration || t == models.AICognitiveAssessment
}

func systemInstruction(t models.AIRequestType) string {
	switch t {
	case models.AICognitiveAssessment:
		return "You assess how much interface assistance a banking app user needs from their quiz answers. " +
			`Reply with JSON {"cognitiveScore": <integer 1-10, 10 meaning no assistance needed>}.`
	case models.AIProfileGeneration:
		return "You welcome a new user of an inclusive banking app after accessibility onboarding. " +
			`Reply with JSON {"summary": "<two short sentences in the user's language describing their setup>"}.`
	default:
		return "You are Ziva, a patient financial coach inside an inclusive banking app. " +
			"Answer briefly in plain words, in the user's language, and never ask for PINs or passwords."
	}
}

func buildPrompt(req models.AIRequest) (string, error) {
	if len(req.Context) == 0 {
		return req.Prompt, nil
	}
	ctxJSON, err := json.Marshal(req.Context)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return req.Prompt + "\n\nContext (JSON):\n" + string(ctxJSON), nil
}

// stripFence removes a surrounding markdown code fence some models add to JSON output
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
