package onboarding

import (
	"context"
	"math"

	"go.uber.org/zap"

	"fourall/internal/adaptive"
	"fourall/internal/models"
)

// Timing thresholds for the slow-answer penalty
const (
	slowAnswerMs     = 8000
	verySlowAnswerMs = 15000
	maxHesitationAdd = 2
)

// quizStats summarizes a response set without keeping the responses themselves
type quizStats struct {
	Answered       int     `json:"answered"`
	MeanWeight     float64 `json:"meanWeight"`
	MeanTimeMs     float64 `json:"meanTimeMs"`
	MeanHesitation float64 `json:"meanHesitations"`
}

func summarize(responses []models.QuizResponse) quizStats {
	s := quizStats{Answered: len(responses)}
	if len(responses) == 0 {
		return s
	}
	var weight, ms, hes float64
	for _, r := range responses {
		weight += float64(r.Weight)
		ms += float64(r.TimeTakenMs)
		hes += float64(r.Hesitations)
	}
	n := float64(len(responses))
	s.MeanWeight = weight / n
	s.MeanTimeMs = ms / n
	s.MeanHesitation = hes / n
	return s
}

// AssistanceLevel is how much help the answers suggest the user needs, 1-10.
// It is the mean option weight plus penalties for slow answers and hesitation.
func AssistanceLevel(responses []models.QuizResponse) int {
	s := summarize(responses)
	if s.Answered == 0 {
		return 10 - models.DefaultCognitiveScore
	}

	level := s.MeanWeight
	switch {
	case s.MeanTimeMs > verySlowAnswerMs:
		level += 2
	case s.MeanTimeMs > slowAnswerMs:
		level++
	}
	level += float64(min(int(s.MeanHesitation/2), maxHesitationAdd))

	return min(max(int(math.Round(level)), 1), 10)
}

// LocalScore is the deterministic cognitive score used when the AI collaborator is unavailable
func LocalScore(responses []models.QuizResponse) int {
	return adaptive.ClampScore(10 - AssistanceLevel(responses))
}

// scoreQuiz asks the collaborator first and falls back to LocalScore on any failure
func (m *Machine) scoreQuiz(ctx context.Context, sessionID string, responses []models.QuizResponse) int {
	stats := summarize(responses)
	resp, err := m.ai.Generate(ctx, models.AIRequest{
		Type:   models.AICognitiveAssessment,
		Prompt: "Estimate the cognitive score for these onboarding quiz results.",
		Context: map[string]any{
			"stats":     stats,
			"responses": responses,
		},
	})
	if err == nil && resp.Success {
		if v, ok := resp.Data["cognitiveScore"].(float64); ok && v >= 1 && v <= 10 {
			return int(math.Round(v))
		}
	}

	local := LocalScore(responses)
	m.logger.Info("quiz scored locally",
		zap.String("session_id", sessionID),
		zap.Int("cognitive_score", local),
		zap.Bool("ai_error", err != nil),
	)
	return local
}
