// Package onboarding drives a session through the ordered accessibility
// disclosure steps and turns the collected answers into a finished profile.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"fourall/internal/adaptive"
	"fourall/internal/ai"
	"fourall/internal/models"
	"fourall/internal/validation"
)

// ProgressStore persists the in-flight progress record of each session
type ProgressStore interface {
	Get(ctx context.Context, sessionID string) (*models.OnboardingProgress, error)
	Save(ctx context.Context, p *models.OnboardingProgress) error
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProfileStore persists finished profiles
type ProfileStore interface {
	Get(ctx context.Context, sessionID string) (*models.UserProfile, error)
	Save(ctx context.Context, sessionID string, p *models.UserProfile) error
}

// Notifier tells the user their setup is done
type Notifier interface {
	OnboardingComplete(ctx context.Context, p *models.UserProfile, summary string) error
}

// CompletionResult is returned once per session when onboarding finishes
type CompletionResult struct {
	Profile *models.UserProfile `json:"profile"`
	Summary string              `json:"summary"`
}

// Machine is the onboarding progress state machine
type Machine struct {
	progress ProgressStore
	profiles ProfileStore
	ai       ai.Collaborator
	notifier Notifier
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
	complete singleflight.Group
}

// NewMachine creates the onboarding machine. notifier may be nil.
func NewMachine(progress ProgressStore, profiles ProfileStore, collab ai.Collaborator, notifier Notifier, ttl time.Duration, logger *zap.Logger) *Machine {
	if ttl <= 0 {
		ttl = models.ProgressTTL
	}
	return &Machine{
		progress: progress,
		profiles: profiles,
		ai:       collab,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// load returns resumable progress. Expired or complete records are deleted
// and reported as models.ErrNoProgress.
func (m *Machine) load(ctx context.Context, sessionID string) (*models.OnboardingProgress, error) {
	p, err := m.progress.Get(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrNoProgress
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	if p.IsComplete || p.IsExpired(m.now(), m.ttl) {
		m.logger.Info("discarding stale onboarding progress",
			zap.String("session_id", sessionID),
			zap.Bool("complete", p.IsComplete),
			zap.Time("last_updated", p.LastUpdated),
		)
		if err := m.progress.Delete(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("delete stale progress: %w", err)
		}
		return nil, models.ErrNoProgress
	}

	if p.Disabilities == nil {
		p.Disabilities = models.NewDisabilitySet()
	}
	return p, nil
}

func (m *Machine) save(ctx context.Context, p *models.OnboardingProgress) error {
	p.LastUpdated = m.now()
	if err := m.progress.Save(ctx, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Start initializes fresh progress at the first step, discarding any previous record.
// A non-empty language completes the language step.
func (m *Machine) Start(ctx context.Context, sessionID string, lang models.Language) (*models.OnboardingProgress, error) {
	if lang != "" {
		if err := validation.ValidateLanguage(lang); err != nil {
			return nil, err
		}
	}

	now := m.now()
	p := &models.OnboardingProgress{
		SessionID:       sessionID,
		CurrentStep:     0,
		Steps:           models.CanonicalSteps(),
		StartedAt:       now,
		Language:        lang,
		InteractionMode: models.InteractionVoice,
		Disabilities:    models.NewDisabilitySet(),
	}
	if lang != "" {
		p.Steps[0].Completed = true
		p.Steps[0].Data = map[string]any{"language": string(lang)}
	}

	if err := m.save(ctx, p); err != nil {
		return nil, err
	}
	m.logger.Info("onboarding started", zap.String("session_id", sessionID), zap.String("language", string(lang)))
	return p, nil
}

// Resume returns the stored progress of a session, or models.ErrNoProgress
func (m *Machine) Resume(ctx context.Context, sessionID string) (*models.OnboardingProgress, error) {
	return m.load(ctx, sessionID)
}

// Status reports whether resumable progress exists
func (m *Machine) Status(ctx context.Context, sessionID string) (models.OnboardingStatus, error) {
	p, err := m.load(ctx, sessionID)
	if errors.Is(err, models.ErrNoProgress) {
		return models.OnboardingStatus{}, nil
	}
	if err != nil {
		return models.OnboardingStatus{}, err
	}
	return models.OnboardingStatus{HasExistingProgress: true, Progress: p}, nil
}

// UpdateStep sets the data and completion flag of a step without moving the cursor
func (m *Machine) UpdateStep(ctx context.Context, sessionID string, id models.StepID, data map[string]any, completed bool) (*models.OnboardingProgress, error) {
	p, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	idx := p.StepIndex(id)
	if idx < 0 {
		return nil, models.ErrInvalidStep
	}
	if err := applyStep(p, id, data, completed); err != nil {
		return nil, err
	}

	p.Steps[idx].Data = data
	p.Steps[idx].Completed = completed
	if err := m.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Next advances one step. It refuses to leave an incomplete step and skips
// the cognitive quiz when nothing was disclosed or assistance was declined.
func (m *Machine) Next(ctx context.Context, sessionID string) (*models.OnboardingProgress, error) {
	p, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !p.Current().Completed {
		return nil, models.ErrStepIncomplete
	}

	next := p.CurrentStep + 1
	if p.Current().ID == models.StepAccessibilityToggles {
		quiz := p.StepIndex(models.StepCognitiveQuiz)
		if skipsQuiz(p) {
			p.QuizSkipped = true
			p.CognitiveScore = 0
			p.Steps[quiz].Completed = true
			p.Steps[quiz].Data = map[string]any{"skipped": true}
			next = quiz + 1
		} else if p.QuizSkipped {
			// Disabilities were disclosed after an earlier skip
			p.QuizSkipped = false
			p.Steps[quiz].Completed = false
			p.Steps[quiz].Data = nil
		}
	}

	p.CurrentStep = min(next, len(p.Steps)-1)
	if err := m.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Prev moves back one step, stepping over a skipped quiz
func (m *Machine) Prev(ctx context.Context, sessionID string) (*models.OnboardingProgress, error) {
	p, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prev := p.CurrentStep - 1
	if prev >= 0 && p.Steps[prev].ID == models.StepCognitiveQuiz && p.QuizSkipped {
		prev--
	}

	p.CurrentStep = max(prev, 0)
	if err := m.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SubmitQuiz scores the quiz and completes its step. Only the score is kept.
func (m *Machine) SubmitQuiz(ctx context.Context, sessionID string, responses []models.QuizResponse) (*models.OnboardingProgress, error) {
	if err := validateResponses(responses); err != nil {
		return nil, err
	}

	p, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	score := m.scoreQuiz(ctx, sessionID, responses)
	p.CognitiveScore = score
	p.QuizSkipped = false

	quiz := p.StepIndex(models.StepCognitiveQuiz)
	p.Steps[quiz].Completed = true
	p.Steps[quiz].Data = map[string]any{"cognitiveScore": score, "answered": len(responses)}

	if err := m.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateResponses(responses []models.QuizResponse) error {
	if len(responses) == 0 {
		return models.ValidationError{Field: "responses", Message: "at least one answer is required"}
	}
	for _, r := range responses {
		if r.Weight < 1 || r.Weight > 10 {
			return models.ValidationError{Field: "weight", Message: "weight must be between 1 and 10"}
		}
		if r.TimeTakenMs < 0 || r.Hesitations < 0 {
			return models.ValidationError{Field: "responses", Message: "timings cannot be negative"}
		}
	}
	return nil
}

// Complete converts the progress into a finished profile exactly once per session.
// Concurrent callers share the result of a single run; later callers get
// models.ErrOnboardingComplete.
func (m *Machine) Complete(ctx context.Context, sessionID string) (*CompletionResult, error) {
	v, err, shared := m.complete.Do(sessionID, func() (any, error) {
		return m.completeOnce(context.WithoutCancel(ctx), sessionID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("onboarding completion shared", zap.String("session_id", sessionID))
	}
	return v.(*CompletionResult), nil
}

func (m *Machine) completeOnce(ctx context.Context, sessionID string) (*CompletionResult, error) {
	p, err := m.load(ctx, sessionID)
	if errors.Is(err, models.ErrNoProgress) {
		if existing, getErr := m.profiles.Get(ctx, sessionID); getErr == nil && existing.IsOnboardingComplete {
			return nil, models.ErrOnboardingComplete
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	for _, s := range p.Steps {
		if s.ID != models.StepSummary && !s.Completed {
			return nil, fmt.Errorf("%w: %s", models.ErrStepIncomplete, s.ID)
		}
	}

	profile, err := m.buildProfile(ctx, sessionID, p)
	if err != nil {
		return nil, err
	}
	summary := m.enrich(ctx, profile)

	if err := m.profiles.Save(ctx, sessionID, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if err := m.progress.Delete(ctx, sessionID); err != nil {
		// A record marked complete is discarded on its next load
		p.IsComplete = true
		if saveErr := m.progress.Save(ctx, p); saveErr != nil {
			m.logger.Error("failed to retire completed progress", zap.String("session_id", sessionID), zap.Error(errors.Join(err, saveErr)))
		}
	}

	m.logger.Info("onboarding completed",
		zap.String("session_id", sessionID),
		zap.String("ui_complexity", string(profile.UIComplexity)),
		zap.String("confirm_mode", string(profile.ConfirmMode)),
		zap.Int("disabilities", len(profile.Disabilities)),
	)

	if m.notifier != nil && profile.Email != "" {
		if err := m.notifier.OnboardingComplete(ctx, profile, summary); err != nil {
			m.logger.Warn("completion notice not sent", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	return &CompletionResult{Profile: profile, Summary: summary}, nil
}

// buildProfile derives the finished profile from the progress with the local rules
func (m *Machine) buildProfile(ctx context.Context, sessionID string, p *models.OnboardingProgress) (*models.UserProfile, error) {
	now := m.now()
	profile := &models.UserProfile{
		ProfileID: uuid.NewString(),
		CreatedAt: now,
	}

	// Re-onboarding keeps identity fields
	existing, err := m.profiles.Get(ctx, sessionID)
	switch {
	case err == nil:
		profile.ProfileID = existing.ProfileID
		profile.UserID = existing.UserID
		profile.Name = existing.Name
		profile.Phone = existing.Phone
		profile.Email = existing.Email
		profile.CreatedAt = existing.CreatedAt
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("load existing profile: %w", err)
	}

	summaryIdx := p.StepIndex(models.StepSummary)
	var contact summaryData
	if err := decodeStep(models.StepSummary, p.Steps[summaryIdx].Data, &contact); err == nil {
		if contact.Name != "" {
			profile.Name = contact.Name
		}
		if contact.Email != "" {
			profile.Email = contact.Email
		}
		if contact.Phone != "" {
			profile.Phone = contact.Phone
		}
	}

	score := p.CognitiveScore
	if p.QuizSkipped || score == 0 {
		score = models.DefaultCognitiveScore
	}
	mode := p.InteractionMode
	if mode == "" {
		mode = models.InteractionVoice
	}
	lang := p.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}

	profile.Language = lang
	profile.InteractionMode = mode
	profile.Disabilities = p.Disabilities.Clone()
	profile.CognitiveScore = adaptive.ClampScore(score)
	profile.UIComplexity = adaptive.ComplexityForScore(profile.CognitiveScore)
	profile.AccessibilityPreferences = adaptive.PreferencesFor(p.Disabilities, p.AccessibilityToggles)
	profile.ConfirmMode = adaptive.ConfirmModeFor(p.Disabilities, mode)
	profile.IsOnboardingComplete = true
	profile.UpdatedAt = now
	return profile, nil
}

// enrich asks the collaborator for a personal welcome summary and falls back to a local one
func (m *Machine) enrich(ctx context.Context, p *models.UserProfile) string {
	resp, err := m.ai.Generate(ctx, models.AIRequest{
		Type:   models.AIProfileGeneration,
		Prompt: "Summarize this accessibility setup for the user.",
		Context: map[string]any{
			"language":        p.Language,
			"interactionMode": p.InteractionMode,
			"disabilities":    p.Disabilities.List(),
			"uiComplexity":    p.UIComplexity,
			"confirmMode":     p.ConfirmMode,
			"preferences":     p.AccessibilityPreferences,
		},
	})
	if err == nil && resp.Success {
		if s, ok := resp.Data["summary"].(string); ok && s != "" {
			return s
		}
	}
	if err != nil {
		m.logger.Info("profile enrichment unavailable, using local summary", zap.Error(err))
	}
	return LocalSummary(p)
}

// SweepExpired deletes every progress record idle for longer than the TTL
func (m *Machine) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.progress.DeleteExpired(ctx, m.now().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("sweep expired progress: %w", err)
	}
	if n > 0 {
		m.logger.Info("swept expired onboarding progress", zap.Int64("deleted", n))
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done
func (m *Machine) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.SweepExpired(ctx); err != nil {
				m.logger.Error("progress sweep failed", zap.Error(err))
			}
		}
	}
}
