package adaptive

import "fourall/internal/models"

// Score boundaries for UI complexity
const (
	DetailedMinScore   = 7
	SimplifiedMaxScore = 3
)

// ClampScore keeps a cognitive score within 1-10
func ClampScore(score int) int {
	return min(max(score, 1), 10)
}

// ComplexityForScore maps a cognitive score to a UI complexity tier
func ComplexityForScore(score int) models.UIComplexity {
	switch {
	case score >= DetailedMinScore:
		return models.ComplexityDetailed
	case score <= SimplifiedMaxScore:
		return models.ComplexitySimplified
	default:
		return models.ComplexityModerate
	}
}

// ConfirmModeFor picks how sensitive actions are authorized
func ConfirmModeFor(d models.DisabilitySet, mode models.InteractionMode) models.ConfirmMode {
	switch {
	case d.Has(models.DisabilityVisual) && mode == models.InteractionVoice:
		return models.ConfirmVoice
	case d.Has(models.DisabilityVisual), d.Has(models.DisabilityMotor):
		return models.ConfirmBiometric
	default:
		return models.ConfirmPIN
	}
}

// PreferencesFor computes presentation preferences from declared disabilities,
// then applies any explicit toggles the user made on top.
func PreferencesFor(d models.DisabilitySet, t models.AccessibilityToggles) models.AccessibilityPreferences {
	p := models.DefaultPreferences()

	if d.Has(models.DisabilityVisual) {
		p.FontSize = 20
		p.Contrast = models.ContrastHigh
		p.Font = models.FontAtkinson
		p.TTSSpeed = 0.9
	}
	if d.Has(models.DisabilityHearing) {
		p.Captions = true
	}
	if d.Has(models.DisabilityMotor) {
		p.LargeTargets = true
	}
	if d.Has(models.DisabilityCognitive) {
		p.FontSize = max(p.FontSize, 18)
		p.Font = models.FontAtkinson
		p.TTSSpeed = min(p.TTSSpeed, 0.8)
	}

	if t.FontSize != nil {
		p.FontSize = *t.FontSize
	}
	if t.HighContrast != nil {
		p.Contrast = models.ContrastNormal
		if *t.HighContrast {
			p.Contrast = models.ContrastHigh
		}
	}
	if t.TTSSpeed != nil {
		p.TTSSpeed = *t.TTSSpeed
	}
	if t.LargeTargets != nil {
		p.LargeTargets = *t.LargeTargets
	}
	if t.Captions != nil {
		p.Captions = *t.Captions
	}
	if t.Font != nil {
		p.Font = *t.Font
	}

	return p.Normalize()
}

// Rederive recomputes the derived fields of a profile from its inputs.
// Preferences are only recomputed while onboarding is incomplete so that
// manual overrides on a finished profile survive.
func Rederive(p models.UserProfile) models.UserProfile {
	score := p.CognitiveScore
	if score == 0 {
		score = models.DefaultCognitiveScore
	}
	p.CognitiveScore = ClampScore(score)
	if p.InteractionMode == "" {
		p.InteractionMode = models.InteractionVoice
	}
	if p.Disabilities == nil {
		p.Disabilities = models.NewDisabilitySet()
	}
	p.UIComplexity = ComplexityForScore(p.CognitiveScore)
	p.ConfirmMode = ConfirmModeFor(p.Disabilities, p.InteractionMode)
	if !p.IsOnboardingComplete {
		p.AccessibilityPreferences = PreferencesFor(p.Disabilities, models.AccessibilityToggles{})
	} else {
		p.AccessibilityPreferences = p.AccessibilityPreferences.Normalize()
	}
	return p
}
