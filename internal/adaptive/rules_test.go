package adaptive

import (
	"testing"

	"fourall/internal/models"
)

func TestComplexityForScore(t *testing.T) {
	tests := []struct {
		score int
		want  models.UIComplexity
	}{
		{1, models.ComplexitySimplified},
		{3, models.ComplexitySimplified},
		{4, models.ComplexityModerate},
		{6, models.ComplexityModerate},
		{7, models.ComplexityDetailed},
		{10, models.ComplexityDetailed},
	}

	for _, tt := range tests {
		if got := ComplexityForScore(tt.score); got != tt.want {
			t.Errorf("ComplexityForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestConfirmModeFor(t *testing.T) {
	tests := []struct {
		name         string
		disabilities []models.Disability
		mode         models.InteractionMode
		want         models.ConfirmMode
	}{
		{"no needs", nil, models.InteractionVoice, models.ConfirmPIN},
		{"visual voice", []models.Disability{models.DisabilityVisual}, models.InteractionVoice, models.ConfirmVoice},
		{"visual text", []models.Disability{models.DisabilityVisual}, models.InteractionText, models.ConfirmBiometric},
		{"motor", []models.Disability{models.DisabilityMotor}, models.InteractionVoice, models.ConfirmBiometric},
		{"hearing", []models.Disability{models.DisabilityHearing}, models.InteractionText, models.ConfirmPIN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfirmModeFor(models.NewDisabilitySet(tt.disabilities...), tt.mode)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPreferencesFor(t *testing.T) {
	t.Run("visual", func(t *testing.T) {
		p := PreferencesFor(models.NewDisabilitySet(models.DisabilityVisual), models.AccessibilityToggles{})
		if p.FontSize != 20 || p.Contrast != models.ContrastHigh || p.Font != models.FontAtkinson {
			t.Errorf("unexpected visual preferences: %+v", p)
		}
	})

	t.Run("toggles override", func(t *testing.T) {
		size := 30
		off := false
		speed := 0.1
		p := PreferencesFor(models.NewDisabilitySet(models.DisabilityMotor), models.AccessibilityToggles{
			FontSize:     &size,
			LargeTargets: &off,
			TTSSpeed:     &speed,
		})
		if p.FontSize != models.MaxFontSize {
			t.Errorf("font size = %d, want clamp to %d", p.FontSize, models.MaxFontSize)
		}
		if p.LargeTargets {
			t.Error("explicit largeTargets=false should win")
		}
		if p.TTSSpeed != models.MinTTSSpeed {
			t.Errorf("tts speed = %v, want %v", p.TTSSpeed, models.MinTTSSpeed)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		if got := PreferencesFor(nil, models.AccessibilityToggles{}); got != models.DefaultPreferences() {
			t.Errorf("got %+v, want defaults", got)
		}
	})
}

func TestRederive_KeepsOverridesWhenComplete(t *testing.T) {
	p := models.UserProfile{
		InteractionMode:      models.InteractionVoice,
		Disabilities:         models.NewDisabilitySet(models.DisabilityVisual),
		CognitiveScore:       2,
		IsOnboardingComplete: true,
		AccessibilityPreferences: models.AccessibilityPreferences{
			FontSize: 15,
			Contrast: models.ContrastNormal,
			TTSSpeed: 1.5,
			Font:     models.FontInter,
		},
	}

	got := Rederive(p)

	if got.AccessibilityPreferences != p.AccessibilityPreferences {
		t.Errorf("preferences clobbered: %+v", got.AccessibilityPreferences)
	}
	if got.UIComplexity != models.ComplexitySimplified {
		t.Errorf("complexity = %s", got.UIComplexity)
	}
	if got.ConfirmMode != models.ConfirmVoice {
		t.Errorf("confirm mode = %s", got.ConfirmMode)
	}
}

func TestRederive_Idempotent(t *testing.T) {
	p := models.UserProfile{
		InteractionMode: models.InteractionText,
		Disabilities:    models.NewDisabilitySet(models.DisabilityCognitive, models.DisabilityHearing),
		CognitiveScore:  12,
	}
	once := Rederive(p)
	twice := Rederive(once)

	if once.CognitiveScore != 10 {
		t.Errorf("score = %d, want clamp to 10", once.CognitiveScore)
	}
	if once.UIComplexity != twice.UIComplexity || once.ConfirmMode != twice.ConfirmMode ||
		once.AccessibilityPreferences != twice.AccessibilityPreferences {
		t.Error("rederive is not idempotent")
	}
}
