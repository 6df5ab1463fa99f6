package onboarding

import (
	"fmt"
	"strings"

	"fourall/internal/models"
)

var languageNames = map[models.Language]string{
	models.LanguageEnglish: "English",
	models.LanguagePidgin:  "Pidgin",
	models.LanguageYoruba:  "Yoruba",
	models.LanguageIgbo:    "Igbo",
	models.LanguageHausa:   "Hausa",
}

var confirmPhrases = map[models.ConfirmMode]string{
	models.ConfirmPIN:       "your PIN",
	models.ConfirmVoice:     "your voice",
	models.ConfirmBiometric: "your fingerprint or face",
}

// LocalSummary describes a finished profile in plain words
func LocalSummary(p *models.UserProfile) string {
	var b strings.Builder

	mode := "touch and text"
	if p.InteractionMode == models.InteractionVoice {
		mode = "voice"
	}
	fmt.Fprintf(&b, "You're all set. The app will use %s and you can control it by %s.", languageNames[p.Language], mode)

	var extras []string
	prefs := p.AccessibilityPreferences
	if prefs.Contrast == models.ContrastHigh {
		extras = append(extras, "high contrast")
	}
	if prefs.FontSize > models.DefaultFontSize {
		extras = append(extras, "larger text")
	}
	if prefs.LargeTargets {
		extras = append(extras, "bigger buttons")
	}
	if prefs.Captions {
		extras = append(extras, "captions")
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, " We turned on %s.", strings.Join(extras, ", "))
	}

	fmt.Fprintf(&b, " You'll confirm payments with %s.", confirmPhrases[p.ConfirmMode])
	return b.String()
}
