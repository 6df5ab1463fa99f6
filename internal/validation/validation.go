// Package validation checks user-supplied profile and onboarding fields.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"fourall/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	pinRegex   = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return models.ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return models.ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidatePhone accepts an optional leading + and 7 to 15 digits, ignoring spaces and dashes
func ValidatePhone(phone string) error {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if !phoneRegex.MatchString(cleaned) {
		return models.ValidationError{Field: "phone", Message: "invalid phone number"}
	}
	return nil
}

// ValidatePIN checks a confirm PIN is 4 to 6 digits
func ValidatePIN(pin string) error {
	if !pinRegex.MatchString(pin) {
		return models.ValidationError{Field: "pin", Message: "pin must be 4 to 6 digits"}
	}
	return nil
}

// ValidateLanguage checks a language code is supported
func ValidateLanguage(lang models.Language) error {
	if !lang.Valid() {
		return models.ValidationError{Field: "language", Message: fmt.Sprintf("unsupported language %q", lang)}
	}
	return nil
}

// ValidateInteractionMode checks an interaction mode is known
func ValidateInteractionMode(mode models.InteractionMode) error {
	if !mode.Valid() {
		return models.ValidationError{Field: "interactionMode", Message: fmt.Sprintf("unknown interaction mode %q", mode)}
	}
	return nil
}

// ValidateCognitiveScore checks a score is within 1-10
func ValidateCognitiveScore(score int) error {
	if score < 1 || score > 10 {
		return models.ValidationError{Field: "cognitiveScore", Message: "score must be between 1 and 10"}
	}
	return nil
}

// ValidatePreferences checks preference values are in range.
// Out-of-range values are rejected rather than clamped so the caller can re-prompt.
func ValidatePreferences(p models.AccessibilityPreferences) error {
	if p.FontSize < models.MinFontSize || p.FontSize > models.MaxFontSize {
		return models.ValidationError{Field: "fontSize", Message: fmt.Sprintf("font size must be between %d and %d", models.MinFontSize, models.MaxFontSize)}
	}
	if p.TTSSpeed < models.MinTTSSpeed || p.TTSSpeed > models.MaxTTSSpeed {
		return models.ValidationError{Field: "ttsSpeed", Message: "speech rate must be between 0.5 and 2.0"}
	}
	if p.Contrast != models.ContrastNormal && p.Contrast != models.ContrastHigh {
		return models.ValidationError{Field: "contrast", Message: fmt.Sprintf("unknown contrast %q", p.Contrast)}
	}
	if p.Font != models.FontInter && p.Font != models.FontAtkinson {
		return models.ValidationError{Field: "font", Message: fmt.Sprintf("unknown font %q", p.Font)}
	}
	return nil
}

// ValidateProfileUpdate checks every field set in a partial profile update
func ValidateProfileUpdate(u models.ProfileUpdate) error {
	if u.Name != nil {
		if err := ValidateName(*u.Name); err != nil {
			return err
		}
	}
	if u.Email != nil && *u.Email != "" {
		if err := ValidateEmail(*u.Email); err != nil {
			return err
		}
	}
	if u.Phone != nil && *u.Phone != "" {
		if err := ValidatePhone(*u.Phone); err != nil {
			return err
		}
	}
	if u.Language != nil {
		if err := ValidateLanguage(*u.Language); err != nil {
			return err
		}
	}
	if u.InteractionMode != nil {
		if err := ValidateInteractionMode(*u.InteractionMode); err != nil {
			return err
		}
	}
	if u.CognitiveScore != nil {
		if err := ValidateCognitiveScore(*u.CognitiveScore); err != nil {
			return err
		}
	}
	if u.AccessibilityPreferences != nil {
		if err := ValidatePreferences(*u.AccessibilityPreferences); err != nil {
			return err
		}
	}
	return nil
}
