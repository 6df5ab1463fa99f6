package onboarding

import (
	"encoding/json"
	"fmt"

	"fourall/internal/models"
	"fourall/internal/validation"
)

type languageData struct {
	Language models.Language `json:"language"`
}

type interactionData struct {
	InteractionMode models.InteractionMode `json:"interactionMode"`
}

type disclosureData struct {
	Disabilities   []models.Disability `json:"disabilities"`
	PreferNotToSay bool                `json:"preferNotToSay"`
}

type quizData struct {
	Skipped bool `json:"skipped"`
}

type summaryData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// decodeStep converts a loose step payload into its typed form
func decodeStep(id models.StepID, data map[string]any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return models.ValidationError{Field: string(id), Message: "unreadable step data"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return models.ValidationError{Field: string(id), Message: fmt.Sprintf("invalid step data: %v", err)}
	}
	return nil
}

// applyStep validates data for the step and folds it into the progress fields.
// When completed is true the step's required values must be known afterwards.
func applyStep(p *models.OnboardingProgress, id models.StepID, data map[string]any, completed bool) error {
	switch id {
	case models.StepLanguage:
		var d languageData
		if err := decodeStep(id, data, &d); err != nil {
			return err
		}
		if d.Language != "" {
			if err := validation.ValidateLanguage(d.Language); err != nil {
				return err
			}
			p.Language = d.Language
		}
		if completed && p.Language == "" {
			return models.ValidationError{Field: "language", Message: "language is required"}
		}

	case models.StepInteractionMode:
		var d interactionData
		if err := decodeStep(id, data, &d); err != nil {
			return err
		}
		if d.InteractionMode != "" {
			if err := validation.ValidateInteractionMode(d.InteractionMode); err != nil {
				return err
			}
			p.InteractionMode = d.InteractionMode
		}

	case models.StepDisabilityDisclosure:
		var d disclosureData
		if err := decodeStep(id, data, &d); err != nil {
			return err
		}
		if d.PreferNotToSay {
			p.Disabilities = models.NewDisabilitySet()
			break
		}
		if d.Disabilities != nil {
			for _, dis := range d.Disabilities {
				if !dis.Valid() {
					return models.ValidationError{Field: "disabilities", Message: fmt.Sprintf("unknown disability %q", dis)}
				}
			}
			p.Disabilities = models.NewDisabilitySet(d.Disabilities...)
		}

	case models.StepAccessibilityToggles:
		var t models.AccessibilityToggles
		if err := decodeStep(id, data, &t); err != nil {
			return err
		}
		if err := validateToggles(t); err != nil {
			return err
		}
		p.AccessibilityToggles = t

	case models.StepCognitiveQuiz:
		var d quizData
		if err := decodeStep(id, data, &d); err != nil {
			return err
		}
		if d.Skipped {
			p.QuizSkipped = true
			p.CognitiveScore = 0
		}
		if completed && !p.QuizSkipped && p.CognitiveScore == 0 {
			return models.ValidationError{Field: "cognitiveScore", Message: "answer the quiz or skip it"}
		}

	case models.StepSummary:
		var d summaryData
		if err := decodeStep(id, data, &d); err != nil {
			return err
		}
		if d.Name != "" {
			if err := validation.ValidateName(d.Name); err != nil {
				return err
			}
		}
		if d.Email != "" {
			if err := validation.ValidateEmail(d.Email); err != nil {
				return err
			}
		}
		if d.Phone != "" {
			if err := validation.ValidatePhone(d.Phone); err != nil {
				return err
			}
		}

	default:
		return models.ErrInvalidStep
	}
	return nil
}

func validateToggles(t models.AccessibilityToggles) error {
	if t.FontSize != nil && (*t.FontSize < models.MinFontSize || *t.FontSize > models.MaxFontSize) {
		return models.ValidationError{Field: "fontSize", Message: fmt.Sprintf("font size must be between %d and %d", models.MinFontSize, models.MaxFontSize)}
	}
	if t.TTSSpeed != nil && (*t.TTSSpeed < models.MinTTSSpeed || *t.TTSSpeed > models.MaxTTSSpeed) {
		return models.ValidationError{Field: "ttsSpeed", Message: "speech rate must be between 0.5 and 2.0"}
	}
	if t.Font != nil && *t.Font != models.FontInter && *t.Font != models.FontAtkinson {
		return models.ValidationError{Field: "font", Message: fmt.Sprintf("unknown font %q", *t.Font)}
	}
	return nil
}

// skipsQuiz reports whether the cognitive quiz is skipped for this progress
func skipsQuiz(p *models.OnboardingProgress) bool {
	return p.Disabilities.Empty() || p.AccessibilityToggles.OptOutAssist
}
