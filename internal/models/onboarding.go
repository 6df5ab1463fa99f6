package models

import "time"

// StepID identifies an onboarding step
type StepID string

const (
	StepLanguage             StepID = "language"
	StepInteractionMode      StepID = "interaction_mode"
	StepDisabilityDisclosure StepID = "disability_disclosure"
	StepAccessibilityToggles StepID = "accessibility_toggles"
	StepCognitiveQuiz        StepID = "cognitive_quiz"
	StepSummary              StepID = "summary"
)

// ProgressTTL is how long an untouched onboarding record stays resumable
const ProgressTTL = 7 * 24 * time.Hour

// DefaultCognitiveScore is used when the quiz was skipped
const DefaultCognitiveScore = 5

// OnboardingStep is one entry of the ordered step sequence
type OnboardingStep struct {
	ID        StepID         `json:"id"`
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
	Data      map[string]any `json:"data,omitempty"`
}

// CanonicalSteps returns a fresh copy of the step sequence in its fixed order
func CanonicalSteps() []OnboardingStep {
	return []OnboardingStep{
		{ID: StepLanguage, Title: "Choose your language"},
		{ID: StepInteractionMode, Title: "How would you like to use the app?"},
		{ID: StepDisabilityDisclosure, Title: "Tell us about your needs"},
		{ID: StepAccessibilityToggles, Title: "Adjust accessibility settings"},
		{ID: StepCognitiveQuiz, Title: "A few quick questions"},
		{ID: StepSummary, Title: "Review your setup"},
	}
}

// AccessibilityToggles are explicit choices made on the accessibility_toggles step.
// Nil fields were not touched by the user.
type AccessibilityToggles struct {
	FontSize     *int     `json:"fontSize,omitempty"`
	HighContrast *bool    `json:"highContrast,omitempty"`
	TTSSpeed     *float64 `json:"ttsSpeed,omitempty"`
	LargeTargets *bool    `json:"largeTargets,omitempty"`
	Captions     *bool    `json:"captions,omitempty"`
	Font         *Font    `json:"font,omitempty"`
	OptOutAssist bool     `json:"optOutAssist,omitempty"`
}

// OnboardingProgress is the persisted in-flight state of one onboarding session
type OnboardingProgress struct {
	SessionID            string               `json:"sessionId"`
	CurrentStep          int                  `json:"currentStep"`
	Steps                []OnboardingStep     `json:"steps"`
	StartedAt            time.Time            `json:"startedAt"`
	LastUpdated          time.Time            `json:"lastUpdated"`
	Language             Language             `json:"language"`
	InteractionMode      InteractionMode      `json:"interactionMode"`
	Disabilities         DisabilitySet        `json:"disabilities"`
	CognitiveScore       int                  `json:"cognitiveScore,omitempty"`
	AccessibilityToggles AccessibilityToggles `json:"accessibilityToggles"`
	QuizSkipped          bool                 `json:"quizSkipped,omitempty"`
	IsComplete           bool                 `json:"isComplete"`
}

// IsExpired reports whether the record was last touched more than ttl before now
func (p *OnboardingProgress) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.LastUpdated) > ttl
}

// StepIndex returns the position of id in the step sequence, or -1
func (p *OnboardingProgress) StepIndex(id StepID) int {
	for i, s := range p.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Current returns the step at CurrentStep
func (p *OnboardingProgress) Current() OnboardingStep {
	return p.Steps[p.CurrentStep]
}

// QuizResponse is one answered cognitive quiz question
type QuizResponse struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
	Weight      int    `json:"weight"`
	TimeTakenMs int    `json:"timeTakenMs"`
	Hesitations int    `json:"hesitations"`
}

// OnboardingStatus is what a client sees when it asks about onboarding
type OnboardingStatus struct {
	HasExistingProgress bool                `json:"hasExistingProgress"`
	Progress            *OnboardingProgress `json:"progress,omitempty"`
}
