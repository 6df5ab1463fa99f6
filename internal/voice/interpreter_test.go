package voice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fourall/internal/logger"
	"fourall/internal/models"
)

func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	in, err := NewInterpreter(logger.NewNop())
	require.NoError(t, err)
	return in
}

func TestInterpreter_Match(t *testing.T) {
	in := newTestInterpreter(t)

	tests := []struct {
		name       string
		ctx        Context
		transcript string
		intent     Intent
		value      string
	}{
		{"language", ContextLanguage, "I speak Yoruba", IntentLanguage, "yo"},
		{"pidgin before english", ContextLanguage, "broken English abeg", IntentLanguage, "pcm"},
		{"language case", ContextLanguage, "HAUSA", IntentLanguage, "ha"},
		{"mode text", ContextMode, "I prefer to type", IntentNo, "text"},
		{"mode voice", ContextMode, "yes voice please", IntentYes, "voice"},
		{"prefer not", ContextDisclosure, "I'd rather not say", IntentPreferNot, ""},
		{"no beats category", ContextDisclosure, "no problem with my eyes", IntentNo, ""},
		{"disability", ContextDisclosure, "I am partially blind", IntentDisability, "visual"},
		{"word boundary", ContextDisclosure, "I know my hearing is weak", IntentDisability, "hearing"},
		{"quiz number", ContextQuiz, "option two", IntentQuizOption, "1"},
		{"quiz digit", ContextQuiz, "3", IntentQuizOption, "2"},
		{"navigation in context", ContextDisclosure, "go back", IntentBack, ""},
		{"help", ContextLanguage, "help me", IntentHelp, ""},
		{"continue", ContextNavigation, "next", IntentContinue, ""},
		{"unrecognized", ContextLanguage, "french", IntentUnrecognized, ""},
		{"empty", ContextLanguage, "  ", IntentNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := in.Match(tt.ctx, tt.transcript)
			assert.Equal(t, tt.intent, m.Intent)
			assert.Equal(t, tt.value, m.Value)
		})
	}
}

func TestInterpreter_ContextForStep(t *testing.T) {
	assert.Equal(t, ContextLanguage, ContextForStep(models.StepLanguage))
	assert.Equal(t, ContextQuiz, ContextForStep(models.StepCognitiveQuiz))
	assert.Equal(t, ContextNavigation, ContextForStep(models.StepSummary))
	assert.Equal(t, ContextNavigation, ContextForStep(models.StepAccessibilityToggles))
}

func TestInterpreter_MatchAccessors(t *testing.T) {
	assert.Equal(t, models.LanguageIgbo, Match{Value: "ig"}.Language())
	assert.Equal(t, models.DisabilityMotor, Match{Value: "motor"}.Disability())
	assert.Equal(t, 2, Match{Value: "2"}.OptionIndex())
	assert.Equal(t, -1, Match{}.OptionIndex())
}

func TestIntent_StringRoundTrip(t *testing.T) {
	for i := IntentNone; i <= IntentUnrecognized; i++ {
		parsed, err := ParseIntent(i.String())
		require.NoError(t, err)
		assert.Equal(t, i, parsed)
	}
	_, err := ParseIntent("dance")
	assert.Error(t, err)
}

func TestNewInterpreterFromYAML_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "contexts: [",
		"unknown intent": "contexts:\n  language:\n    - intent: dance\n      phrases: [x]\n",
		"no phrases":     "contexts:\n  language:\n    - intent: help\n",
		"empty phrase":   "contexts:\n  language:\n    - intent: help\n      phrases: [\"!!\"]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewInterpreterFromYAML([]byte(doc), logger.NewNop())
			assert.Error(t, err)
		})
	}
}

// scriptedSpeaker records the order of interpreter calls
type scriptedSpeaker struct {
	transcript string
	calls      []string
	spoken     []string
}

func (s *scriptedSpeaker) Transcript() string { return s.transcript }

func (s *scriptedSpeaker) ClearTranscript() {
	s.calls = append(s.calls, "clear")
	s.transcript = ""
}

func (s *scriptedSpeaker) Speak(text string, _ SpeakOptions) error {
	s.calls = append(s.calls, "speak")
	s.spoken = append(s.spoken, text)
	return nil
}

func TestInterpreter_ProcessClearsBeforeActing(t *testing.T) {
	in := newTestInterpreter(t)
	s := &scriptedSpeaker{transcript: "igbo"}

	var acted []Match
	m, err := in.Process(s, ContextLanguage, func(m Match) error {
		s.calls = append(s.calls, "act")
		acted = append(acted, m)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, IntentLanguage, m.Intent)
	assert.Equal(t, []string{"clear", "act"}, s.calls)

	// The same utterance is not processed twice
	m, err = in.Process(s, ContextLanguage, func(Match) error {
		t.Fatal("act called for an already consumed transcript")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, IntentNone, m.Intent)
	assert.Len(t, acted, 1)
}

func TestInterpreter_ProcessHelpAndUnrecognized(t *testing.T) {
	in := newTestInterpreter(t)

	s := &scriptedSpeaker{transcript: "help"}
	_, err := in.Process(s, ContextLanguage, func(Match) error {
		t.Fatal("help must not reach act")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, s.spoken, 1)
	assert.Contains(t, s.spoken[0], "yoruba")
	assert.Contains(t, s.spoken[0], "continue")

	s = &scriptedSpeaker{transcript: "bonjour"}
	m, err := in.Process(s, ContextLanguage, nil)
	require.NoError(t, err)
	assert.Equal(t, IntentUnrecognized, m.Intent)
	assert.Equal(t, []string{"clear", "speak"}, s.calls)
	assert.Equal(t, unrecognizedPrompt, s.spoken[0])
}

func TestInterpreter_ProcessReturnsActError(t *testing.T) {
	in := newTestInterpreter(t)
	s := &scriptedSpeaker{transcript: "continue"}

	boom := errors.New("boom")
	_, err := in.Process(s, ContextNavigation, func(Match) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.transcript)
}
