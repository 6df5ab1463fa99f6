package voice

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"fourall/internal/models"
)

//go:embed commands.yaml
var defaultCommands []byte

// Intent is what a recognized utterance asks for
type Intent int

const (
	IntentNone Intent = iota
	IntentLanguage
	IntentYes
	IntentNo
	IntentPreferNot
	IntentDisability
	IntentQuizOption
	IntentContinue
	IntentBack
	IntentHelp
	IntentUnrecognized
)

var intentNames = [...]string{
	IntentNone:         "none",
	IntentLanguage:     "language",
	IntentYes:          "yes",
	IntentNo:           "no",
	IntentPreferNot:    "prefer_not",
	IntentDisability:   "disability",
	IntentQuizOption:   "quiz_option",
	IntentContinue:     "continue",
	IntentBack:         "back",
	IntentHelp:         "help",
	IntentUnrecognized: "unrecognized",
}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return fmt.Sprintf("Intent(%d)", int(i))
	}
	return intentNames[i]
}

func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// ParseIntent is the inverse of Intent.String
func ParseIntent(s string) (Intent, error) {
	for i, name := range intentNames {
		if name == s {
			return Intent(i), nil
		}
	}
	return IntentNone, fmt.Errorf("unknown intent %q", s)
}

// Context selects which rules apply to an utterance
type Context string

const (
	ContextLanguage   Context = "language"
	ContextMode       Context = "interaction_mode"
	ContextDisclosure Context = "disability_disclosure"
	ContextQuiz       Context = "cognitive_quiz"
	ContextNavigation Context = "navigation"
)

// ContextForStep returns the interaction context of an onboarding step
func ContextForStep(id models.StepID) Context {
	switch id {
	case models.StepLanguage:
		return ContextLanguage
	case models.StepInteractionMode:
		return ContextMode
	case models.StepDisabilityDisclosure:
		return ContextDisclosure
	case models.StepCognitiveQuiz:
		return ContextQuiz
	default:
		return ContextNavigation
	}
}

// Match is the result of interpreting one transcript
type Match struct {
	Intent     Intent `json:"intent"`
	Value      string `json:"value,omitempty"`
	Transcript string `json:"transcript"`
}

// Language returns the matched language of an IntentLanguage match
func (m Match) Language() models.Language {
	return models.Language(m.Value)
}

// Disability returns the matched category of an IntentDisability match
func (m Match) Disability() models.Disability {
	return models.Disability(m.Value)
}

// OptionIndex returns the zero-based option of an IntentQuizOption match, or -1
func (m Match) OptionIndex() int {
	n, err := strconv.Atoi(m.Value)
	if err != nil {
		return -1
	}
	return n
}

type rule struct {
	intent  Intent
	value   string
	phrases [][]string
	display string
}

type ruleFile struct {
	Contexts map[Context][]struct {
		Intent  string   `yaml:"intent"`
		Value   string   `yaml:"value"`
		Phrases []string `yaml:"phrases"`
	} `yaml:"contexts"`
}

// Speaker is the part of Adapter the interpreter drives
type Speaker interface {
	Transcript() string
	ClearTranscript()
	Speak(text string, opts SpeakOptions) error
}

// Interpreter maps final transcripts to intents with an ordered keyword rule table
type Interpreter struct {
	rules  map[Context][]rule
	logger *zap.Logger
}

// NewInterpreter loads the built-in rule table
func NewInterpreter(logger *zap.Logger) (*Interpreter, error) {
	return NewInterpreterFromYAML(defaultCommands, logger)
}

// NewInterpreterFromYAML loads a rule table in the commands.yaml format
func NewInterpreterFromYAML(data []byte, logger *zap.Logger) (*Interpreter, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse command rules: %w", err)
	}

	in := &Interpreter{rules: make(map[Context][]rule, len(f.Contexts)), logger: logger}
	for ctx, raw := range f.Contexts {
		for i, r := range raw {
			intent, err := ParseIntent(r.Intent)
			if err != nil {
				return nil, fmt.Errorf("%s rule %d: %w", ctx, i, err)
			}
			if len(r.Phrases) == 0 {
				return nil, fmt.Errorf("%s rule %d: no phrases", ctx, i)
			}
			compiled := rule{intent: intent, value: r.Value, display: r.Phrases[0]}
			for _, p := range r.Phrases {
				words := tokenize(p)
				if len(words) == 0 {
					return nil, fmt.Errorf("%s rule %d: empty phrase", ctx, i)
				}
				compiled.phrases = append(compiled.phrases, words)
			}
			in.rules[ctx] = append(in.rules[ctx], compiled)
		}
	}
	return in, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
}

// containsWords reports whether phrase occurs as a contiguous word sequence in words
func containsWords(words, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		ok := true
		for j, w := range phrase {
			if words[i+j] != w {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (in *Interpreter) rulesFor(ctx Context) []rule {
	rules := in.rules[ctx]
	if ctx != ContextNavigation {
		rules = append(rules[:len(rules):len(rules)], in.rules[ContextNavigation]...)
	}
	return rules
}

// Match interprets a transcript in ctx. The first matching rule wins.
func (in *Interpreter) Match(ctx Context, transcript string) Match {
	words := tokenize(transcript)
	if len(words) == 0 {
		return Match{Intent: IntentNone}
	}
	for _, r := range in.rulesFor(ctx) {
		for _, p := range r.phrases {
			if containsWords(words, p) {
				return Match{Intent: r.intent, Value: r.value, Transcript: transcript}
			}
		}
	}
	return Match{Intent: IntentUnrecognized, Transcript: transcript}
}

// HelpText lists what can be said in ctx
func (in *Interpreter) HelpText(ctx Context) string {
	var phrases []string
	seen := make(map[string]bool)
	for _, r := range in.rulesFor(ctx) {
		if !seen[r.display] {
			seen[r.display] = true
			phrases = append(phrases, r.display)
		}
	}
	return "You can say: " + strings.Join(phrases, ", ") + "."
}

const unrecognizedPrompt = "Sorry, I didn't catch that. Please try again, or say help."

// Process interprets the current final transcript of s. The transcript is
// cleared before act runs so one utterance never triggers twice. Help and
// unrecognized utterances are answered by speech and do not reach act.
func (in *Interpreter) Process(s Speaker, ctx Context, act func(Match) error) (Match, error) {
	transcript := s.Transcript()
	m := in.Match(ctx, transcript)
	if m.Intent == IntentNone {
		return m, nil
	}
	s.ClearTranscript()

	switch m.Intent {
	case IntentHelp:
		in.say(s, in.HelpText(ctx))
		return m, nil
	case IntentUnrecognized:
		in.say(s, unrecognizedPrompt)
		return m, nil
	}

	in.logger.Debug("voice command", zap.String("context", string(ctx)), zap.Stringer("intent", m.Intent), zap.String("value", m.Value))
	if act == nil {
		return m, nil
	}
	if err := act(m); err != nil {
		return m, err
	}
	return m, nil
}

func (in *Interpreter) say(s Speaker, text string) {
	if err := s.Speak(text, SpeakOptions{}); err != nil {
		in.logger.Debug("prompt not spoken", zap.Error(err))
	}
}
