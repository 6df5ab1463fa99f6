// Package voice puts platform speech recognition and synthesis behind one
// contract and turns recognized speech into onboarding choices.
package voice

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"fourall/internal/models"
)

const (
	msgRecognitionUnsupported = "speech recognition not supported"
	msgSynthesisUnsupported   = "speech synthesis not supported"
	msgTextMode               = "voice input is turned off in text mode"
)

var languageTags = map[models.Language]string{
	models.LanguageEnglish: "en-US",
	models.LanguagePidgin:  "en-NG",
	models.LanguageYoruba:  "yo-NG",
	models.LanguageIgbo:    "ig-NG",
	models.LanguageHausa:   "ha-NG",
}

// LanguageTag maps a profile language to its speech platform tag
func LanguageTag(lang models.Language) string {
	if tag, ok := languageTags[lang]; ok {
		return tag
	}
	return languageTags[models.LanguageEnglish]
}

// Voice is one synthesis voice offered by the platform
type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default"`
}

// Utterance is a single synthesis request
type Utterance struct {
	Text  string
	Lang  string
	Rate  float64
	Voice *Voice
}

// Recognizer is the platform speech recognizer. Results and errors are
// delivered back through Adapter.HandleResult and Adapter.HandleError.
// Start always requests continuous recognition with interim results.
type Recognizer interface {
	Start(lang string) error
	Stop()
}

// Synthesizer is the platform speech synthesizer. onEnd is called once when
// the utterance finishes playing, and never for a cancelled utterance.
type Synthesizer interface {
	Voices() []Voice
	Speak(u Utterance, onEnd func()) error
	Cancel()
}

// ProfileSource supplies the language, interaction mode and speech rate in effect
type ProfileSource interface {
	Profile() models.UserProfile
}

// StaticProfile is a ProfileSource that never changes
type StaticProfile models.UserProfile

func (p StaticProfile) Profile() models.UserProfile { return models.UserProfile(p) }

// SpeakOptions override profile settings for one utterance
type SpeakOptions struct {
	Rate     float64
	Language models.Language
}

// State is a snapshot of the adapter
type State struct {
	Listening           bool   `json:"isListening"`
	Speaking            bool   `json:"isSpeaking"`
	Transcript          string `json:"transcript"`
	InterimTranscript   string `json:"interimTranscript"`
	Error               string `json:"error,omitempty"`
	SupportsRecognition bool   `json:"supportsRecognition"`
	SupportsSynthesis   bool   `json:"supportsSynthesis"`
}

// Adapter is the voice I/O contract used by the rest of the app
type Adapter struct {
	rec     Recognizer
	syn     Synthesizer
	profile ProfileSource
	logger  *zap.Logger

	mu          sync.Mutex
	listening   bool
	speaking    bool
	transcript  string
	interim     string
	err         string
	utterance   uint64
	listenTimer *time.Timer
}

// NewAdapter creates an adapter. rec or syn may be nil when the platform lacks the capability.
func NewAdapter(rec Recognizer, syn Synthesizer, profile ProfileSource, logger *zap.Logger) *Adapter {
	a := &Adapter{rec: rec, syn: syn, profile: profile, logger: logger}
	switch {
	case rec == nil:
		a.err = msgRecognitionUnsupported
	case syn == nil:
		a.err = msgSynthesisUnsupported
	}
	return a
}

func (a *Adapter) SupportsRecognition() bool { return a.rec != nil }

func (a *Adapter) SupportsSynthesis() bool { return a.syn != nil }

func (a *Adapter) setError(msg string) {
	a.mu.Lock()
	a.err = msg
	a.mu.Unlock()
}

// StartListening begins continuous recognition in the profile language.
// Unsupported platforms and text mode leave it a no-op with Error set.
func (a *Adapter) StartListening() error {
	if a.rec == nil {
		a.setError(msgRecognitionUnsupported)
		return models.ErrUnsupported
	}
	p := a.profile.Profile()
	if p.InteractionMode == models.InteractionText {
		a.setError(msgTextMode)
		return models.ErrTextMode
	}

	a.mu.Lock()
	if a.listening {
		a.mu.Unlock()
		return nil
	}
	a.listening = true
	a.interim = ""
	a.err = ""
	a.mu.Unlock()

	tag := LanguageTag(p.Language)
	if err := a.rec.Start(tag); err != nil {
		a.mu.Lock()
		a.listening = false
		a.err = "could not start listening"
		a.mu.Unlock()
		return fmt.Errorf("start recognition: %w", err)
	}
	a.logger.Debug("listening", zap.String("lang", tag))
	return nil
}

// StopListening halts recognition. Safe to call repeatedly.
func (a *Adapter) StopListening() {
	a.mu.Lock()
	if a.listenTimer != nil {
		a.listenTimer.Stop()
		a.listenTimer = nil
	}
	if !a.listening {
		a.mu.Unlock()
		return
	}
	a.listening = false
	a.interim = ""
	a.mu.Unlock()

	a.rec.Stop()
}

// ListenFor starts listening and stops again after d
func (a *Adapter) ListenFor(d time.Duration) error {
	if err := a.StartListening(); err != nil {
		return err
	}
	a.mu.Lock()
	if a.listenTimer != nil {
		a.listenTimer.Stop()
	}
	a.listenTimer = time.AfterFunc(d, a.StopListening)
	a.mu.Unlock()
	return nil
}

// Speak cancels any utterance in flight and says text
func (a *Adapter) Speak(text string, opts SpeakOptions) error {
	return a.speak(text, opts, nil)
}

// SpeakThenListen says text and starts listening once the platform reports the utterance finished
func (a *Adapter) SpeakThenListen(text string) error {
	return a.speak(text, SpeakOptions{}, func() {
		if err := a.StartListening(); err != nil {
			a.logger.Debug("listen after prompt failed", zap.Error(err))
		}
	})
}

func (a *Adapter) speak(text string, opts SpeakOptions, after func()) error {
	if a.syn == nil {
		a.setError(msgSynthesisUnsupported)
		return models.ErrUnsupported
	}
	p := a.profile.Profile()
	if p.InteractionMode == models.InteractionText {
		return models.ErrTextMode
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = p.AccessibilityPreferences.TTSSpeed
	}
	if rate <= 0 {
		rate = 1.0
	}
	rate = min(max(rate, models.MinTTSSpeed), models.MaxTTSSpeed)

	lang := p.Language
	if opts.Language != "" {
		lang = opts.Language
	}
	tag := LanguageTag(lang)

	a.mu.Lock()
	a.utterance++
	id := a.utterance
	a.speaking = true
	a.mu.Unlock()

	a.syn.Cancel()
	u := Utterance{Text: text, Lang: tag, Rate: rate, Voice: pickVoice(a.syn.Voices(), tag)}
	if err := a.syn.Speak(u, func() { a.utteranceEnded(id, after) }); err != nil {
		a.mu.Lock()
		if a.utterance == id {
			a.speaking = false
		}
		a.err = "could not play speech"
		a.mu.Unlock()
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

func (a *Adapter) utteranceEnded(id uint64, after func()) {
	a.mu.Lock()
	if id != a.utterance {
		a.mu.Unlock()
		return
	}
	a.speaking = false
	a.mu.Unlock()

	if after != nil {
		after()
	}
}

// pickVoice returns the voice whose language equals tag, else the first voice
// for the tag's primary language, else the platform default voice, else nil
func pickVoice(voices []Voice, tag string) *Voice {
	prefix, _, _ := strings.Cut(strings.ToLower(tag), "-")
	var primary, def *Voice
	for i := range voices {
		v := &voices[i]
		lang := strings.ToLower(v.Lang)
		if strings.EqualFold(v.Lang, tag) {
			return v
		}
		if primary == nil && (lang == prefix || strings.HasPrefix(lang, prefix+"-")) {
			primary = v
		}
		if v.Default && def == nil {
			def = v
		}
	}
	if primary != nil {
		return primary
	}
	return def
}

// StopSpeaking cancels synthesis. Safe to call repeatedly.
func (a *Adapter) StopSpeaking() {
	a.mu.Lock()
	a.utterance++
	a.speaking = false
	a.mu.Unlock()

	if a.syn != nil {
		a.syn.Cancel()
	}
}

// HandleResult receives a recognition result. Final results are appended to
// the transcript; interim results replace the interim transcript.
func (a *Adapter) HandleResult(text string, final bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.listening {
		return
	}
	text = strings.TrimSpace(text)
	if !final {
		a.interim = text
		return
	}
	a.interim = ""
	if text == "" {
		return
	}
	if a.transcript != "" {
		a.transcript += " "
	}
	a.transcript += text
}

// HandleError records a platform recognition error and stops listening
func (a *Adapter) HandleError(msg string) {
	a.mu.Lock()
	a.err = msg
	wasListening := a.listening
	a.listening = false
	a.interim = ""
	if a.listenTimer != nil {
		a.listenTimer.Stop()
		a.listenTimer = nil
	}
	a.mu.Unlock()

	a.logger.Info("recognition error", zap.String("error", msg))
	if wasListening && a.rec != nil {
		a.rec.Stop()
	}
}

// ClearTranscript must be called after consuming a final transcript
func (a *Adapter) ClearTranscript() {
	a.mu.Lock()
	a.transcript = ""
	a.interim = ""
	a.mu.Unlock()
}

func (a *Adapter) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript
}

func (a *Adapter) InterimTranscript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

func (a *Adapter) IsListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

func (a *Adapter) IsSpeaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking
}

// Error returns the last capability or platform error, or ""
func (a *Adapter) Error() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// State returns a consistent snapshot
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		Listening:           a.listening,
		Speaking:            a.speaking,
		Transcript:          a.transcript,
		InterimTranscript:   a.interim,
		Error:               a.err,
		SupportsRecognition: a.rec != nil,
		SupportsSynthesis:   a.syn != nil,
	}
}

// Close stops all activity
func (a *Adapter) Close() {
	a.StopListening()
	a.StopSpeaking()
}
