package voice

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clip is synthesized speech waiting to be played by the client
type Clip struct {
	Key  string  `json:"key"`
	Text string  `json:"text"`
	Lang string  `json:"lang"`
	Rate float64 `json:"rate"`
}

// AudioSynthesizer implements Synthesizer for a remote client: speech is
// rendered to a stored clip and the client reports when playback ended.
type AudioSynthesizer struct {
	tts     *TTSService
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending *Clip
	onEnd   func()
}

// NewAudioSynthesizer creates a synthesizer rendering through tts
func NewAudioSynthesizer(tts *TTSService, timeout time.Duration, logger *zap.Logger) *AudioSynthesizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AudioSynthesizer{tts: tts, timeout: timeout, logger: logger}
}

// Voices lists one voice per supported language tag
func (s *AudioSynthesizer) Voices() []Voice {
	tags := make([]string, 0, len(languageTags))
	for _, tag := range languageTags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	voices := make([]Voice, 0, len(tags))
	for _, tag := range tags {
		voices = append(voices, Voice{Name: "fourall " + tag, Lang: tag, Default: tag == "en-US"})
	}
	return voices
}

// Speak renders the utterance and makes it the pending clip
func (s *AudioSynthesizer) Speak(u Utterance, onEnd func()) error {
	lang := u.Lang
	if u.Voice != nil {
		lang = u.Voice.Lang
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	key, err := s.tts.Synthesize(ctx, u.Text, lang, u.Rate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = &Clip{Key: key, Text: u.Text, Lang: lang, Rate: u.Rate}
	s.onEnd = onEnd
	s.mu.Unlock()
	return nil
}

// Cancel drops the pending clip without calling its end callback
func (s *AudioSynthesizer) Cancel() {
	s.mu.Lock()
	s.pending = nil
	s.onEnd = nil
	s.mu.Unlock()
}

// Pending returns the clip the client should play, if any
func (s *AudioSynthesizer) Pending() (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Clip{}, false
	}
	return *s.pending, true
}

// Ended is reported by the client once the clip with key finished playing.
// Reports for a clip that is no longer pending are ignored.
func (s *AudioSynthesizer) Ended(key string) bool {
	s.mu.Lock()
	if s.pending == nil || s.pending.Key != key {
		s.mu.Unlock()
		return false
	}
	onEnd := s.onEnd
	s.pending = nil
	s.onEnd = nil
	s.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
	return true
}

// RelayRecognizer implements Recognizer for a client that runs recognition
// itself and posts results back to the server
type RelayRecognizer struct {
	mu     sync.Mutex
	active bool
	lang   string
}

func NewRelayRecognizer() *RelayRecognizer {
	return &RelayRecognizer{}
}

func (r *RelayRecognizer) Start(lang string) error {
	r.mu.Lock()
	r.active = true
	r.lang = lang
	r.mu.Unlock()
	return nil
}

func (r *RelayRecognizer) Stop() {
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()
}

// Active reports whether the client should be recognizing, and in which language
func (r *RelayRecognizer) Active() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.lang
}
