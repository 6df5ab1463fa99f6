package voice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fourall/internal/models"
)

// ProfileLookup resolves the profile in effect for a session
type ProfileLookup interface {
	VoiceProfile(ctx context.Context, sessionID string) models.UserProfile
}

// Session is the voice state of one client session
type Session struct {
	Adapter    *Adapter
	Audio      *AudioSynthesizer
	Recognizer *RelayRecognizer
}

type poolEntry struct {
	session  *Session
	lastUsed time.Time
}

// SessionPool keeps one adapter per session and evicts idle ones
type SessionPool struct {
	tts      *TTSService
	profiles ProfileLookup
	idleTTL  time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*poolEntry
}

// NewSessionPool creates a pool. timeout bounds each synthesis request.
func NewSessionPool(tts *TTSService, profiles ProfileLookup, idleTTL, timeout time.Duration, logger *zap.Logger) *SessionPool {
	return &SessionPool{
		tts:      tts,
		profiles: profiles,
		idleTTL:  idleTTL,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]*poolEntry),
	}
}

type sessionProfile struct {
	lookup    ProfileLookup
	sessionID string
	timeout   time.Duration
}

func (s sessionProfile) Profile() models.UserProfile {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.lookup.VoiceProfile(ctx, s.sessionID)
}

// Get returns the session's voice state, creating it on first use
func (p *SessionPool) Get(sessionID string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[sessionID]; ok {
		e.lastUsed = p.now()
		return e.session
	}

	rec := NewRelayRecognizer()
	syn := NewAudioSynthesizer(p.tts, p.timeout, p.logger)
	src := sessionProfile{lookup: p.profiles, sessionID: sessionID, timeout: 2 * time.Second}
	s := &Session{
		Adapter:    NewAdapter(rec, syn, src, p.logger.With(zap.String("session_id", sessionID))),
		Audio:      syn,
		Recognizer: rec,
	}
	p.entries[sessionID] = &poolEntry{session: s, lastUsed: p.now()}
	return s
}

// Len returns the number of live sessions
func (p *SessionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Evict closes and drops sessions idle for longer than the TTL
func (p *SessionPool) Evict() int {
	cutoff := p.now().Add(-p.idleTTL)

	p.mu.Lock()
	var idle []*Session
	for id, e := range p.entries {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.session)
			delete(p.entries, id)
		}
	}
	p.mu.Unlock()

	for _, s := range idle {
		s.Adapter.Close()
	}
	if len(idle) > 0 {
		p.logger.Debug("evicted idle voice sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run evicts idle sessions every interval until ctx is done
func (p *SessionPool) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Evict()
		}
	}
}
