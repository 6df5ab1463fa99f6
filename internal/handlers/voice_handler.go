package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"fourall/internal/models"
	"fourall/internal/onboarding"
	"fourall/internal/storage"
	"fourall/internal/voice"
)

// VoiceSessions hands out the per-session voice state
type VoiceSessions interface {
	Get(sessionID string) *voice.Session
}

// AudioSource opens synthesized clips
type AudioSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// VoiceHandler bridges client-side speech I/O to the voice adapter and
// drives onboarding from recognized commands
type VoiceHandler struct {
	sessions    VoiceSessions
	interpreter *voice.Interpreter
	onboarding  OnboardingService
	audio       AudioSource
	logger      *zap.Logger
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(sessions VoiceSessions, interpreter *voice.Interpreter, svc OnboardingService, audio AudioSource, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		sessions:    sessions,
		interpreter: interpreter,
		onboarding:  svc,
		audio:       audio,
		logger:      logger,
	}
}

var audioKeyPattern = regexp.MustCompile(`^[0-9a-f]{32}\.mp3$`)

type resultRequest struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
	Error      string `json:"error,omitempty"`
}

type listenRequest struct {
	Listen     bool `json:"listen"`
	DurationMs int  `json:"durationMs,omitempty"`
}

type speakRequest struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate,omitempty"`
	Listen bool    `json:"listen,omitempty"`
}

type endedRequest struct {
	Key string `json:"key"`
}

type voiceStateResponse struct {
	State        voice.State `json:"state"`
	Clip         *voice.Clip `json:"clip,omitempty"`
	RecognizeFor string      `json:"recognizeLang,omitempty"`
}

type resultResponse struct {
	voiceStateResponse
	Match    *voice.Match               `json:"match,omitempty"`
	Progress *models.OnboardingProgress `json:"progress,omitempty"`
	Profile  *models.UserProfile        `json:"profile,omitempty"`
	Summary  string                     `json:"summary,omitempty"`
	Message  string                     `json:"message,omitempty"`
}

func stateOf(s *voice.Session) voiceStateResponse {
	resp := voiceStateResponse{State: s.Adapter.State()}
	if clip, ok := s.Audio.Pending(); ok {
		resp.Clip = &clip
	}
	if active, lang := s.Recognizer.Active(); active {
		resp.RecognizeFor = lang
	}
	return resp
}

// State returns the adapter snapshot, the clip to play and the recognition language
func (h *VoiceHandler) State(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(GetSessionID(r.Context()))
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Listen starts or stops recognition. A positive duration stops it automatically.
func (h *VoiceHandler) Listen(w http.ResponseWriter, r *http.Request) {
	var req listenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad listen request", err)
		return
	}

	s := h.sessions.Get(GetSessionID(r.Context()))
	var err error
	switch {
	case !req.Listen:
		s.Adapter.StopListening()
	case req.DurationMs > 0:
		err = s.Adapter.ListenFor(time.Duration(req.DurationMs) * time.Millisecond)
	default:
		err = s.Adapter.StartListening()
	}
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to change listening", err)
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Speak renders text for the client to play
func (h *VoiceHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad speak request", err)
		return
	}
	if req.Text == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "Nothing to say.", Field: "text"})
		return
	}

	s := h.sessions.Get(GetSessionID(r.Context()))
	var err error
	if req.Listen {
		err = s.Adapter.SpeakThenListen(req.Text)
	} else {
		err = s.Adapter.Speak(req.Text, voice.SpeakOptions{Rate: req.Rate})
	}
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to speak", err)
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Ended is reported by the client when a clip finished playing
func (h *VoiceHandler) Ended(w http.ResponseWriter, r *http.Request) {
	var req endedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad ended request", err)
		return
	}

	s := h.sessions.Get(GetSessionID(r.Context()))
	s.Audio.Ended(req.Key)
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Clear empties the transcript
func (h *VoiceHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(GetSessionID(r.Context()))
	s.Adapter.ClearTranscript()
	w.WriteHeader(http.StatusNoContent)
}

// Audio streams a synthesized clip
func (h *VoiceHandler) Audio(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !audioKeyPattern.MatchString(key) {
		respondJSON(w, http.StatusNotFound, errorBody{Error: ErrNotFoundMsg})
		return
	}

	rc, err := h.audio.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, errorBody{Error: ErrNotFoundMsg})
		return
	}
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "failed to open audio", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Debug("audio stream interrupted", zap.String("key", key), zap.Error(err))
	}
}

// Results receives a recognition result. Final results are interpreted in
// the context of the current onboarding step and applied to the progress.
func (h *VoiceHandler) Results(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad voice result", err)
		return
	}

	ctx := r.Context()
	sessionID := GetSessionID(ctx)
	s := h.sessions.Get(sessionID)

	if req.Error != "" {
		s.Adapter.HandleError(req.Error)
		respondJSON(w, http.StatusOK, resultResponse{voiceStateResponse: stateOf(s)})
		return
	}
	s.Adapter.HandleResult(req.Transcript, req.Final)
	if !req.Final {
		respondJSON(w, http.StatusOK, resultResponse{voiceStateResponse: stateOf(s)})
		return
	}

	status, err := h.onboarding.Status(ctx, sessionID)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to load onboarding for voice", err)
		return
	}

	progress := status.Progress
	vctx := voice.ContextNavigation
	if progress != nil {
		vctx = voice.ContextForStep(progress.Current().ID)
	}

	var done *onboarding.CompletionResult
	match, err := h.interpreter.Process(s.Adapter, vctx, func(m voice.Match) error {
		if progress == nil {
			return nil
		}
		updated, result, err := h.apply(ctx, sessionID, progress, m)
		if err != nil {
			return err
		}
		switch {
		case result != nil:
			if serr := s.Adapter.Speak(result.Summary, voice.SpeakOptions{}); serr != nil {
				h.logger.Debug("completion summary not spoken", zap.Error(serr))
			}
		case updated.CurrentStep != progress.CurrentStep:
			h.prompt(s, updated)
		}
		progress, done = updated, result
		return nil
	})

	resp := resultResponse{Progress: progress}
	if done != nil {
		resp.Profile, resp.Summary = done.Profile, done.Summary
	}
	if match.Intent != voice.IntentNone {
		resp.Match = &match
	}
	if err != nil {
		msg, ok := spokenError(err)
		if !ok {
			respondWithDomainError(w, h.logger, "voice command failed", err)
			return
		}
		if serr := s.Adapter.Speak(msg, voice.SpeakOptions{}); serr != nil {
			h.logger.Debug("error prompt not spoken", zap.Error(serr))
		}
		resp.Message = msg
	}

	resp.voiceStateResponse = stateOf(s)
	respondJSON(w, http.StatusOK, resp)
}

// apply turns a recognized command into an onboarding change. The
// completion result is set when "continue" on the summary finishes onboarding.
func (h *VoiceHandler) apply(ctx context.Context, sessionID string, p *models.OnboardingProgress, m voice.Match) (*models.OnboardingProgress, *onboarding.CompletionResult, error) {
	step := p.Current()

	next := func(id models.StepID, data map[string]any) (*models.OnboardingProgress, *onboarding.CompletionResult, error) {
		if _, err := h.onboarding.UpdateStep(ctx, sessionID, id, data, true); err != nil {
			return nil, nil, err
		}
		updated, err := h.onboarding.Next(ctx, sessionID)
		return updated, nil, err
	}

	switch m.Intent {
	case voice.IntentLanguage:
		return next(models.StepLanguage, map[string]any{"language": m.Value})

	case voice.IntentYes, voice.IntentNo:
		if step.ID == models.StepInteractionMode {
			return next(step.ID, map[string]any{"interactionMode": m.Value})
		}
		if step.ID == models.StepDisabilityDisclosure && m.Intent == voice.IntentNo {
			return next(step.ID, map[string]any{"disabilities": []string{}})
		}

	case voice.IntentPreferNot:
		return next(models.StepDisabilityDisclosure, map[string]any{"preferNotToSay": true})

	case voice.IntentDisability:
		set := p.Disabilities.Clone()
		if set == nil {
			set = models.NewDisabilitySet()
		}
		set.Add(m.Disability())
		names := make([]string, 0, len(set))
		for _, d := range set.List() {
			names = append(names, string(d))
		}
		updated, err := h.onboarding.UpdateStep(ctx, sessionID, models.StepDisabilityDisclosure, map[string]any{"disabilities": names}, true)
		return updated, nil, err

	case voice.IntentContinue:
		return h.proceed(ctx, sessionID, p)

	case voice.IntentBack:
		updated, err := h.onboarding.Prev(ctx, sessionID)
		return updated, nil, err
	}

	// Quiz answers carry per-question weights only the client knows; it
	// collects them from the returned match and submits the quiz itself.
	return p, nil, nil
}

// proceed handles "continue". Steps whose answers all have defaults are
// accepted as they stand, and continuing past the summary completes onboarding.
func (h *VoiceHandler) proceed(ctx context.Context, sessionID string, p *models.OnboardingProgress) (*models.OnboardingProgress, *onboarding.CompletionResult, error) {
	step := p.Current()
	if !step.Completed && (step.ID == models.StepAccessibilityToggles || step.ID == models.StepSummary) {
		data := step.Data
		if data == nil {
			data = map[string]any{}
		}
		if _, err := h.onboarding.UpdateStep(ctx, sessionID, step.ID, data, true); err != nil {
			return nil, nil, err
		}
	}

	if step.ID != models.StepSummary {
		updated, err := h.onboarding.Next(ctx, sessionID)
		return updated, nil, err
	}

	result, err := h.onboarding.Complete(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	finished := *p
	finished.IsComplete = true
	return &finished, result, nil
}

// prompt announces the new step and listens for the answer
func (h *VoiceHandler) prompt(s *voice.Session, p *models.OnboardingProgress) {
	if err := s.Adapter.SpeakThenListen(p.Current().Title); err != nil {
		h.logger.Debug("step prompt not spoken", zap.Error(err))
	}
}

// spokenError returns the message read back to the user for recoverable command errors
func spokenError(err error) (string, bool) {
	var ve models.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message, true
	case errors.Is(err, models.ErrStepIncomplete):
		return ErrStepIncompleteMsg, true
	case errors.Is(err, models.ErrOnboardingComplete):
		return ErrAlreadyCompleteMsg, true
	}
	return "", false
}

// VoiceProfiles resolves the profile that shapes speech for a session: the
// in-flight onboarding choices first, then the finished profile.
type VoiceProfiles struct {
	profiles   ProfileService
	onboarding OnboardingService
	logger     *zap.Logger
}

// NewVoiceProfiles creates the lookup used by the voice session pool
func NewVoiceProfiles(profiles ProfileService, svc OnboardingService, logger *zap.Logger) *VoiceProfiles {
	return &VoiceProfiles{profiles: profiles, onboarding: svc, logger: logger}
}

func (v *VoiceProfiles) VoiceProfile(ctx context.Context, sessionID string) models.UserProfile {
	status, err := v.onboarding.Status(ctx, sessionID)
	if err != nil {
		v.logger.Debug("voice profile: progress unavailable", zap.Error(err))
	}
	if err == nil && status.HasExistingProgress && !status.Progress.IsComplete {
		pr := status.Progress
		prefs := models.DefaultPreferences()
		if pr.AccessibilityToggles.TTSSpeed != nil {
			prefs.TTSSpeed = *pr.AccessibilityToggles.TTSSpeed
		}
		lang := pr.Language
		if lang == "" {
			lang = models.LanguageEnglish
		}
		return models.UserProfile{
			Language:                 lang,
			InteractionMode:          pr.InteractionMode,
			Disabilities:             pr.Disabilities,
			AccessibilityPreferences: prefs,
		}
	}

	p, err := v.profiles.Get(ctx, sessionID)
	if err == nil {
		return *p
	}
	if !errors.Is(err, models.ErrNotFound) {
		v.logger.Debug("voice profile: profile unavailable", zap.Error(err))
	}
	return models.UserProfile{
		Language:                 models.LanguageEnglish,
		InteractionMode:          models.InteractionVoice,
		AccessibilityPreferences: models.DefaultPreferences(),
	}
}
