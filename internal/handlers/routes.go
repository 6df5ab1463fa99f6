package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Handlers groups the API handlers mounted by NewRouter
type Handlers struct {
	Health     *HealthHandler
	Onboarding *OnboardingHandler
	Profile    *ProfileHandler
	Voice      *VoiceHandler
	Queue      *QueueHandler
	Assistant  *AssistantHandler
}

// NewRouter registers every route and wraps the mux in the middleware chain
func NewRouter(h Handlers, m *Middleware, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health.Healthz)

	// Onboarding
	mux.HandleFunc("POST /api/onboarding/start", h.Onboarding.Start)
	mux.HandleFunc("POST /api/onboarding/resume", h.Onboarding.Resume)
	mux.HandleFunc("GET /api/onboarding", h.Onboarding.Get)
	mux.HandleFunc("PUT /api/onboarding/steps/{id}", h.Onboarding.UpdateStep)
	mux.HandleFunc("POST /api/onboarding/next", h.Onboarding.Next)
	mux.HandleFunc("POST /api/onboarding/prev", h.Onboarding.Prev)
	mux.HandleFunc("POST /api/onboarding/quiz", h.Onboarding.SubmitQuiz)
	mux.HandleFunc("POST /api/onboarding/complete", h.Onboarding.Complete)

	// Profile and confirmation
	mux.HandleFunc("GET /api/profile", h.Profile.GetProfile)
	mux.HandleFunc("PATCH /api/profile", h.Profile.UpdateProfile)
	mux.HandleFunc("DELETE /api/profile", h.Profile.DeleteProfile)
	mux.HandleFunc("GET /api/ui-config", h.Profile.UIConfig)
	mux.HandleFunc("POST /api/confirm/pin", h.Profile.SetPIN)
	mux.HandleFunc("POST /api/confirm/verify", h.Profile.VerifyPIN)

	// Voice
	mux.HandleFunc("POST /api/voice/results", h.Voice.Results)
	mux.HandleFunc("GET /api/voice/state", h.Voice.State)
	mux.HandleFunc("POST /api/voice/listen", h.Voice.Listen)
	mux.HandleFunc("POST /api/voice/speak", h.Voice.Speak)
	mux.HandleFunc("POST /api/voice/ended", h.Voice.Ended)
	mux.HandleFunc("POST /api/voice/clear", h.Voice.Clear)
	mux.HandleFunc("GET /api/voice/audio/{key}", h.Voice.Audio)

	// Offline queue and analytics
	mux.HandleFunc("POST /api/queue/actions", h.Queue.Enqueue)
	mux.HandleFunc("GET /api/queue/actions", h.Queue.List)
	mux.HandleFunc("DELETE /api/queue/actions", h.Queue.Cleanup)
	mux.HandleFunc("POST /api/queue/flush", h.Queue.Flush)
	mux.HandleFunc("POST /api/events", h.Queue.Events)

	mux.HandleFunc("POST /api/assistant", h.Assistant.Ask)

	return Chain(mux, Logging(logger), m.RateLimit, m.Session, m.CSRFProtect)
}
