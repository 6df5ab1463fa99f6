package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fourall/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions *security.SessionManager
	csrf     *security.CSRFGenerator
	limiter  *security.RateLimiter
	logger   *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions *security.SessionManager, csrf *security.CSRFGenerator, limiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		csrf:     csrf,
		limiter:  limiter,
		logger:   logger,
	}
}

// Session attaches the anonymous session of the caller, issuing a new one
// when the cookie is missing or invalid. The CSRF token of the session is
// returned on every response.
func (m *Middleware) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
			if sid, err := m.sessions.Parse(cookie.Value); err == nil {
				sessionID = sid
			}
		}

		if sessionID == "" {
			sessionID = security.GenerateSessionID()
			token, expires, err := m.sessions.Issue(sessionID)
			if err != nil {
				respondWithError(w, m.logger, http.StatusInternalServerError, ErrInternalServerError, "failed to issue session", err)
				return
			}
			http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookieName, token, expires))
		}

		if token, err := m.csrf.GenerateToken(sessionID); err == nil {
			w.Header().Set(security.CSRFHeader, token)
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFProtect rejects state-changing requests without the session's token.
// It must run inside Session.
func (m *Middleware) CSRFProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if security.RequiresCSRF(r.Method) && strings.HasPrefix(r.URL.Path, "/api/") {
			if !m.csrf.ValidateToken(GetSessionID(r.Context()), r.Header.Get(security.CSRFHeader)) {
				m.logger.Warn("csrf token rejected", zap.String("path", r.URL.Path), zap.String("ip", security.GetClientIP(r)))
				respondJSON(w, http.StatusForbidden, errorBody{Error: ErrCSRF})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects callers that exceed the per-IP request budget
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorBody{Error: ErrTooManyRequests})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Chain wraps h so that the first middleware is outermost
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// GetSessionID retrieves the session ID from the request context
func GetSessionID(ctx context.Context) string {
	sid, _ := ctx.Value(SessionContextKey).(string)
	return sid
}
