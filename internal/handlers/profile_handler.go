package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"fourall/internal/models"
	"fourall/internal/security"
)

// ProfileService reads and updates finished profiles
type ProfileService interface {
	Get(ctx context.Context, sessionID string) (*models.UserProfile, error)
	Update(ctx context.Context, sessionID string, u models.ProfileUpdate) (*models.UserProfile, error)
	UIConfig(ctx context.Context, sessionID string, reducedMotion bool) (models.UIConfig, error)
	SetPIN(ctx context.Context, sessionID, pin string) error
	VerifyPIN(ctx context.Context, sessionID, pin string) error
	Delete(ctx context.Context, sessionID string) error
}

// ProfileHandler serves the profile, UI configuration and confirm PIN
type ProfileHandler struct {
	profiles ProfileService
	logger   *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// GetProfile returns the session's profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), GetSessionID(r.Context()))
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to load profile", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// UpdateProfile applies a partial update
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var u models.ProfileUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad profile update", err)
		return
	}

	p, err := h.profiles.Update(r.Context(), GetSessionID(r.Context()), u)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to update profile", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// UIConfig returns the derived interface configuration.
// The client passes its reduced-motion media query as ?reducedMotion=true.
func (h *ProfileHandler) UIConfig(w http.ResponseWriter, r *http.Request) {
	reducedMotion, _ := strconv.ParseBool(r.URL.Query().Get("reducedMotion"))

	cfg, err := h.profiles.UIConfig(r.Context(), GetSessionID(r.Context()), reducedMotion)
	if err != nil {
		respondWithDomainError(w, h.logger, "failed to derive ui config", err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// SetPIN stores the confirm PIN
func (h *ProfileHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad pin request", err)
		return
	}

	if err := h.profiles.SetPIN(r.Context(), GetSessionID(r.Context()), req.PIN); err != nil {
		respondWithDomainError(w, h.logger, "failed to set pin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyPIN checks the confirm PIN
func (h *ProfileHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "bad pin request", err)
		return
	}

	if err := h.profiles.VerifyPIN(r.Context(), GetSessionID(r.Context()), req.PIN); err != nil {
		respondWithDomainError(w, h.logger, "pin verification failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// DeleteProfile removes the session's profile and PIN and ends the session
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.profiles.Delete(r.Context(), GetSessionID(r.Context())); err != nil {
		respondWithDomainError(w, h.logger, "failed to delete profile", err)
		return
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}
