// Package profile reads and updates the finished accessibility profile of a session.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fourall/internal/adaptive"
	"fourall/internal/models"
	"fourall/internal/security"
	"fourall/internal/validation"
)

// Store persists one profile per session
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.UserProfile, error)
	Save(ctx context.Context, sessionID string, p *models.UserProfile) error
	Update(ctx context.Context, sessionID string, fn func(p *models.UserProfile) error) (*models.UserProfile, error)
	Delete(ctx context.Context, sessionID string) error
}

// PINStore persists confirm PIN hashes
type PINStore interface {
	GetHash(ctx context.Context, sessionID string) (string, error)
	SetHash(ctx context.Context, sessionID, hash string) error
	DeleteHash(ctx context.Context, sessionID string) error
}

// Service exposes profile reads, partial updates and the derived UI configuration
type Service struct {
	store   Store
	pins    PINStore
	deriver *adaptive.Deriver
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a profile service
func NewService(store Store, pins PINStore, deriver *adaptive.Deriver, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		pins:    pins,
		deriver: deriver,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the profile of a session, or models.ErrNotFound
func (s *Service) Get(ctx context.Context, sessionID string) (*models.UserProfile, error) {
	return s.store.Get(ctx, sessionID)
}

// Delete removes the profile and confirm PIN of a session. Deleting a session
// without a profile is not an error.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.pins.DeleteHash(ctx, sessionID); err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	s.logger.Info("profile deleted", zap.String("session_id", sessionID))
	return nil
}

// Update applies a partial update with last-writer-wins semantics.
// Complexity and confirm mode are re-derived; explicit preferences of a
// completed profile are never replaced by derived ones.
func (s *Service) Update(ctx context.Context, sessionID string, u models.ProfileUpdate) (*models.UserProfile, error) {
	if err := validation.ValidateProfileUpdate(u); err != nil {
		return nil, err
	}

	p, err := s.store.Update(ctx, sessionID, func(p *models.UserProfile) error {
		u.Apply(p)
		*p = adaptive.Rederive(*p)
		if u.AccessibilityPreferences != nil {
			p.AccessibilityPreferences = u.AccessibilityPreferences.Normalize()
		}
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("profile updated",
		zap.String("session_id", sessionID),
		zap.String("ui_complexity", string(p.UIComplexity)),
		zap.String("confirm_mode", string(p.ConfirmMode)),
	)
	return p, nil
}

// UIConfig derives the interface configuration for a session.
// Sessions without a finished profile get the configuration of an empty profile.
func (s *Service) UIConfig(ctx context.Context, sessionID string, reducedMotion bool) (models.UIConfig, error) {
	p, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return s.deriver.Derive(models.UserProfile{}, reducedMotion), nil
	}
	if err != nil {
		return models.UIConfig{}, err
	}
	return s.deriver.Derive(*p, reducedMotion), nil
}

// SetPIN stores the confirm PIN of a session
func (s *Service) SetPIN(ctx context.Context, sessionID, pin string) error {
	if err := validation.ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := security.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	return s.pins.SetHash(ctx, sessionID, hash)
}

// VerifyPIN checks a confirm PIN, returning models.ErrInvalidPIN on mismatch or when none is set
func (s *Service) VerifyPIN(ctx context.Context, sessionID, pin string) error {
	hash, err := s.pins.GetHash(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrInvalidPIN
	}
	if err != nil {
		return err
	}
	if !security.CheckPIN(pin, hash) {
		s.logger.Warn("confirm pin mismatch", zap.String("session_id", sessionID))
		return models.ErrInvalidPIN
	}
	return nil
}
