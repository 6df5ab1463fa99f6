package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"fourall/internal/models"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			logger.Error(logMsg, zap.Error(err))
		} else {
			logger.Info(logMsg, zap.Error(err), zap.Int("status", status))
		}
	}

	respondJSON(w, status, errorBody{Error: userMsg})
}

// respondWithDomainError maps service errors onto a status and a user-safe message
func respondWithDomainError(w http.ResponseWriter, logger *zap.Logger, logMsg string, err error) {
	var ve models.ValidationError
	if errors.As(err, &ve) {
		logger.Debug(logMsg, zap.Error(err))
		respondJSON(w, http.StatusBadRequest, errorBody{Error: ve.Message, Field: ve.Field})
		return
	}

	switch {
	case errors.Is(err, models.ErrNoProgress):
		respondWithError(w, logger, http.StatusNotFound, ErrNoProgressMsg, logMsg, err)
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, logger, http.StatusNotFound, ErrNotFoundMsg, logMsg, err)
	case errors.Is(err, models.ErrInvalidStep):
		respondWithError(w, logger, http.StatusBadRequest, ErrInvalidStepMsg, logMsg, err)
	case errors.Is(err, models.ErrStepIncomplete):
		respondWithError(w, logger, http.StatusConflict, ErrStepIncompleteMsg, logMsg, err)
	case errors.Is(err, models.ErrOnboardingComplete):
		respondWithError(w, logger, http.StatusConflict, ErrAlreadyCompleteMsg, logMsg, err)
	case errors.Is(err, models.ErrInvalidPIN):
		respondWithError(w, logger, http.StatusUnauthorized, ErrInvalidPINMsg, logMsg, err)
	case errors.Is(err, models.ErrUnsupported), errors.Is(err, models.ErrTextMode):
		respondWithError(w, logger, http.StatusConflict, ErrVoiceUnavailableMsg, logMsg, err)
	default:
		respondWithError(w, logger, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
