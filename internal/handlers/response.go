package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcana-labs/arcana-backend/internal/platform/apierr"
	"github.com/arcana-labs/arcana-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondServiceError maps service sentinels to HTTP statuses so handlers do
// not repeat the table.
func respondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	switch {
	case errors.As(err, &ae):
		RespondError(c, ae.Status, ae.Code, ae.Err)
	case errors.Is(err, services.ErrSessionNotFound):
		RespondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err)
	case errors.Is(err, services.ErrSpreadNotFound):
		RespondError(c, http.StatusNotFound, "SPREAD_NOT_FOUND", err)
	case errors.Is(err, services.ErrReadingInProgress):
		RespondError(c, http.StatusConflict, "READING_IN_PROGRESS", err)
	case errors.Is(err, services.ErrNoCardsAvailable), errors.Is(err, services.ErrInsufficientCards):
		RespondError(c, http.StatusUnprocessableEntity, "DRAW_UNAVAILABLE", err)
	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL", err)
	}
}
