package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/services"
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

// RespondServiceError maps service layer failures onto the error envelope.
// Ownership failures surface as plain 404s so resource existence never leaks.
func RespondServiceError(c *gin.Context, err error) {
	var genErr *services.GenerationError
	if _, ok := schema.AsValidationError(err); ok {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "NOT_FOUND", err)
	case errors.As(err, &genErr):
		RespondError(c, http.StatusBadGateway, "GENERATION_FAILED", err)
	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL", err)
	}
}
