package handlers

import (
	"errors"
	"net/http"

	"github.com/kalashagnihotri/debate-backend/internal/engine"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

// engineStatus maps engine errors to HTTP statuses for the synchronous
// surface; the same errors travel as unicast error events on the ws path.
func engineStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrForbidden), errors.Is(err, engine.ErrAuthenticationFailed):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrPreconditionNotMet):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSessionFull):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSessionEnded):
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}
