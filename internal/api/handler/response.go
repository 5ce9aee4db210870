package handler

import (
	"auctionhouse/backend/internal/auctionerrors"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. data is included when not nil.
func JSONError(c *gin.Context, status int, err error, message string, data any) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	if data != nil {
		body["data"] = data
	}
	c.AbortWithStatusJSON(status, body)
}

// MapErrorToHTTP maps domain errors to an HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrRoomNotFound):
		return http.StatusNotFound, "auction room not found"
	case errors.Is(err, auctionerrors.ErrJobNotFound):
		return http.StatusNotFound, "job not found"
	case errors.Is(err, auctionerrors.ErrRoomNotPending):
		return http.StatusConflict, "auction room has no pending winner notification"
	case errors.Is(err, auctionerrors.ErrJobBusy):
		return http.StatusConflict, "job is already running"
	case errors.Is(err, auctionerrors.ErrMissingContact), errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusUnprocessableEntity, "winner cannot be contacted"
	case errors.Is(err, auctionerrors.ErrPrimaryChannelFailed):
		return http.StatusBadGateway, "primary notification channel failed"
	case errors.Is(err, auctionerrors.ErrNoPrimaryChannel), errors.Is(err, auctionerrors.ErrSchedulerNotInitialized):
		return http.StatusServiceUnavailable, "service not configured"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
