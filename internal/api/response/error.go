package response

import (
	"errors"
	"net/http"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/room"

	"github.com/gin-gonic/gin"
)

// StatusFor maps application errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound), errors.Is(err, apperror.ErrRoomNotFound), errors.Is(err, room.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrSessionFull):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, apperror.ErrTransportFailure):
		return http.StatusBadGateway
	case errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// AppErrorResponse writes err with the status StatusFor assigns it.
func AppErrorResponse(c *gin.Context, err error) {
	ErrorResponse(c, StatusFor(err), err.Error())
}
