package apperror

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFull      = errors.New("session is full")
	ErrSessionExpired   = errors.New("session has expired")
	ErrTransportFailure = errors.New("transport failure")
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidToken     = errors.New("invalid token")
)
