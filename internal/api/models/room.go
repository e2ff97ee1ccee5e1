package models

import "ctchen222/galactic-tictactoe/internal/session"

// CreateRoomRequest opens a single-player match or hosts a two-player session.
type CreateRoomRequest struct {
	Mode       string `json:"mode" validate:"required,oneof=single multi"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// JoinRoomRequest joins a hosted session by its code.
type JoinRoomRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

// MoveRequest places the caller's mark on a cell.
type MoveRequest struct {
	Cell *int `json:"cell" validate:"required,min=0,max=8"`
}

// RoomResponse is returned when a room is created, joined or read.
type RoomResponse struct {
	RoomID   string           `json:"room_id"`
	Token    string           `json:"token,omitempty"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// MoveResponse reports whether a move was applied.
type MoveResponse struct {
	Accepted bool             `json:"accepted"`
	Snapshot session.Snapshot `json:"snapshot"`
}
