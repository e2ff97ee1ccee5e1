package service

import (
	"context"

	"ctchen222/galactic-tictactoe/internal/api/models"
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/hub"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/room"
)

// RoomService defines the room-related business logic behind the HTTP API.
type RoomService interface {
	Create(ctx context.Context, req *models.CreateRoomRequest) (*models.RoomResponse, error)
	Join(ctx context.Context, req *models.JoinRoomRequest) (*models.RoomResponse, error)
	Get(ctx context.Context, roomID string) (*models.RoomResponse, error)
	Move(ctx context.Context, roomID string, cell int) (*models.MoveResponse, error)
	Restart(ctx context.Context, roomID string) (*models.RoomResponse, error)
	Leave(ctx context.Context, roomID string) error
	Stats(ctx context.Context) (*repository.Stats, error)
	Recent(ctx context.Context, limit int) ([]repository.MatchRecord, error)
	// Authorize returns the room a seat token grants.
	Authorize(token string) (string, error)
	Room(roomID string) (*room.Room, error)
}

type roomService struct {
	hub     *hub.Hub
	history repository.HistoryRepository
	tokens  *TokenIssuer
}

// NewRoomService creates a new RoomService.
func NewRoomService(h *hub.Hub, history repository.HistoryRepository, tokens *TokenIssuer) RoomService {
	return &roomService{hub: h, history: history, tokens: tokens}
}

// Create opens a room for the requested mode and issues its seat token.
func (s *roomService) Create(ctx context.Context, req *models.CreateRoomRequest) (*models.RoomResponse, error) {
	var (
		r   *room.Room
		err error
	)
	if req.Mode == "multi" {
		r, err = s.hub.HostMultiplayer(ctx)
	} else {
		r, err = s.hub.CreateSinglePlayer(ctx, bot.Difficulty(req.Difficulty))
	}
	if err != nil {
		return nil, err
	}
	return s.seat(ctx, r)
}

// Join opens a room joined to the session published under req.Code.
func (s *roomService) Join(ctx context.Context, req *models.JoinRoomRequest) (*models.RoomResponse, error) {
	r, err := s.hub.JoinMultiplayer(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return s.seat(ctx, r)
}

// Get returns the room's current state.
func (s *roomService) Get(_ context.Context, roomID string) (*models.RoomResponse, error) {
	r, err := s.hub.Get(roomID)
	if err != nil {
		return nil, err
	}
	return &models.RoomResponse{RoomID: r.ID, Snapshot: r.Snapshot()}, nil
}

// Move applies the caller's move. An illegal move is not an error.
func (s *roomService) Move(ctx context.Context, roomID string, cell int) (*models.MoveResponse, error) {
	r, err := s.hub.Get(roomID)
	if err != nil {
		return nil, err
	}
	accepted, err := r.Move(ctx, cell)
	if err != nil {
		return nil, err
	}
	return &models.MoveResponse{Accepted: accepted, Snapshot: r.Snapshot()}, nil
}

// Restart starts a new match in the room.
func (s *roomService) Restart(ctx context.Context, roomID string) (*models.RoomResponse, error) {
	r, err := s.hub.Get(roomID)
	if err != nil {
		return nil, err
	}
	if err := r.Restart(ctx); err != nil {
		return nil, err
	}
	return &models.RoomResponse{RoomID: r.ID, Snapshot: r.Snapshot()}, nil
}

// Leave returns to the menu and closes the room.
func (s *roomService) Leave(ctx context.Context, roomID string) error {
	return s.hub.Close(ctx, roomID)
}

// Stats aggregates the match history.
func (s *roomService) Stats(ctx context.Context) (*repository.Stats, error) {
	if s.history == nil {
		return &repository.Stats{}, nil
	}
	return s.history.Stats(ctx)
}

// Recent lists the latest finished matches.
func (s *roomService) Recent(ctx context.Context, limit int) ([]repository.MatchRecord, error) {
	if s.history == nil {
		return []repository.MatchRecord{}, nil
	}
	return s.history.Recent(ctx, limit)
}

func (s *roomService) Authorize(token string) (string, error) {
	return s.tokens.Parse(token)
}

func (s *roomService) Room(roomID string) (*room.Room, error) {
	return s.hub.Get(roomID)
}

func (s *roomService) seat(ctx context.Context, r *room.Room) (*models.RoomResponse, error) {
	token, err := s.tokens.Issue(r.ID)
	if err != nil {
		_ = s.hub.Close(ctx, r.ID)
		return nil, err
	}
	return &models.RoomResponse{RoomID: r.ID, Token: token, Snapshot: r.Snapshot()}, nil
}
