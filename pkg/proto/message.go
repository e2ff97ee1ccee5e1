package proto

import "ctchen222/galactic-tictactoe/internal/game"

// Message types exchanged between the two ends of a match.
const (
	TypeInit   = "init"
	TypeMove   = "move"
	TypeReset  = "reset"
	TypeJoined = "joined"
	TypeLeft   = "left"
)

// Message is the serialized session state carried by a transport.
type Message struct {
	Type    string            `json:"type" validate:"required,oneof=init move reset joined left"`
	Sender  string            `json:"sender,omitempty"`
	Board   []game.PlayerMark `json:"board,omitempty" validate:"omitempty,len=9,dive,mark"`
	Turn    game.PlayerMark   `json:"turn,omitempty" validate:"mark"`
	Outcome *game.Outcome     `json:"outcome,omitempty"`
}

// CarriesState reports whether the message replaces the board and turn.
func (m *Message) CarriesState() bool {
	return m.Type == TypeInit || m.Type == TypeMove
}

// NewStateMessage builds an init or move message from a board and the side to move.
func NewStateMessage(msgType string, board game.Board, turn game.PlayerMark) *Message {
	msg := &Message{
		Type:  msgType,
		Board: game.BoardToSlice(board),
		Turn:  turn,
	}
	if outcome := game.Evaluate(board); outcome.IsTerminal() {
		msg.Outcome = &outcome
	}
	return msg
}

// ClientCommand is sent by a browser over the websocket feed.
type ClientCommand struct {
	Type string `json:"type" validate:"required,oneof=move restart"`
	Cell *int   `json:"cell,omitempty" validate:"required_if=Type move,omitempty,min=0,max=8"`
}
