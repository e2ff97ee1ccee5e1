package player

import (
	"sync"
	"time"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Player is a client watching a room, usually a browser tab.
type Player struct {
	ID          string
	Conn        Connection
	ConnectedAt time.Time

	writeMu sync.Mutex
}

// New wraps conn as a player with the given id.
func New(id string, conn Connection) *Player {
	return &Player{ID: id, Conn: conn, ConnectedAt: time.Now()}
}

// Write serializes writes; the websocket connection allows one writer at a time.
func (p *Player) Write(messageType int, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.Conn.WriteMessage(messageType, data)
}
