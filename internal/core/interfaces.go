package core

import (
	"errors"

	"github.com/dkeye/Plaza/internal/domain"
)

// Frame is a marshaled event ready for the wire.
type Frame []byte

type ConnID string

// Conn abstracts one live transport session.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	ID() ConnID
	TrySend(Frame) error
	Close()
}

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room full")
)

// ParticipantView is a read-only projection for snapshots (no transport
// fields). Online marks whether the identity has a live connection.
type ParticipantView struct {
	Identity domain.Identity `json:"identity"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Online   bool            `json:"online"`
}

// RoomSnapshot is the full current-state projection of a room, produced
// fresh per broadcast and never stored.
type RoomSnapshot struct {
	Room         domain.RoomID     `json:"room"`
	Name         string            `json:"name"`
	Bounds       domain.Bounds     `json:"bounds"`
	Objects      []domain.Object   `json:"objects,omitempty"`
	Participants []ParticipantView `json:"participants"`
	Count        int               `json:"count"`
}

// RoomInfo is a directory entry for the REST surface.
type RoomInfo struct {
	ID      domain.RoomID `json:"id"`
	Name    string        `json:"name"`
	Private bool          `json:"private"`
	Count   int           `json:"count"`
}
