// Package storage is the persistence port: a document store with
// atomic field-level updates, plus adapters (Mongo, in-memory).
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by LoadRoom when the room document does not exist.
var ErrNotFound = errors.New("room document not found")

// Participant field names accepted by UpdateParticipantFields.
const (
	FieldX          = "x"
	FieldY          = "y"
	FieldPrevX      = "px"
	FieldPrevY      = "py"
	FieldLastActive = "last_active"
)

type BoundsDoc struct {
	MinX float64 `bson:"min_x" json:"min_x"`
	MaxX float64 `bson:"max_x" json:"max_x"`
	MinY float64 `bson:"min_y" json:"min_y"`
	MaxY float64 `bson:"max_y" json:"max_y"`
}

type PointDoc struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

type ObjectDoc struct {
	Kind string  `bson:"kind" json:"kind"`
	X    float64 `bson:"x" json:"x"`
	Y    float64 `bson:"y" json:"y"`
	W    float64 `bson:"w" json:"w"`
	H    float64 `bson:"h" json:"h"`
}

type ParticipantDoc struct {
	Name       string    `bson:"name" json:"name"`
	Avatar     string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	X          float64   `bson:"x" json:"x"`
	Y          float64   `bson:"y" json:"y"`
	PrevX      float64   `bson:"px" json:"px"`
	PrevY      float64   `bson:"py" json:"py"`
	LastActive time.Time `bson:"last_active" json:"last_active"`
}

// RoomDoc is the persisted shape of a room. Participants are keyed by
// identity id so a single participant can be addressed with one
// field-scoped update, never a whole-room rewrite.
type RoomDoc struct {
	ID           string                    `bson:"_id" json:"id"`
	Name         string                    `bson:"name" json:"name"`
	Private      bool                      `bson:"private" json:"private"`
	Capacity     int                       `bson:"capacity" json:"capacity"`
	Bounds       BoundsDoc                 `bson:"bounds" json:"bounds"`
	Spawn        PointDoc                  `bson:"spawn" json:"spawn"`
	Objects      []ObjectDoc               `bson:"objects,omitempty" json:"objects,omitempty"`
	Participants map[string]ParticipantDoc `bson:"participants,omitempty" json:"participants,omitempty"`
}

type MessageDoc struct {
	ID       string    `bson:"_id" json:"id"`
	RoomID   string    `bson:"room_id" json:"room_id"`
	FromID   string    `bson:"from_id" json:"from_id"`
	FromName string    `bson:"from_name" json:"from_name"`
	Text     string    `bson:"text" json:"text"`
	Seq      int64     `bson:"seq" json:"seq"`
	SentAt   time.Time `bson:"sent_at" json:"sent_at"`
}

// Store is what the core needs from persistence. All participant writes
// are scoped to one participant of one room and must be atomic, so two
// concurrent movers in the same room never clobber each other.
type Store interface {
	LoadRoom(ctx context.Context, roomID string) (*RoomDoc, error)
	UpsertParticipant(ctx context.Context, roomID, identityID string, p ParticipantDoc) error
	UpdateParticipantFields(ctx context.Context, roomID, identityID string, fields map[string]any) error
	RemoveParticipant(ctx context.Context, roomID, identityID string) error
	// ClearParticipants wipes the stored participant set; used to drop
	// entries left behind by a process that never ran their cleanup.
	ClearParticipants(ctx context.Context, roomID string) error
	// AppendMessage assigns and returns the room's next sequence number.
	AppendMessage(ctx context.Context, m *MessageDoc) (int64, error)
}
