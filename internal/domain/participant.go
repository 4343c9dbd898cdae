package domain

import "time"

// Participant is an Identity's presence record within one room.
// At most one entry per identity per room; an identity is in at most
// one room system-wide. Positions always satisfy the room bounds.
type Participant struct {
	Identity   Identity
	Position   Position
	Prev       Position
	LastActive time.Time
}

func NewParticipant(identity Identity, at Position, now time.Time) *Participant {
	return &Participant{
		Identity:   identity,
		Position:   at,
		Prev:       at,
		LastActive: now,
	}
}
