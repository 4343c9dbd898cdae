package app

import (
	"github.com/dkeye/Plaza/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a subscriber whose send buffer is full
// during a broadcast.
type Policy interface {
	OnBackpressure(room domain.RoomID, identity domain.IdentityID) BackpressureAction
}

// DropPolicy drops the frame. Snapshots self-correct: the next state
// change produces a fresher one, so nothing is lost for long.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(domain.RoomID, domain.IdentityID) BackpressureAction {
	return DropFrame
}

// KickPolicy closes chronically slow consumers; the disconnect cleanup
// removes them and an idempotent rejoin restores their state.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(domain.RoomID, domain.IdentityID) BackpressureAction {
	return KickMember
}
