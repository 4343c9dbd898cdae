package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// Movement validates, throttles and clamps position updates before they
// reach the room store. Every rejection is a silent drop: movement has
// no ack channel, and the next tick supersedes whatever was lost.
type Movement struct {
	Registry *Registry
	Rooms    *core.RoomStore
	Dispatch *Dispatcher

	// MinInterval gates update frequency per identity; client render
	// loops run far faster than network-meaningful state changes.
	MinInterval time.Duration
	// Epsilon suppresses writes for near-stationary jitter.
	Epsilon float64

	mu           sync.Mutex
	lastAccepted map[domain.IdentityID]time.Time

	now func() time.Time
}

func NewMovement(registry *Registry, rooms *core.RoomStore, dispatch *Dispatcher, minInterval time.Duration, epsilon float64) *Movement {
	return &Movement{
		Registry:     registry,
		Rooms:        rooms,
		Dispatch:     dispatch,
		MinInterval:  minInterval,
		Epsilon:      epsilon,
		lastAccepted: make(map[domain.IdentityID]time.Time),
		now:          time.Now,
	}
}

// SubmitMove runs the ingest pipeline: resolve -> throttle -> validate
// -> clamp -> significance filter -> commit -> broadcast.
func (mv *Movement) SubmitMove(ctx context.Context, connID core.ConnID, raw domain.Position) {
	identity, ok := mv.Registry.IdentityOf(connID)
	if !ok {
		return // expected transient noise from a not-yet-authenticated connection
	}
	roomID, ok := mv.Registry.RoomOf(identity.ID)
	if !ok {
		return // moving before joining is likewise transient, not a fault
	}

	now := mv.now()
	if !mv.accept(identity.ID, raw, now) {
		return
	}

	room, ok := mv.Rooms.Room(roomID)
	if !ok {
		return
	}
	clamped := room.Bounds.Clamp(raw)

	cur, ok := mv.Rooms.Participant(roomID, identity.ID)
	if !ok {
		return
	}
	if clamped.Near(cur.Position, mv.Epsilon) {
		return
	}

	if !mv.Rooms.SetPosition(ctx, roomID, identity.ID, clamped, now) {
		return
	}
	log.Debug().Str("module", "app.movement").Str("identity", string(identity.ID)).Float64("x", clamped.X).Float64("y", clamped.Y).Msg("position committed")
	mv.Dispatch.BroadcastSnapshot(roomID)
}

// accept applies the throttle gate and the finite check. Only updates
// that pass both count as accepted for throttling purposes.
func (mv *Movement) accept(id domain.IdentityID, raw domain.Position, now time.Time) bool {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	if last, ok := mv.lastAccepted[id]; ok && now.Sub(last) < mv.MinInterval {
		return false
	}
	if !raw.Finite() {
		return false
	}
	mv.lastAccepted[id] = now
	return true
}

// Forget drops throttle bookkeeping for an identity that went away.
func (mv *Movement) Forget(id domain.IdentityID) {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	delete(mv.lastAccepted, id)
}
