package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// ErrNotJoined is an internal precondition failure: the connection's
// identity is not a participant anywhere. Movement drops it silently;
// chat surfaces it because chat has an ack channel.
var ErrNotJoined = errors.New("not joined to a room")

// Membership drives the join/leave/reconnect transitions. It is the
// only component that admits identities to rooms or removes them.
type Membership struct {
	Registry *Registry
	Rooms    *core.RoomStore
	Dispatch *Dispatcher

	JoinRetries  int
	RetryBackoff time.Duration

	now func() time.Time
}

func NewMembership(registry *Registry, rooms *core.RoomStore, dispatch *Dispatcher, retries int, backoff time.Duration) *Membership {
	if retries < 1 {
		retries = 1
	}
	return &Membership{
		Registry:     registry,
		Rooms:        rooms,
		Dispatch:     dispatch,
		JoinRetries:  retries,
		RetryBackoff: backoff,
		now:          time.Now,
	}
}

// Join admits the identity to the room and returns the full snapshot
// for the join ack. Joining while in another room leaves that room
// first; joining a room the identity is already in is idempotent and
// only refreshes the activity timestamp (the reconnect-storm race).
func (m *Membership) Join(ctx context.Context, identity domain.Identity, roomID domain.RoomID) (core.RoomSnapshot, error) {
	if prev, ok := m.Registry.RoomOf(identity.ID); ok && prev != roomID {
		m.Leave(ctx, identity.ID, prev)
	}

	if err := m.loadWithRetry(ctx, roomID); err != nil {
		return core.RoomSnapshot{}, err
	}

	_, added, err := m.Rooms.AddParticipant(ctx, roomID, identity, m.now())
	if err != nil {
		return core.RoomSnapshot{}, err
	}
	m.Registry.SetRoom(identity.ID, roomID)

	snap, ok := m.Dispatch.CurrentSnapshot(roomID)
	if !ok {
		return core.RoomSnapshot{}, core.ErrRoomNotFound
	}

	if added {
		log.Info().Str("module", "app.membership").Str("identity", string(identity.ID)).Str("room", string(roomID)).Msg("participant joined")
		m.Dispatch.BroadcastExcept(roomID, identity.ID, participantEvent{
			Type:     "participantJoined",
			Room:     roomID,
			Identity: identity,
		})
		m.Dispatch.BroadcastSnapshot(roomID)
	}
	return snap, nil
}

// loadWithRetry retries transient fetch failures with backoff; a
// missing document is terminal immediately. Exhausting retries surfaces
// the last error rather than leaving the caller hanging.
func (m *Membership) loadWithRetry(ctx context.Context, roomID domain.RoomID) error {
	var lastErr error
	for attempt := 0; attempt < m.JoinRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.RetryBackoff):
			}
		}
		_, err := m.Rooms.GetOrLoad(ctx, roomID)
		if err == nil {
			return nil
		}
		if errors.Is(err, core.ErrRoomNotFound) {
			return err
		}
		lastErr = err
		log.Warn().Err(err).Str("module", "app.membership").Str("room", string(roomID)).Int("attempt", attempt+1).Msg("room load failed")
	}
	return lastErr
}

// Leave removes the identity from the room. Calling it for an identity
// that is not a participant is a no-op, never an error: leave is safe
// to call speculatively on every disconnect.
func (m *Membership) Leave(ctx context.Context, id domain.IdentityID, roomID domain.RoomID) {
	removed, remaining := m.Rooms.RemoveParticipant(ctx, roomID, id)
	if cur, ok := m.Registry.RoomOf(id); ok && cur == roomID {
		m.Registry.ClearRoom(id)
	}
	if !removed {
		return
	}
	log.Info().Str("module", "app.membership").Str("identity", string(id)).Str("room", string(roomID)).Int("remaining", remaining).Msg("participant left")

	if remaining > 0 {
		m.Dispatch.Broadcast(roomID, participantEvent{
			Type:     "participantLeft",
			Room:     roomID,
			Identity: domain.Identity{ID: id},
		})
		m.Dispatch.BroadcastSnapshot(roomID)
		return
	}
	m.Rooms.EvictIfEmpty(roomID)
}

// HandleDisconnect is the single transport-level cleanup path, run for
// graceful and abnormal closes alike. Fire-and-forget: it resolves the
// identity, leaves whatever room it was in, and unbinds the connection.
func (m *Membership) HandleDisconnect(ctx context.Context, conn core.Conn) {
	if identity, ok := m.Registry.IdentityOf(conn.ID()); ok {
		if roomID, joined := m.Registry.RoomOf(identity.ID); joined {
			m.Leave(ctx, identity.ID, roomID)
		}
	}
	m.Registry.Unregister(conn)
}
