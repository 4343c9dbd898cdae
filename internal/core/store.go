// Package core owns the authoritative room state: who is in which room
// and where. All participant mutation funnels through RoomStore; no
// other component writes these fields.
package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/domain"
	"github.com/dkeye/Plaza/internal/storage"
)

// RoomStore caches rooms in memory, loading each from persistence on
// first reference and evicting it once its participant set is empty, so
// resident memory is bounded by "rooms currently occupied".
type RoomStore struct {
	store        storage.Store
	fetchTimeout time.Duration

	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
}

func NewRoomStore(store storage.Store, fetchTimeout time.Duration) *RoomStore {
	return &RoomStore{
		store:        store,
		fetchTimeout: fetchTimeout,
		rooms:        make(map[domain.RoomID]*roomState),
	}
}

func (s *RoomStore) state(id domain.RoomID) (*roomState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[id]
	return rs, ok
}

// GetOrLoad returns the cached room, fetching the document on a cache
// miss. The fetch runs under the configured timeout so a hung
// persistence read fails the caller instead of leaving it in limbo.
func (s *RoomStore) GetOrLoad(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	if rs, ok := s.state(id); ok {
		return rs.room, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	doc, err := s.store.LoadRoom(fetchCtx, string(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(doc.Participants) > 0 {
		// Persisted by a previous process; their disconnect cleanup never
		// ran and no connection can resolve to them, so counting them
		// toward capacity would wedge the room. Rejoin is idempotent, so
		// discarding loses nothing.
		log.Info().Str("module", "core.store").Str("room", string(id)).Int("stale", len(doc.Participants)).Msg("discarding stale participants")
		if err := s.store.ClearParticipants(ctx, string(id)); err != nil {
			log.Warn().Err(err).Str("module", "core.store").Str("room", string(id)).Msg("stale participants not cleared")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rs, ok := s.rooms[id]; ok {
		return rs.room, nil
	}
	rs := roomFromDoc(doc)
	s.rooms[id] = rs
	log.Info().Str("module", "core.store").Str("room", string(id)).Msg("room loaded")
	return rs.room, nil
}

// Room returns the cached definition without loading.
func (s *RoomStore) Room(id domain.RoomID) (*domain.Room, bool) {
	rs, ok := s.state(id)
	if !ok {
		return nil, false
	}
	return rs.room, true
}

// AddParticipant admits an identity at the spawn point, or refreshes
// LastActive when it is already present (the rejoin race). The insert is
// persisted before it is acknowledged; a failed persist is rolled back
// and surfaced because join has an ack channel.
func (s *RoomStore) AddParticipant(ctx context.Context, id domain.RoomID, identity domain.Identity, now time.Time) (domain.Participant, bool, error) {
	rs, ok := s.state(id)
	if !ok {
		return domain.Participant{}, false, ErrRoomNotFound
	}
	p, added, err := rs.add(identity, now)
	if err != nil {
		return domain.Participant{}, false, err
	}
	if !added {
		// Rejoin: only the activity timestamp changed.
		s.persistFields(ctx, id, identity.ID, map[string]any{storage.FieldLastActive: now})
		return p, false, nil
	}
	doc := storage.ParticipantDoc{
		Name:       identity.Name,
		Avatar:     identity.Avatar,
		X:          p.Position.X,
		Y:          p.Position.Y,
		PrevX:      p.Prev.X,
		PrevY:      p.Prev.Y,
		LastActive: now,
	}
	if err := s.store.UpsertParticipant(ctx, string(id), string(identity.ID), doc); err != nil {
		rs.remove(identity.ID)
		return domain.Participant{}, false, err
	}
	return p, true, nil
}

// RemoveParticipant is a no-op when the identity is not present; leave
// must be safe to call speculatively. Persistence errors are logged and
// swallowed because the participant is leaving regardless.
func (s *RoomStore) RemoveParticipant(ctx context.Context, id domain.RoomID, identityID domain.IdentityID) (removed bool, remaining int) {
	rs, ok := s.state(id)
	if !ok {
		return false, 0
	}
	removed, remaining = rs.remove(identityID)
	if removed {
		if err := s.store.RemoveParticipant(ctx, string(id), string(identityID)); err != nil {
			log.Error().Err(err).Str("module", "core.store").Str("room", string(id)).Str("identity", string(identityID)).Msg("participant removal not persisted")
		}
	}
	return removed, remaining
}

// Participant returns a copy of the presence record.
func (s *RoomStore) Participant(id domain.RoomID, identityID domain.IdentityID) (domain.Participant, bool) {
	rs, ok := s.state(id)
	if !ok {
		return domain.Participant{}, false
	}
	return rs.get(identityID)
}

// SetPosition commits an already-clamped position and persists it with
// one atomic field-scoped update. A lost movement write is self-healing
// (the next tick supersedes it), so errors are logged, not propagated.
func (s *RoomStore) SetPosition(ctx context.Context, id domain.RoomID, identityID domain.IdentityID, pos domain.Position, now time.Time) bool {
	rs, ok := s.state(id)
	if !ok {
		return false
	}
	prev, ok := rs.setPosition(identityID, pos, now)
	if !ok {
		return false
	}
	s.persistFields(ctx, id, identityID, map[string]any{
		storage.FieldX:          pos.X,
		storage.FieldY:          pos.Y,
		storage.FieldPrevX:      prev.X,
		storage.FieldPrevY:      prev.Y,
		storage.FieldLastActive: now,
	})
	return true
}

func (s *RoomStore) persistFields(ctx context.Context, id domain.RoomID, identityID domain.IdentityID, fields map[string]any) {
	if err := s.store.UpdateParticipantFields(ctx, string(id), string(identityID), fields); err != nil {
		log.Warn().Err(err).Str("module", "core.store").Str("room", string(id)).Str("identity", string(identityID)).Msg("participant update not persisted")
	}
}

// Snapshot recomputes the full projection. Online flags are left false;
// the dispatcher annotates them from the connection registry.
func (s *RoomStore) Snapshot(id domain.RoomID) (RoomSnapshot, bool) {
	rs, ok := s.state(id)
	if !ok {
		return RoomSnapshot{}, false
	}
	views := rs.views()
	return RoomSnapshot{
		Room:         rs.room.ID,
		Name:         rs.room.Name,
		Bounds:       rs.room.Bounds,
		Objects:      rs.room.Objects,
		Participants: views,
		Count:        len(views),
	}, true
}

// EvictIfEmpty drops the in-memory entry once the participant set is
// empty. The persisted document stays; only cache residency ends.
func (s *RoomStore) EvictIfEmpty(id domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[id]
	if !ok || rs.count() > 0 {
		return false
	}
	delete(s.rooms, id)
	log.Info().Str("module", "core.store").Str("room", string(id)).Msg("room evicted")
	return true
}

// Occupied lists currently loaded rooms for the directory endpoint.
func (s *RoomStore) Occupied() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, rs := range s.rooms {
		out = append(out, RoomInfo{
			ID:      id,
			Name:    rs.room.Name,
			Private: rs.room.Private,
			Count:   rs.count(),
		})
	}
	return out
}

func roomFromDoc(doc *storage.RoomDoc) *roomState {
	room := &domain.Room{
		ID:       domain.RoomID(doc.ID),
		Name:     doc.Name,
		Private:  doc.Private,
		Capacity: doc.Capacity,
		Bounds: domain.Bounds{
			MinX: doc.Bounds.MinX,
			MaxX: doc.Bounds.MaxX,
			MinY: doc.Bounds.MinY,
			MaxY: doc.Bounds.MaxY,
		},
		Spawn: domain.Position{X: doc.Spawn.X, Y: doc.Spawn.Y},
	}
	for _, o := range doc.Objects {
		room.Objects = append(room.Objects, domain.Object{Kind: o.Kind, X: o.X, Y: o.Y, W: o.W, H: o.H})
	}
	return newRoomState(room)
}
