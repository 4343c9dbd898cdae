package core

import (
	"sync"
	"time"

	"github.com/dkeye/Plaza/internal/domain"
)

// roomState is a threadsafe in-memory room: the static definition plus
// the live participant set. It never touches transport resources.
type roomState struct {
	room *domain.Room

	mu           sync.RWMutex
	participants map[domain.IdentityID]*domain.Participant
}

func newRoomState(room *domain.Room) *roomState {
	return &roomState{
		room:         room,
		participants: make(map[domain.IdentityID]*domain.Participant),
	}
}

func (r *roomState) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// add inserts a participant at the spawn point. When the identity is
// already present (rejoin) it only refreshes LastActive; capacity is
// checked and the insert applied under one lock so concurrent joins
// cannot overshoot the limit.
func (r *roomState) add(identity domain.Identity, now time.Time) (p domain.Participant, added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.participants[identity.ID]; ok {
		existing.LastActive = now
		return *existing, false, nil
	}
	if r.room.Capacity > 0 && len(r.participants) >= r.room.Capacity {
		return domain.Participant{}, false, ErrRoomFull
	}
	np := domain.NewParticipant(identity, r.room.SpawnPoint(), now)
	r.participants[identity.ID] = np
	return *np, true, nil
}

func (r *roomState) remove(id domain.IdentityID) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[id]; ok {
		delete(r.participants, id)
		removed = true
	}
	return removed, len(r.participants)
}

func (r *roomState) get(id domain.IdentityID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.participants[id]; ok {
		return *p, true
	}
	return domain.Participant{}, false
}

// setPosition commits a clamped position: previous <- current,
// current <- pos, LastActive <- now. Returns the superseded position.
func (r *roomState) setPosition(id domain.IdentityID, pos domain.Position, now time.Time) (domain.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return domain.Position{}, false
	}
	prev := p.Position
	p.Prev = prev
	p.Position = pos
	p.LastActive = now
	return prev, true
}

func (r *roomState) views() []ParticipantView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ParticipantView, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, ParticipantView{
			Identity: p.Identity,
			X:        p.Position.X,
			Y:        p.Position.Y,
		})
	}
	return out
}
