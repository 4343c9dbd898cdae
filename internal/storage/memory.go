package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store kept entirely in process memory. It backs dev
// mode and tests; semantics mirror the Mongo adapter exactly.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]*RoomDoc
	messages map[string][]MessageDoc
	seqs     map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*RoomDoc),
		messages: make(map[string][]MessageDoc),
		seqs:     make(map[string]int64),
	}
}

// SeedRoom installs a room document, standing in for out-of-band room
// creation.
func (s *MemoryStore) SeedRoom(doc *RoomDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[doc.ID] = doc
}

func (s *MemoryStore) LoadRoom(_ context.Context, roomID string) (*RoomDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *doc
	out.Participants = make(map[string]ParticipantDoc, len(doc.Participants))
	for k, v := range doc.Participants {
		out.Participants[k] = v
	}
	return &out, nil
}

func (s *MemoryStore) UpsertParticipant(_ context.Context, roomID, identityID string, p ParticipantDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	if doc.Participants == nil {
		doc.Participants = make(map[string]ParticipantDoc)
	}
	doc.Participants[identityID] = p
	return nil
}

func (s *MemoryStore) UpdateParticipantFields(_ context.Context, roomID, identityID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	p, ok := doc.Participants[identityID]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case FieldX:
			p.X = v.(float64)
		case FieldY:
			p.Y = v.(float64)
		case FieldPrevX:
			p.PrevX = v.(float64)
		case FieldPrevY:
			p.PrevY = v.(float64)
		case FieldLastActive:
			p.LastActive = v.(time.Time)
		}
	}
	doc.Participants[identityID] = p
	return nil
}

func (s *MemoryStore) ClearParticipants(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.rooms[roomID]; ok {
		doc.Participants = nil
	}
	return nil
}

func (s *MemoryStore) RemoveParticipant(_ context.Context, roomID, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.rooms[roomID]; ok {
		delete(doc.Participants, identityID)
	}
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, m *MessageDoc) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[m.RoomID]++
	m.Seq = s.seqs[m.RoomID]
	s.messages[m.RoomID] = append(s.messages[m.RoomID], *m)
	return m.Seq, nil
}

// Messages returns the appended log for a room, in append order.
func (s *MemoryStore) Messages(roomID string) []MessageDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MessageDoc, len(s.messages[roomID]))
	copy(out, s.messages[roomID])
	return out
}
