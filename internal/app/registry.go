// Package app wires the synchronization components: connection
// registry, membership, movement ingest, broadcast and relays.
package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// Registry maps an authenticated identity to at most one live
// connection, and tracks which room the identity is bound to. It never
// touches room participant state.
type Registry struct {
	mu         sync.RWMutex
	conns      map[domain.IdentityID]core.Conn
	identities map[core.ConnID]domain.Identity
	rooms      map[domain.IdentityID]domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[domain.IdentityID]core.Conn),
		identities: make(map[core.ConnID]domain.Identity),
		rooms:      make(map[domain.IdentityID]domain.RoomID),
	}
}

// Register binds the connection to the identity. A prior connection for
// the same identity is superseded and force-closed so it cannot linger
// as a ghost participant; its conn->identity mapping is dropped first,
// which turns its eventual disconnect cleanup into a no-op.
func (r *Registry) Register(identity domain.Identity, conn core.Conn) {
	r.mu.Lock()
	old := r.conns[identity.ID]
	if old != nil && old.ID() != conn.ID() {
		delete(r.identities, old.ID())
	}
	r.conns[identity.ID] = conn
	r.identities[conn.ID()] = identity
	r.mu.Unlock()

	if old != nil && old.ID() != conn.ID() {
		old.Close()
		log.Info().Str("module", "app.registry").Str("identity", string(identity.ID)).Str("old_conn", string(old.ID())).Msg("superseded stale connection")
	}
	log.Info().Str("module", "app.registry").Str("identity", string(identity.ID)).Str("conn", string(conn.ID())).Msg("registered connection")
}

// Unregister removes the mapping on disconnect. Idempotent, and a no-op
// for a connection that was already superseded.
func (r *Registry) Unregister(conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[conn.ID()]
	if !ok {
		return
	}
	delete(r.identities, conn.ID())
	if cur := r.conns[identity.ID]; cur != nil && cur.ID() == conn.ID() {
		delete(r.conns, identity.ID)
	}
	log.Info().Str("module", "app.registry").Str("identity", string(identity.ID)).Str("conn", string(conn.ID())).Msg("unregistered connection")
}

func (r *Registry) Lookup(id domain.IdentityID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// ResolveConnID reports whether the identity is currently reachable.
func (r *Registry) ResolveConnID(id domain.IdentityID) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conn, ok := r.conns[id]; ok {
		return conn.ID(), true
	}
	return "", false
}

func (r *Registry) IdentityOf(connID core.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[connID]
	return identity, ok
}

func (r *Registry) SetRoom(id domain.IdentityID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[id] = roomID
}

func (r *Registry) RoomOf(id domain.IdentityID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.rooms[id]
	return roomID, ok
}

func (r *Registry) ClearRoom(id domain.IdentityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
}
