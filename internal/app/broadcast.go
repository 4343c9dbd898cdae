package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// Dispatcher fans room state out to subscribed connections. Delivery is
// best-effort, at-most-once per call: no queue, no retry, no acks. A
// participant without a live connection (reconnect in progress) is
// skipped, not treated as an error.
type Dispatcher struct {
	Registry *Registry
	Rooms    *core.RoomStore
	Policy   Policy
}

func NewDispatcher(registry *Registry, rooms *core.RoomStore, policy Policy) *Dispatcher {
	return &Dispatcher{Registry: registry, Rooms: rooms, Policy: policy}
}

// CurrentSnapshot recomputes the projection and annotates reachability.
func (d *Dispatcher) CurrentSnapshot(roomID domain.RoomID) (core.RoomSnapshot, bool) {
	snap, ok := d.Rooms.Snapshot(roomID)
	if !ok {
		return core.RoomSnapshot{}, false
	}
	for i := range snap.Participants {
		_, online := d.Registry.ResolveConnID(snap.Participants[i].Identity.ID)
		snap.Participants[i].Online = online
	}
	return snap, true
}

// BroadcastSnapshot emits a fresh full snapshot to every subscriber.
func (d *Dispatcher) BroadcastSnapshot(roomID domain.RoomID) {
	snap, ok := d.CurrentSnapshot(roomID)
	if !ok {
		return
	}
	d.fanout(roomID, snap, stateEvent{Type: "roomState", RoomSnapshot: snap}, "")
}

// Broadcast emits an event to every subscriber of the room.
func (d *Dispatcher) Broadcast(roomID domain.RoomID, v any) {
	snap, ok := d.Rooms.Snapshot(roomID)
	if !ok {
		return
	}
	d.fanout(roomID, snap, v, "")
}

// BroadcastExcept emits an event to every subscriber but one.
func (d *Dispatcher) BroadcastExcept(roomID domain.RoomID, except domain.IdentityID, v any) {
	snap, ok := d.Rooms.Snapshot(roomID)
	if !ok {
		return
	}
	d.fanout(roomID, snap, v, except)
}

// SendTo delivers an event to one identity's live connection.
func (d *Dispatcher) SendTo(id domain.IdentityID, v any) bool {
	conn, ok := d.Registry.Lookup(id)
	if !ok {
		return false
	}
	frame, err := marshalFrame(v)
	if err != nil {
		return false
	}
	return conn.TrySend(frame) == nil
}

func (d *Dispatcher) fanout(roomID domain.RoomID, snap core.RoomSnapshot, v any, except domain.IdentityID) {
	frame, err := marshalFrame(v)
	if err != nil {
		return
	}
	sent, dropped := 0, 0
	for _, p := range snap.Participants {
		id := p.Identity.ID
		if id == except {
			continue
		}
		conn, ok := d.Registry.Lookup(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			dropped++
			d.onBackpressure(roomID, id, conn)
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.broadcast").Str("room", string(roomID)).Int("sent", sent).Int("dropped", dropped).Msg("fanout")
}

func (d *Dispatcher) onBackpressure(roomID domain.RoomID, id domain.IdentityID, conn core.Conn) {
	if d.Policy == nil {
		return
	}
	switch d.Policy.OnBackpressure(roomID, id) {
	case KickMember:
		log.Warn().Str("module", "app.broadcast").Str("identity", string(id)).Msg("kicking slow consumer")
		conn.Close()
	case DropFrame, NoAction:
	}
}

func marshalFrame(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("marshal frame")
		return nil, err
	}
	return core.Frame(b), nil
}
