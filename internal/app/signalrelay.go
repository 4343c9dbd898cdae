package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// SignalRelay forwards opaque signaling payloads between two identities
// in the same room, for peer features negotiated client-to-client. The
// payload is never inspected; delivery is best-effort.
type SignalRelay struct {
	Registry *Registry
}

func NewSignalRelay(registry *Registry) *SignalRelay {
	return &SignalRelay{Registry: registry}
}

// Relay sends payload from the connection's identity to the target.
// Both ends must share a room; anything else is silently dropped.
func (s *SignalRelay) Relay(connID core.ConnID, to domain.IdentityID, payload json.RawMessage) bool {
	from, ok := s.Registry.IdentityOf(connID)
	if !ok {
		return false
	}
	fromRoom, ok := s.Registry.RoomOf(from.ID)
	if !ok {
		return false
	}
	toRoom, ok := s.Registry.RoomOf(to)
	if !ok || toRoom != fromRoom {
		return false
	}
	conn, ok := s.Registry.Lookup(to)
	if !ok {
		return false
	}
	frame, err := marshalFrame(signalEvent{Type: "signal", From: from, Payload: payload})
	if err != nil {
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Str("module", "app.signal").Str("to", string(to)).Msg("signal dropped on backpressure")
		return false
	}
	return true
}
