package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/domain"
)

// handleSignal forwards an opaque payload to another identity in the
// same room. The server never looks inside the payload.
func (ctl *Controller) handleSignal(c *wsConn, data []byte) {
	type signalPayload struct {
		Type    string          `json:"type"`
		To      string          `json:"to"`
		Payload json.RawMessage `json:"payload"`
	}
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	if !ctl.Signals.Relay(c.id, domain.IdentityID(p.To), p.Payload) {
		log.Debug().Str("module", "gateway").Str("to", p.To).Msg("signal not delivered")
		ctl.sendError(c, "signal_undeliverable")
	}
}
