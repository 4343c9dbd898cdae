package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/domain"
)

// handleAuthenticate verifies the bearer credential and binds the
// identity to this connection. Failure is terminal for the connection.
func (ctl *Controller) handleAuthenticate(c *wsConn, data []byte) {
	type authPayload struct {
		Type       string `json:"type"`
		Credential string `json:"credential"`
	}
	var p authPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad authenticate payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	identity, err := ctl.Auth.Verify(p.Credential)
	if err != nil {
		log.Warn().Str("module", "gateway").Str("conn", string(c.id)).Msg("authentication failed")
		ctl.sendError(c, "authentication_failed")
		c.Close()
		return
	}

	ctl.Registry.Register(identity, c)

	resp := struct {
		Type     string          `json:"type"`
		Identity domain.Identity `json:"identity"`
	}{
		Type:     "authenticated",
		Identity: identity,
	}
	ctl.sendJSON(c, resp)
}
