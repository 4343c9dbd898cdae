package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	// Closing here unblocks the read side, so a failed ping or write
	// drives disconnect cleanup instead of waiting for TCP to notice.
	defer c.Close()
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "gateway").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "gateway").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "gateway").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump owns the connection's lifecycle end: whatever way the socket
// dies (clean close, network drop, kick), the deferred disconnect
// cleanup runs exactly the same.
func (ctl *Controller) readPump(ctx context.Context, c *wsConn) {
	defer func() {
		log.Info().Str("module", "gateway").Str("conn", string(c.id)).Msg("readPump closing")
		if identity, ok := ctl.Registry.IdentityOf(c.id); ok {
			ctl.Moves.Forget(identity.ID)
		}
		ctl.Members.HandleDisconnect(ctx, c)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "gateway").Str("conn", string(c.id)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(ctx context.Context, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	// Until the credential is verified only authenticate and ping pass.
	if _, ok := ctl.Registry.IdentityOf(c.id); !ok && env.Type != "authenticate" && env.Type != "ping" {
		ctl.sendError(c, "not_authenticated")
		return
	}

	switch env.Type {
	case "authenticate":
		ctl.handleAuthenticate(c, data)
	case "ping":
		ctl.handlePing(c)
	case "joinRoom":
		ctl.handleJoin(ctx, c, data)
	case "leaveRoom":
		ctl.handleLeave(ctx, c, data)
	case "move":
		ctl.handleMove(ctx, c, data)
	case "chatMessage":
		ctl.handleChat(ctx, c, data)
	case "signal":
		ctl.handleSignal(c, data)
	default:
		log.Warn().Str("module", "gateway").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, "unknown_event")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}

// sendError emits a non-fatal error event; the connection stays open.
func (ctl *Controller) sendError(c *wsConn, reason string) {
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": reason,
	})
}
