package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/app"
	"github.com/dkeye/Plaza/internal/domain"
)

// handleChat posts a message and acks with the assigned id and
// sequence, or an error the client can use to retry or mark it failed.
func (ctl *Controller) handleChat(ctx context.Context, c *wsConn, data []byte) {
	type chatPayload struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	msg, err := ctl.Chat.Post(ctx, c.id, p.Text)
	switch {
	case errors.Is(err, app.ErrNotJoined):
		ctl.sendError(c, "not_joined")
		return
	case errors.Is(err, app.ErrEmptyMessage):
		ctl.sendError(c, "empty_message")
		return
	case errors.Is(err, app.ErrMessageTooLong):
		ctl.sendError(c, "message_too_long")
		return
	case err != nil:
		log.Error().Err(err).Str("module", "gateway").Msg("chat post failed")
		ctl.sendError(c, "message_failed")
		return
	}

	resp := struct {
		Type string           `json:"type"`
		ID   domain.MessageID `json:"id"`
		Seq  int64            `json:"seq"`
	}{
		Type: "messageAck",
		ID:   msg.ID,
		Seq:  msg.Seq,
	}
	ctl.sendJSON(c, resp)
}
