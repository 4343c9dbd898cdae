package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// handleJoin admits the identity to the requested room and acks with
// the full snapshot, then replays recent chat when a cache is wired.
func (ctl *Controller) handleJoin(ctx context.Context, c *wsConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Error().Err(err).Str("module", "gateway").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	identity, _ := ctl.Registry.IdentityOf(c.id)
	roomID := domain.RoomID(p.Room)

	snap, err := ctl.Members.Join(ctx, identity, roomID)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		ctl.sendError(c, "room_not_found")
		return
	case errors.Is(err, core.ErrRoomFull):
		ctl.sendError(c, "room_full")
		return
	case err != nil:
		log.Error().Err(err).Str("module", "gateway").Str("room", p.Room).Msg("join failed")
		ctl.sendError(c, "join_failed")
		return
	}

	resp := struct {
		Type string `json:"type"`
		core.RoomSnapshot
	}{
		Type:         "roomState",
		RoomSnapshot: snap,
	}
	ctl.sendJSON(c, resp)

	if frames := ctl.Chat.Recent(ctx, roomID); len(frames) > 0 {
		msgs := make([]json.RawMessage, 0, len(frames))
		for _, f := range frames {
			msgs = append(msgs, json.RawMessage(f))
		}
		ctl.sendJSON(c, struct {
			Type     string            `json:"type"`
			Room     domain.RoomID     `json:"room"`
			Messages []json.RawMessage `json:"messages"`
		}{
			Type:     "chatHistory",
			Room:     roomID,
			Messages: msgs,
		})
	}
}

// handleLeave is fire-and-forget from the client's perspective; the
// connection stays open and a fresh join can follow.
func (ctl *Controller) handleLeave(ctx context.Context, c *wsConn, data []byte) {
	type leavePayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	identity, _ := ctl.Registry.IdentityOf(c.id)
	roomID := domain.RoomID(p.Room)
	if p.Room == "" {
		// Leaving without naming a room means "whatever room I'm in".
		if cur, ok := ctl.Registry.RoomOf(identity.ID); ok {
			roomID = cur
		}
	}

	log.Info().Str("module", "gateway").Str("identity", string(identity.ID)).Str("room", string(roomID)).Msg("leave")
	ctl.Members.Leave(ctx, identity.ID, roomID)
	ctl.sendJSON(c, map[string]any{"type": "left"})
}
