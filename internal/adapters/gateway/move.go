package gateway

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Plaza/internal/domain"
)

// handleMove is the one no-ack path: anything wrong with the update is
// a silent drop, and the next tick supersedes it.
func (ctl *Controller) handleMove(ctx context.Context, c *wsConn, data []byte) {
	type movePayload struct {
		Type string  `json:"type"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Moves.SubmitMove(ctx, c.id, domain.Position{X: p.X, Y: p.Y})
}
