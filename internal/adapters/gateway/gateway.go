// Package gateway is the WebSocket transport adapter: it upgrades
// connections, pumps frames, and translates wire events into calls on
// the synchronization components.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/app"
	"github.com/dkeye/Plaza/internal/auth"
	"github.com/dkeye/Plaza/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Auth     auth.Verifier
	Registry *app.Registry
	Members  *app.Membership
	Moves    *app.Movement
	Chat     *app.ChatRelay
	Signals  *app.SignalRelay

	ReadLimit  int64
	PingPeriod time.Duration
}

// wsConn implements core.Conn over one gorilla websocket. Sends go
// through a buffered channel; a full buffer fails TrySend instead of
// blocking a broadcast.
type wsConn struct {
	id   core.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) ID() core.ConnID { return c.id }

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and starts the pumps. Each socket gets
// its own connection id: the browser token cookie is shared across tabs
// and reconnects, so it cannot identify a single connection.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	connID := core.ConnID(uuid.NewString())
	log.Info().Str("module", "gateway").Str("conn", string(connID)).Str("browser", c.GetString("conn_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		id:   connID,
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
