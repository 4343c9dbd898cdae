package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/adapters/gateway"
	"github.com/dkeye/Plaza/internal/config"
	"github.com/dkeye/Plaza/internal/core"
)

// ConnTokenMiddleware assigns each browser a stable opaque token for
// log correlation. It does not identify a connection (every tab shares
// it); sockets get their own ids and identity comes from the credential
// sent over the socket.
func ConnTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("conn_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *gateway.Controller, rooms *core.RoomStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ConnTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	// Directory of currently occupied rooms; room CRUD lives elsewhere.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, rooms.Occupied())
	})

	return r
}
