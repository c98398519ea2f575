// Package http wires the gin router: the chat websocket endpoint,
// static assets for the browser client, and the JSON API.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jazzcheema/websocket-groupchat/internal/adapters/ws"
	"github.com/jazzcheema/websocket-groupchat/internal/chat"
	"github.com/jazzcheema/websocket-groupchat/internal/config"
)

// ClientTokenMiddleware tags every browser with a stable token so log
// lines from one visitor can be correlated across connections.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, rooms *chat.Registry, jokes chat.JokeFetcher) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("GroupchatSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath+"/static")
	serveIndex := func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	}
	r.GET("/", serveIndex)
	r.GET("/r/:room", serveIndex)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := ws.NewController(rooms, jokes, cfg)
	r.GET("/chat/:room", func(c *gin.Context) {
		ctl.HandleChat(ctx, c)
	})

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, rooms.List())
	})

	return r
}
