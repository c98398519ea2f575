package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jazzcheema/websocket-groupchat/internal/chat"
	"github.com/jazzcheema/websocket-groupchat/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller upgrades chat connections and binds each one to a member.
type Controller struct {
	Rooms *chat.Registry
	Jokes chat.JokeFetcher
	Cfg   *config.Config
}

func NewController(rooms *chat.Registry, jokes chat.JokeFetcher, cfg *config.Config) *Controller {
	return &Controller{Rooms: rooms, Jokes: jokes, Cfg: cfg}
}

// HandleChat upgrades the request and wires a member into the room
// named by the URL path. The room binding is fixed for the life of the
// connection; a client wanting another room opens another connection.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	roomName := c.Param("room")
	sid := c.GetString("client_token")
	log.Info().Str("module", "adapters.ws").Str("sid", sid).Str("room", roomName).Msg("new chat connection")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	conn.SetReadLimit(ctl.Cfg.ReadLimit)

	wc := newWsConn(conn, ctl.Cfg.SendBuffer)
	member := chat.NewMember(wc, ctl.Rooms.GetOrCreate(roomName), ctl.Jokes)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, wc)
	go ctl.readPump(ctx, cancel, sid, wc, member)
}
