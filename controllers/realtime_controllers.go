package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-booking/middlewares"
	"github.com/yeremiapane/restaurant-booking/realtime"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// RealtimeController upgrades authenticated requests to websocket
// connections on the hub.
type RealtimeController struct {
	Hub      *realtime.Hub
	Relay    *services.Relay
	upgrader websocket.Upgrader
}

func NewRealtimeController(hub *realtime.Hub, relay *services.Relay, origins []string) *RealtimeController {
	return &RealtimeController{
		Hub:   hub,
		Relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middlewares.OriginAllowed(origins, r.Header.Get("Origin"))
			},
		},
	}
}

// Connect -> GET /ws?token=<jwt>&client_id=<uuid>
func (rc *RealtimeController) Connect(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	clientID := c.Query("client_id")
	if _, err := uuid.Parse(clientID); err != nil {
		clientID = uuid.NewString()
	}

	ws, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	client := realtime.NewClient(rc.Hub, ws, clientID, user.Email, user.Role)
	rc.Hub.Register(client)
	go client.WritePump()

	ctx := context.WithoutCancel(c.Request.Context())
	if err := rc.Relay.SyncClient(ctx, clientID, user.Email, user.Role); err != nil {
		utils.ErrorLogger.Errorf("Initial sync for client %s failed: %v", clientID, err)
	}

	client.ReadPump()
}
