package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the dashboard is served from another origin
		return true
	},
}

// WebSocketHandler bridges the in-process bus onto a websocket
// endpoint. Each connection gets its own subscription; a slow or gone
// client only loses its own events.
type WebSocketHandler struct {
	bus *Bus
	log zerolog.Logger
}

func NewWebSocketHandler(bus *Bus, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{bus: bus, log: log}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := h.bus.Subscribe(TopicVehicleAdmitted, TopicZoneUpdated)
	h.log.Debug().Int("subscribers", h.bus.SubscriberCount()).Msg("websocket client connected")

	// reader: we expect no client frames, but the read loop is how we
	// learn about a disconnect
	go func() {
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug().Err(err).Msg("websocket read error")
				}
				return
			}
		}
	}()

	go func() {
		defer conn.Close()
		for ev := range sub.C {
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed, closing")
				sub.Close()
				return
			}
		}
	}()
}
