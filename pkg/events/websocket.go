package events

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// WSHandler streams bus events to websocket clients as JSON messages.
type WSHandler struct {
	bus      *Bus
	logger   logging.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler over the bus.
func NewWSHandler(bus *Bus, logger logging.Logger) *WSHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &WSHandler{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Topology events carry no secrets and the API already sits
			// behind the auth middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects. The optional ?type= query parameter narrows the stream to one
// event type.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	topic := r.URL.Query().Get("type")
	sub, err := h.bus.Subscribe(r.Context(), topic)
	if err != nil {
		h.logger.Warn("Websocket subscribe failed", logging.Error(err))
		return
	}
	defer sub.Unsubscribe()

	h.logger.Debug("Websocket client connected",
		logging.String("remote", r.RemoteAddr), logging.String("type", topic))

	// Drain incoming frames so close and pong frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Unsubscribe()
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Channel():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("Websocket client gone", logging.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
