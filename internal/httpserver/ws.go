package httpserver

import (
	"net/http"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler relays bus events to connected dashboard clients. Delivery is
// best-effort: a slow client drops events rather than backing up the bus.
type WSHandler struct {
	bus      *notify.Bus
	origin   string
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *notify.Bus, origin string, log *logrus.Entry) *WSHandler {
	return &WSHandler{
		bus:    bus,
		origin: origin,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, allowed string) bool {
	if allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == allowed
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := h.bus.Subscribe()
	defer h.bus.Unsubscribe(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
