package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

const (
	writeWait   = 10 * time.Second
	readWait    = 30 * time.Second
	maxMsgSize  = 64 * 1024
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS handles GET /ws/odds. The client sends one request message; the
// server answers with progress messages, then a result or error message,
// and closes the connection. Closing the socket early cancels the
// calculation.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(readWait))

	var req calculator.Request
	if err := conn.ReadJSON(&req); err != nil {
		h.send(conn, calculator.StreamMessage{Type: calculator.MessageError, Error: "invalid request: " + err.Error()})
		return
	}
	conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// A read only returns once the peer closes or errors.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	// Worker goroutines produce snapshots; only this writer touches conn.
	snapshots := make(chan odds.AggregateResult, sendBufSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snapshots {
			h.send(conn, calculator.StreamMessage{Type: calculator.MessageProgress, Progress: &snap})
		}
	}()

	resp, err := h.calc.Calculate(ctx, req, func(snap odds.AggregateResult) {
		select {
		case snapshots <- snap:
		default:
		}
	})
	close(snapshots)
	<-done

	if err != nil {
		h.send(conn, calculator.StreamMessage{Type: calculator.MessageError, Error: err.Error()})
		return
	}
	h.send(conn, calculator.StreamMessage{Type: calculator.MessageResult, Response: &resp})

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Handler) send(conn *websocket.Conn, msg calculator.StreamMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Str("type", string(msg.Type)).Msg("WebSocket write failed")
	}
}
