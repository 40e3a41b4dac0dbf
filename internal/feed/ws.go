package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"example.com/notesync/internal/auth"
	"example.com/notesync/internal/notes"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	readTimeout  = 90 * time.Second
)

// opLagged is a control frame telling the client that events were
// dropped and it must re-fetch. It never appears in broker traffic.
const opLagged notes.Op = "lagged"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Token auth, not cookies, so cross-origin upgrades are harmless.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler streams the authenticated user's change feed over a
// websocket. One subscription per connection, torn down when the
// connection drops.
func Handler(b *Broker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := auth.Identity(r.Context())
		if !ok {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			glog.Infof("[feed]upgrade %s error = %s", owner, err)
			return
		}

		// Subscription lifetime is the connection's, not the hijacked
		// request context's.
		sub, _ := b.Subscribe(context.Background(), owner)
		defer sub.Close()
		defer ws.Close()

		go func() {
			writeLoop(ws, sub, owner)
			_ = ws.Close()
		}()

		readLoop(ws)
	})
}

func writeLoop(ws *websocket.Conn, sub Subscription, owner uuid.UUID) {
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(ev); err != nil {
				glog.V(2).Infof("[feed]%s-> error = %s", owner, err)
				return
			}
			if sub.Lagged() {
				_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = ws.WriteJSON(notes.Event{Op: opLagged})
				glog.Infof("[feed]%s-> lagged, closing", owner)
				return
			}
		case <-pings.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains the connection so close frames and pongs are
// processed; clients never send data frames.
func readLoop(ws *websocket.Conn) {
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
