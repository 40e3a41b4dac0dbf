package feed

import (
	"context"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"example.com/notesync/internal/notes"
)

// Dialer subscribes to a remote change feed over a websocket. The owner
// predicate is applied server-side from the token's identity; the owner
// argument to Subscribe only has to match the token.
type Dialer struct {
	URL   string // ws(s)://host/notes/feed
	Token string
}

func (d *Dialer) Subscribe(ctx context.Context, owner uuid.UUID) (Subscription, error) {
	endpoint := d.URL + "?token=" + url.QueryEscape(d.Token)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	c := &remote{ws: ws, ch: make(chan notes.Event, 64)}
	go c.readLoop()
	return c, nil
}

type remote struct {
	ws *websocket.Conn
	ch chan notes.Event

	mu     sync.Mutex
	lagged bool
}

func (c *remote) Events() <-chan notes.Event { return c.ch }

func (c *remote) Lagged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lagged
}

func (c *remote) Close() error {
	return c.ws.Close()
}

func (c *remote) readLoop() {
	defer close(c.ch)
	for {
		var ev notes.Event
		if err := c.ws.ReadJSON(&ev); err != nil {
			glog.V(2).Infof("[feed]<- closed: %s", err)
			return
		}
		if ev.Op == opLagged {
			c.mu.Lock()
			c.lagged = true
			c.mu.Unlock()
			return
		}
		c.ch <- ev
	}
}
