package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one authenticated connection. ID is the opaque per-connection
// identifier broadcast in presence and update events; UserID is the identity
// decoded from the handshake credential and is only consulted by autosave.
type Client struct {
	conn    *connWrapper
	Message chan *Event
	ID      string
	UserID  string

	// roomID is the connection's single room membership. It is read and
	// written exclusively by the Core dispatch goroutine.
	roomID string

	maxMessageSize int64

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(conn *websocket.Conn, id, userID string, sendBuffer, maxMessageSize int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if maxMessageSize <= 0 {
		maxMessageSize = 32768
	}

	return &Client{
		conn:           newConnWrapper(conn),
		Message:        make(chan *Event, sendBuffer),
		ID:             id,
		UserID:         userID,
		maxMessageSize: int64(maxMessageSize),
		closed:         make(chan struct{}),
	}
}

// Close tears the connection down. The Message channel is never closed so
// that TrySend stays safe from any goroutine; the write pump exits via the
// closed signal instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// TrySend queues an event for delivery without blocking. Delivery is
// fire-and-forget: a slow client's backlog is dropped, not waited on.
func (c *Client) TrySend(ev *Event) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.Message <- ev:
		return true
	default:
		log.Printf("client %s buffer full, dropping %s", c.ID, ev.Type)
		return false
	}
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReadPump decodes inbound frames and hands them to the dispatch loop. It
// owns connection teardown signalling: on exit the client is enqueued for
// unregistration so the registry can run leave semantics.
func (c *Client) ReadPump(core *Core) {
	defer func() {
		select {
		case core.unregister <- c:
		case <-core.shutdown:
			c.Close()
		}
	}()

	c.conn.conn.SetReadLimit(c.maxMessageSize)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		_ = c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			return
		}

		if len(raw) == 0 {
			continue
		}

		var ev inboundEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("malformed frame from client %s: %v", c.ID, err)
			continue
		}

		select {
		case core.inbound <- command{client: c, event: ev}:
		case <-c.closed:
			return
		}
	}
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	defer c.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.Message:
			_ = c.conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error (client %s): %v", c.ID, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteControl(websocket.PingMessage, nil); err != nil {
				log.Printf("ping error (client %s): %v", c.ID, err)
				return
			}

		case <-c.closed:
			return
		}
	}
}
