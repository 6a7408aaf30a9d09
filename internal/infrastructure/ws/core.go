package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inkstream/collab/internal/domain"
)

const saveTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Upgrade promotes an authenticated HTTP request to a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

type command struct {
	client *Client
	event  inboundEvent
}

// Core runs the single dispatch loop that serializes all registry mutations.
// Join, leave and update are handled inline and never block on I/O; only
// autosave leaves the loop, because it talks to the chapter store.
type Core struct {
	registry   *Registry
	autosave   *AutosaveCoordinator
	inbound    chan command
	unregister chan *Client
	logger     *zap.SugaredLogger

	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewCore(store domain.ChapterStore, logger *zap.SugaredLogger) *Core {
	return &Core{
		registry:   NewRegistry(),
		autosave:   NewAutosaveCoordinator(store, logger),
		inbound:    make(chan command, 256),
		unregister: make(chan *Client, 64),
		logger:     logger,
		shutdown:   make(chan struct{}),
	}
}

// Attach starts the connection's pumps. No registry state is touched until
// the client joins a room.
func (c *Core) Attach(cl *Client) {
	go cl.WritePump()
	go cl.ReadPump(c)
}

func (c *Core) Run(ctx context.Context) {
	defer c.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("dispatch loop shutting down")
			c.Shutdown()
			return

		case <-c.shutdown:
			return

		case cl := <-c.unregister:
			c.registry.Evict(cl)
			cl.Close()
			c.logger.Infow("client disconnected", "connectionId", cl.ID, "userId", cl.UserID)

		case cmd := <-c.inbound:
			c.dispatch(cmd)
		}
	}
}

func (c *Core) dispatch(cmd command) {
	cl := cmd.client

	switch cmd.event.Type {
	case EventJoinRoom:
		var roomID string
		if err := json.Unmarshal(cmd.event.Data, &roomID); err != nil || roomID == "" {
			c.logger.Warnw("bad join-room payload", "connectionId", cl.ID, "error", err)
			return
		}
		c.registry.Join(cl, roomID)
		c.logger.Infow("client joined room", "connectionId", cl.ID, "roomId", roomID)

	case EventLeaveRoom:
		var roomID string
		if err := json.Unmarshal(cmd.event.Data, &roomID); err != nil || roomID == "" {
			c.logger.Warnw("bad leave-room payload", "connectionId", cl.ID, "error", err)
			return
		}
		c.registry.Leave(cl, roomID)
		c.logger.Infow("client left room", "connectionId", cl.ID, "roomId", roomID)

	case EventTextUpdate:
		var p TextUpdatePayload
		if err := json.Unmarshal(cmd.event.Data, &p); err != nil {
			c.logger.Warnw("bad text-update payload", "connectionId", cl.ID, "error", err)
			return
		}
		c.registry.Update(cl, p)

	case EventSaveChapter:
		var p SaveChapterPayload
		if err := json.Unmarshal(cmd.event.Data, &p); err != nil {
			c.logger.Warnw("bad save-chapter payload", "connectionId", cl.ID, "error", err)
			return
		}

		// Store I/O must not stall the dispatch loop.
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()

			c.autosave.Save(ctx, cl, p)
		}()

	default:
		c.logger.Warnw("unknown event type", "connectionId", cl.ID, "type", cmd.event.Type)
	}
}

// Registry exposes room state for the HTTP surface and tests.
func (c *Core) Registry() *Registry {
	return c.registry
}

func (c *Core) Shutdown() {
	c.once.Do(func() {
		close(c.shutdown)
		c.registry.CloseAll()
	})
}
