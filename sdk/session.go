package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected     = errors.New("sdk: not connected")
	ErrNoActiveRoom     = errors.New("sdk: no active room")
	ErrAlreadyConnected = errors.New("sdk: already connected")
)

// Handler receives the raw payload of one event occurrence.
type Handler func(data json.RawMessage)

// Session is the client-side facade over one collaboration connection: it
// tracks at most one room membership, keeps a subscription registry that
// survives connects and disconnects, and fails fast when used before a
// connection exists.
type Session struct {
	serverURL string
	token     string
	dialer    websocket.Dialer

	mu           sync.RWMutex
	conn         *websocket.Conn
	room         string
	handlers     map[string][]Handler
	errorHandler func(error)

	writeMu sync.Mutex
}

func NewSession(serverURL, token string) *Session {
	return &Session{
		serverURL: serverURL,
		token:     token,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		handlers: make(map[string][]Handler),
	}
}

// On registers a handler for an event type. Handlers registered before
// Connect are held in the registry and start firing as soon as the
// connection delivers a matching event; handlers registered afterwards take
// effect immediately.
func (s *Session) On(event string, h Handler) {
	if h == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// Off removes every handler registered for the event type.
func (s *Session) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

// SetErrorHandler installs a callback for read-loop failures.
func (s *Session) SetErrorHandler(h func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorHandler = h
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Connect dials the collaboration endpoint, presenting the credential at
// handshake time. The credential is not renegotiated mid-session.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	endpoint, err := s.websocketURL()
	if err != nil {
		return err
	}

	conn, _, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.listen(conn)

	return nil
}

// Disconnect closes the connection and clears local room tracking. The
// server's own disconnect cleanup removes the connection from its room; no
// leave event is sent.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.room = ""
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	return conn.Close()
}

// JoinRoom enters a room, leaving the currently tracked one first. A session
// is a member of at most one room at a time.
func (s *Session) JoinRoom(roomID string) error {
	if roomID == "" {
		return errors.New("sdk: room id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}

	if s.room != "" && s.room != roomID {
		if err := s.send(outboundEvent{Type: EventLeaveRoom, Data: s.room}); err != nil {
			return err
		}
		s.room = ""
	}

	if err := s.send(outboundEvent{Type: EventJoinRoom, Data: roomID}); err != nil {
		return err
	}

	s.room = roomID
	return nil
}

// LeaveRoom exits the tracked room; a no-op when none is tracked.
func (s *Session) LeaveRoom() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}
	if s.room == "" {
		return nil
	}

	if err := s.send(outboundEvent{Type: EventLeaveRoom, Data: s.room}); err != nil {
		return err
	}

	s.room = ""
	return nil
}

// SendUpdate broadcasts the full text snapshot plus cursor position to the
// other members of the active room.
func (s *Session) SendUpdate(text string, cursorPosition int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return ErrNotConnected
	}
	if s.room == "" {
		return ErrNoActiveRoom
	}

	return s.send(outboundEvent{
		Type: EventTextUpdate,
		Data: TextUpdateData{
			RoomID:         s.room,
			Text:           text,
			CursorPosition: cursorPosition,
		},
	})
}

// SaveChapter requests an autosave checkpoint. The outcome arrives as a
// save-success or save-error event addressed to this session only.
func (s *Session) SaveChapter(chapterID, title, content string, chapterNumber int) error {
	if chapterID == "" {
		return errors.New("sdk: chapter id required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return ErrNotConnected
	}

	return s.send(outboundEvent{
		Type: EventSaveChapter,
		Data: SaveChapterData{
			ChapterID:     chapterID,
			Title:         title,
			Content:       content,
			ChapterNumber: chapterNumber,
		},
	})
}

// Room reports the currently tracked room id, empty when none.
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// send requires the caller to hold s.mu (read or write) so conn is stable;
// writeMu serializes the actual frame writes.
func (s *Session) send(ev outboundEvent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(ev)
}

func (s *Session) listen(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			s.teardown(conn, err)
			return
		}

		s.mu.RLock()
		handlers := make([]Handler, len(s.handlers[msg.Type]))
		copy(handlers, s.handlers[msg.Type])
		s.mu.RUnlock()

		for _, h := range handlers {
			h(msg.Data)
		}
	}
}

func (s *Session) teardown(conn *websocket.Conn, err error) {
	s.mu.Lock()
	stale := s.conn != conn
	if !stale {
		s.conn = nil
		s.room = ""
	}
	handler := s.errorHandler
	s.mu.Unlock()

	_ = conn.Close()

	if stale || handler == nil {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	handler(err)
}

func (s *Session) websocketURL() (string, error) {
	base := s.serverURL
	if after, ok := strings.CutPrefix(base, "https://"); ok {
		base = "wss://" + after
	} else if after0, ok0 := strings.CutPrefix(base, "http://"); ok0 {
		base = "ws://" + after0
	}

	if !strings.HasPrefix(base, "ws://") && !strings.HasPrefix(base, "wss://") {
		return "", fmt.Errorf("sdk: unsupported server url %q", s.serverURL)
	}

	return fmt.Sprintf("%s/api/collab?token=%s", strings.TrimSuffix(base, "/"), url.QueryEscape(s.token)), nil
}
