package ws

import "time"

// Inbound event types (client → server).
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventTextUpdate  = "text-update"
	EventSaveChapter = "save-chapter"
)

// Outbound event types (server → client).
const (
	EventInitContent      = "init-content"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventTextUpdated      = "text-updated"
	EventSaveSuccess      = "save-success"
	EventSaveError        = "save-error"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type TextUpdatePayload struct {
	RoomID         string `json:"roomId"`
	Text           string `json:"text"`
	CursorPosition int    `json:"cursorPosition"`
}

type SaveChapterPayload struct {
	ChapterID     string `json:"chapterId"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ChapterNumber int    `json:"chapterNumber"`
}

// PresencePayload carries the connection id of the member that joined or
// left, plus the participant count after the transition.
type PresencePayload struct {
	UserID    string `json:"userId"`
	UserCount int    `json:"userCount"`
}

type TextUpdatedPayload struct {
	Text           string `json:"text"`
	CursorPosition int    `json:"cursorPosition"`
	UserID         string `json:"userId"`
}

type SaveSuccessPayload struct {
	ChapterID string    `json:"chapterId"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SaveErrorPayload struct {
	ChapterID string `json:"chapterId"`
	Message   string `json:"message"`
}

func NewInitContent(text string) *Event {
	return &Event{
		Type: EventInitContent,
		Data: text,
	}
}

func NewUserConnected(connID string, count int) *Event {
	return &Event{
		Type: EventUserConnected,
		Data: PresencePayload{
			UserID:    connID,
			UserCount: count,
		},
	}
}

func NewUserDisconnected(connID string, count int) *Event {
	return &Event{
		Type: EventUserDisconnected,
		Data: PresencePayload{
			UserID:    connID,
			UserCount: count,
		},
	}
}

func NewTextUpdated(connID, text string, cursorPosition int) *Event {
	return &Event{
		Type: EventTextUpdated,
		Data: TextUpdatedPayload{
			Text:           text,
			CursorPosition: cursorPosition,
			UserID:         connID,
		},
	}
}

func NewSaveSuccess(chapterID string, updatedAt time.Time) *Event {
	return &Event{
		Type: EventSaveSuccess,
		Data: SaveSuccessPayload{
			ChapterID: chapterID,
			Message:   "chapter saved",
			UpdatedAt: updatedAt,
		},
	}
}

func NewSaveError(chapterID, message string) *Event {
	return &Event{
		Type: EventSaveError,
		Data: SaveErrorPayload{
			ChapterID: chapterID,
			Message:   message,
		},
	}
}
