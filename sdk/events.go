package sdk

import "encoding/json"

// Event types exchanged with the collaboration server. The strings are the
// wire protocol; they are re-declared here so the SDK stands alone.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventTextUpdate  = "text-update"
	EventSaveChapter = "save-chapter"

	EventInitContent      = "init-content"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventTextUpdated      = "text-updated"
	EventSaveSuccess      = "save-success"
	EventSaveError        = "save-error"
)

// Message is the envelope for every frame. Data stays raw so each handler
// can decode the payload it expects.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outboundEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type TextUpdateData struct {
	RoomID         string `json:"roomId"`
	Text           string `json:"text"`
	CursorPosition int    `json:"cursorPosition"`
}

type SaveChapterData struct {
	ChapterID     string `json:"chapterId"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ChapterNumber int    `json:"chapterNumber"`
}

type UserConnectedData struct {
	UserID    string `json:"userId"`
	UserCount int    `json:"userCount"`
}

type TextUpdatedData struct {
	Text           string `json:"text"`
	CursorPosition int    `json:"cursorPosition"`
	UserID         string `json:"userId"`
}

type SaveSuccessData struct {
	ChapterID string `json:"chapterId"`
	Message   string `json:"message"`
	UpdatedAt string `json:"updatedAt"`
}

type SaveErrorData struct {
	ChapterID string `json:"chapterId"`
	Message   string `json:"message"`
}
