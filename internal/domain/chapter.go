package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrChapterNotFound = errors.New("chapter not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Chapter is the autosave checkpoint unit. AuthorID is resolved from the
// owning novel when the chapter is loaded; the collaboration layer never
// stores chapters itself.
type Chapter struct {
	ID            string    `json:"id"`
	NovelID       string    `json:"novelId"`
	AuthorID      string    `json:"authorId"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ChapterNumber int       `json:"chapterNumber"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ChapterStore interface {
	// FindByID loads a chapter with its owning novel's author resolved.
	FindByID(ctx context.Context, id string) (*Chapter, error)
	Save(ctx context.Context, chapter *Chapter) error
}
