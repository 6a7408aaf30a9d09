package ws

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/inkstream/collab/internal/domain"
)

// AutosaveCoordinator persists a chapter checkpoint on behalf of a single
// requester. Every outcome, success or failure, goes to that requester only;
// nothing on this path is ever broadcast to the room.
type AutosaveCoordinator struct {
	store  domain.ChapterStore
	logger *zap.SugaredLogger
}

func NewAutosaveCoordinator(store domain.ChapterStore, logger *zap.SugaredLogger) *AutosaveCoordinator {
	return &AutosaveCoordinator{
		store:  store,
		logger: logger,
	}
}

func (a *AutosaveCoordinator) Save(ctx context.Context, cl *Client, p SaveChapterPayload) {
	chapter, err := a.store.FindByID(ctx, p.ChapterID)
	if err != nil {
		if errors.Is(err, domain.ErrChapterNotFound) {
			cl.TrySend(NewSaveError(p.ChapterID, "chapter not found"))
			return
		}
		a.logger.Errorw("autosave lookup failed", "chapterId", p.ChapterID, "error", err)
		cl.TrySend(NewSaveError(p.ChapterID, "save failed, please try again later"))
		return
	}

	// Only the owning novel's author may checkpoint the chapter.
	if chapter.AuthorID != cl.UserID {
		cl.TrySend(NewSaveError(p.ChapterID, "no permission to modify this chapter"))
		return
	}

	if p.Title != "" {
		chapter.Title = p.Title
	}
	if p.Content != "" {
		chapter.Content = p.Content
	}
	if p.ChapterNumber != 0 {
		chapter.ChapterNumber = p.ChapterNumber
	}

	if err := a.store.Save(ctx, chapter); err != nil {
		a.logger.Errorw("autosave persist failed", "chapterId", p.ChapterID, "error", err)
		cl.TrySend(NewSaveError(p.ChapterID, "save failed, please try again later"))
		return
	}

	cl.TrySend(NewSaveSuccess(chapter.ID, chapter.UpdatedAt))
}
