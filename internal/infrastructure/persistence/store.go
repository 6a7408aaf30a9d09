package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkstream/collab/internal/domain"
)

// Novel rows are owned by the CRUD service; the collaboration layer only
// reads them to resolve chapter authorship.
type Novel struct {
	ID        string `gorm:"primaryKey"`
	AuthorID  string `gorm:"index"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Chapter struct {
	ID            string `gorm:"primaryKey"`
	NovelID       string `gorm:"index"`
	Title         string
	Content       string
	ChapterNumber int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Novel{}, &Chapter{})
}

type chapterStore struct {
	db *gorm.DB
}

func NewChapterStore(db *gorm.DB) domain.ChapterStore {
	return &chapterStore{db: db}
}

func (s *chapterStore) FindByID(ctx context.Context, id string) (*domain.Chapter, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	var row Chapter
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to load chapter %s: %w", id, err)
	}

	var novel Novel
	if err := s.db.WithContext(ctx).First(&novel, "id = ?", row.NovelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A chapter without its novel is unresolvable for authorization.
			return nil, domain.ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to resolve novel %s: %w", row.NovelID, err)
	}

	return &domain.Chapter{
		ID:            row.ID,
		NovelID:       row.NovelID,
		AuthorID:      novel.AuthorID,
		Title:         row.Title,
		Content:       row.Content,
		ChapterNumber: row.ChapterNumber,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (s *chapterStore) Save(ctx context.Context, chapter *domain.Chapter) error {
	if chapter == nil || chapter.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&Chapter{}).
		Where("id = ?", chapter.ID).
		Updates(map[string]any{
			"title":          chapter.Title,
			"content":        chapter.Content,
			"chapter_number": chapter.ChapterNumber,
			"updated_at":     now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save chapter %s: %w", chapter.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrChapterNotFound
	}

	chapter.UpdatedAt = now
	return nil
}
