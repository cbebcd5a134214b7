package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/story"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxTitleLength   = 100
)

type StoryService struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewStoryService(db *pgxpool.Pool, logger *zap.Logger) *StoryService {
	return &StoryService{
		db:     db,
		logger: logger.Named("StoryService"),
		now:    time.Now,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (s *StoryService) Create(ctx context.Context, ownerID uuid.UUID, req *story.CreateStoryRequest) (*story.Story, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if len(title) > maxTitleLength {
		return nil, apperr.Validation("title must be at most %d characters", maxTitleLength)
	}

	ageGroup := strings.TrimSpace(req.AgeGroup)
	if ageGroup == "" {
		err := s.db.QueryRow(ctx, `SELECT age_group FROM users WHERE id = $1`, ownerID).Scan(&ageGroup)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperr.ErrUserNotFound
			}
			return nil, apperr.Persistence("load owner age group", err)
		}
	}

	now := s.now()
	query := `
	INSERT INTO stories (user_id, title, description, age_group, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	RETURNING ` + storyColumns

	st, err := scanStory(s.db.QueryRow(ctx, query, ownerID, title, strings.TrimSpace(req.Description), ageGroup, now))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperr.ErrUserNotFound
		}
		s.logger.Error("Failed to create story", zap.String("userID", ownerID.String()), zap.Error(err))
		return nil, apperr.Persistence("create story", err)
	}
	st.Elements = []*story.Element{}

	s.logger.Info("Story created", zap.String("storyID", st.ID.String()), zap.String("userID", ownerID.String()))
	return st, nil
}

// Get returns a story with its elements ordered by position.
func (s *StoryService) Get(ctx context.Context, callerID, storyID uuid.UUID) (*story.Story, error) {
	st, err := loadVisibleStory(ctx, s.db, callerID, storyID)
	if err != nil {
		return nil, err
	}
	st.Elements, err = loadElements(ctx, s.db, storyID)
	if err != nil {
		return nil, apperr.Persistence("load elements", err)
	}
	return st, nil
}

func (s *StoryService) Update(ctx context.Context, callerID, storyID uuid.UUID, req *story.UpdateStoryRequest) (*story.Story, error) {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Validation("title is required")
		}
		if len(title) > maxTitleLength {
			return nil, apperr.Validation("title must be at most %d characters", maxTitleLength)
		}
		req.Title = &title
	}

	var updated *story.Story
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, callerID, storyID, true); err != nil {
			return err
		}

		query := `
		UPDATE stories SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			content     = COALESCE($4, content),
			is_complete = COALESCE($5, is_complete),
			is_draft    = COALESCE($6, is_draft),
			updated_at  = $7
		WHERE id = $1
		RETURNING ` + storyColumns

		st, err := scanStory(tx.QueryRow(ctx, query, storyID,
			req.Title, req.Description, req.Content, req.IsComplete, req.IsDraft, s.now()))
		if err != nil {
			return apperr.Persistence("update story", err)
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReplaceElements swaps the story's element list for elems, placed at
// positions 0..n-1.
func (s *StoryService) ReplaceElements(ctx context.Context, callerID, storyID uuid.UUID, req *story.ReplaceElementsRequest) (*story.Story, error) {
	for i, e := range req.Elements {
		if strings.TrimSpace(e.Type) == "" {
			return nil, apperr.Validation("element %d: type is required", i)
		}
		if len(e.Content) > 0 && !json.Valid(e.Content) {
			return nil, apperr.Validation("element %d: content must be valid JSON", i)
		}
	}

	var result *story.Story
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, callerID, storyID, true); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM story_elements WHERE story_id = $1`, storyID); err != nil {
			return apperr.Persistence("clear story elements", err)
		}

		now := s.now()
		batch := &pgx.Batch{}
		for i, e := range req.Elements {
			content := string(e.Content)
			if content == "" {
				content = "null"
			}
			batch.Queue(`
				INSERT INTO story_elements (story_id, element_type, content, position, character_id, setting_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
				storyID, strings.TrimSpace(e.Type), content, i, e.CharacterID, e.SettingID, now)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				if database.IsForeignKeyViolation(err) {
					return apperr.Validation("element references an unknown character or setting")
				}
				return apperr.Persistence("insert story elements", err)
			}
		}

		st, err := scanStory(tx.QueryRow(ctx, `
			UPDATE stories SET is_complete = COALESCE($2, is_complete), updated_at = $3
			WHERE id = $1
			RETURNING `+storyColumns, storyID, req.IsComplete, now))
		if err != nil {
			return apperr.Persistence("touch story", err)
		}
		st.Elements, err = loadElements(ctx, tx, storyID)
		if err != nil {
			return apperr.Persistence("reload elements", err)
		}
		result = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Story elements replaced", zap.String("storyID", storyID.String()), zap.Int("count", len(req.Elements)))
	return result, nil
}

// Autosave stores serialized editor content and returns the save time.
func (s *StoryService) Autosave(ctx context.Context, callerID, storyID uuid.UUID, content json.RawMessage) (time.Time, error) {
	if len(content) > 0 && !json.Valid(content) {
		return time.Time{}, apperr.Validation("content must be valid JSON")
	}

	var savedAt time.Time
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, callerID, storyID, true); err != nil {
			return err
		}
		savedAt = s.now()
		if len(content) == 0 {
			_, err := tx.Exec(ctx, `UPDATE stories SET updated_at = $2 WHERE id = $1`, storyID, savedAt)
			return apperr.Persistence("autosave story", err)
		}
		_, err := tx.Exec(ctx, `UPDATE stories SET content = $2, updated_at = $3 WHERE id = $1`, storyID, string(content), savedAt)
		return apperr.Persistence("autosave story", err)
	})
	if err != nil {
		return time.Time{}, err
	}
	return savedAt, nil
}

// ToggleVisibility flips is_public and returns the new value.
func (s *StoryService) ToggleVisibility(ctx context.Context, callerID, storyID uuid.UUID) (bool, error) {
	var isPublic bool
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, callerID, storyID, true); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			UPDATE stories SET is_public = NOT is_public, updated_at = $2
			WHERE id = $1
			RETURNING is_public`, storyID, s.now()).Scan(&isPublic)
		return apperr.Persistence("toggle visibility", err)
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("Story visibility changed", zap.String("storyID", storyID.String()), zap.Bool("isPublic", isPublic))
	return isPublic, nil
}

// Delete removes the story. Characters, settings, elements and progress go
// with it through the foreign keys; achievements stay with the user.
func (s *StoryService) Delete(ctx context.Context, callerID, storyID uuid.UUID) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, callerID, storyID, true); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM stories WHERE id = $1`, storyID)
		return apperr.Persistence("delete story", err)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Story deleted", zap.String("storyID", storyID.String()), zap.String("userID", callerID.String()))
	return nil
}

// UserStories lists the user's stories, most recently active first.
func (s *StoryService) UserStories(ctx context.Context, userID uuid.UUID, includeDrafts bool) ([]*story.Story, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	query := `SELECT ` + storyColumns + ` FROM stories WHERE user_id = $1`
	if !includeDrafts {
		query += ` AND NOT is_draft`
	}
	query += ` ORDER BY updated_at DESC, id`

	stories, err := queryStories(ctx, s.db, query, userID)
	if err != nil {
		return nil, apperr.Persistence("list user stories", err)
	}
	return stories, nil
}

// PublicStories lists public stories, most recently shared first. Stories
// that were never shared sort last.
func (s *StoryService) PublicStories(ctx context.Context, limit int) ([]*story.Story, error) {
	stories, err := queryStories(ctx, s.db, `
		SELECT `+storyColumns+`
		FROM stories
		WHERE is_public
		ORDER BY share_date DESC NULLS LAST, created_at DESC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, apperr.Persistence("list public stories", err)
	}
	return stories, nil
}

// FeaturedStories ranks public stories by views, then likes, then recency.
func (s *StoryService) FeaturedStories(ctx context.Context, limit int) ([]*story.Story, error) {
	stories, err := queryStories(ctx, s.db, `
		SELECT `+storyColumns+`
		FROM stories
		WHERE is_public
		ORDER BY view_count DESC, like_count DESC, created_at DESC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, apperr.Persistence("list featured stories", err)
	}
	return stories, nil
}
