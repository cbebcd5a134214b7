package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/rules"
	"storyquestAPI/internal/story"
)

const maxShareMessageLength = 500

// ViralService owns the like and view counters and story sharing.
type ViralService struct {
	db           *pgxpool.Pool
	achievements *AchievementService
	logger       *zap.Logger
	now          func() time.Time
}

func NewViralService(db *pgxpool.Pool, achievements *AchievementService, logger *zap.Logger) *ViralService {
	return &ViralService{
		db:           db,
		achievements: achievements,
		logger:       logger.Named("ViralService"),
		now:          time.Now,
	}
}

// Like adds one like and returns the new count. The story owner, not the
// liker, is checked against the like thresholds. Repeat likes all count.
func (s *ViralService) Like(ctx context.Context, callerID, storyID uuid.UUID) (int, error) {
	if callerID == uuid.Nil {
		return 0, apperr.ErrNotLoggedIn
	}

	var (
		likes   int
		ownerID uuid.UUID
		granted []*achievement.Achievement
	)
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE stories SET like_count = like_count + 1
			WHERE id = $1
			RETURNING like_count, user_id`, storyID).Scan(&likes, &ownerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.ErrStoryNotFound
			}
			return apperr.Persistence("increment likes", err)
		}

		granted, err = s.achievements.evaluate(ctx, tx, ownerID, rules.LikeRule, likes-1, likes)
		return err
	})
	if err != nil {
		return 0, err
	}

	storyLikes.Inc()
	s.logger.Debug("Story liked", zap.String("storyID", storyID.String()), zap.String("userID", callerID.String()), zap.Int("likes", likes))
	s.achievements.announce(ctx, ownerID, granted)
	return likes, nil
}

// RecordView counts a view of a public story (or the owner's own view) and
// returns the story with its elements.
func (s *ViralService) RecordView(ctx context.Context, callerID, storyID uuid.UUID) (*story.Story, error) {
	var viewed *story.Story
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadVisibleStory(ctx, tx, callerID, storyID); err != nil {
			return err
		}

		var err error
		viewed, err = scanStory(tx.QueryRow(ctx, `
			UPDATE stories SET view_count = view_count + 1
			WHERE id = $1
			RETURNING `+storyColumns, storyID))
		if err != nil {
			return apperr.Persistence("increment views", err)
		}
		viewed.Elements, err = loadElements(ctx, tx, storyID)
		return apperr.Persistence("load elements", err)
	})
	if err != nil {
		return nil, err
	}
	return viewed, nil
}

// Share publishes the story with a message. Only the first share of a
// story moves the user's shared-story count.
func (s *ViralService) Share(ctx context.Context, callerID, storyID uuid.UUID, message string) (*story.Story, error) {
	message = strings.TrimSpace(message)
	if len(message) > maxShareMessageLength {
		return nil, apperr.Validation("share message must be at most %d characters", maxShareMessageLength)
	}

	var (
		shared  *story.Story
		granted []*achievement.Achievement
	)
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if callerID == uuid.Nil {
			return apperr.ErrNotLoggedIn
		}
		if err := lockUser(ctx, tx, callerID); err != nil {
			return err
		}
		st, err := loadOwnedStory(ctx, tx, callerID, storyID, true)
		if err != nil {
			return err
		}

		prev, err := countStories(ctx, tx, whereShared, callerID)
		if err != nil {
			return err
		}
		next := prev
		if !st.IsShared {
			next++
		}

		now := s.now()
		shared, err = scanStory(tx.QueryRow(ctx, `
			UPDATE stories
			SET is_public = TRUE, is_shared = TRUE, share_message = $2, share_date = $3, updated_at = $3
			WHERE id = $1
			RETURNING `+storyColumns, storyID, message, now))
		if err != nil {
			return apperr.Persistence("share story", err)
		}

		granted, err = s.achievements.evaluate(ctx, tx, callerID, rules.ShareRule, prev, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Story shared", zap.String("storyID", storyID.String()), zap.String("userID", callerID.String()))
	s.achievements.announce(ctx, callerID, granted)
	return shared, nil
}

// SharedStories lists public shared stories, newest share first.
func (s *ViralService) SharedStories(ctx context.Context, limit int) ([]*story.Story, error) {
	stories, err := queryStories(ctx, s.db, `
		SELECT `+storyColumns+`
		FROM stories
		WHERE is_public AND is_shared
		ORDER BY share_date DESC NULLS LAST, updated_at DESC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, apperr.Persistence("list shared stories", err)
	}
	return stories, nil
}
