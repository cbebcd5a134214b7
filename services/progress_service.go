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
	"storyquestAPI/internal/progress"
)

const maxStepLength = 50

type ProgressService struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewProgressService(db *pgxpool.Pool, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		db:     db,
		logger: logger.Named("ProgressService"),
		now:    time.Now,
	}
}

const progressColumns = `id, user_id, story_id, current_step, data, created_at, updated_at`

func scanProgress(row pgx.Row) (*progress.Progress, error) {
	p := &progress.Progress{}
	if err := row.Scan(&p.ID, &p.UserID, &p.StoryID, &p.CurrentStep, &p.Data, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveProgress overwrites the caller's checkpoint on the story, creating it
// on first save. The story's updated_at moves with it in the same
// transaction.
func (s *ProgressService) SaveProgress(ctx context.Context, userID, storyID uuid.UUID, step string, data json.RawMessage) (*progress.Progress, error) {
	step = strings.TrimSpace(step)
	if step == "" {
		return nil, apperr.Validation("current_step is required")
	}
	if len(step) > maxStepLength {
		return nil, apperr.Validation("current_step must be at most %d characters", maxStepLength)
	}
	if len(data) > 0 && !json.Valid(data) {
		return nil, apperr.Validation("data must be valid JSON")
	}

	var saved *progress.Progress
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := loadOwnedStory(ctx, tx, userID, storyID, true); err != nil {
			return err
		}

		now := s.now()
		p, err := scanProgress(tx.QueryRow(ctx, `
			INSERT INTO progress (user_id, story_id, current_step, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT ON CONSTRAINT progress_user_story_key DO UPDATE
			SET current_step = EXCLUDED.current_step,
				data         = EXCLUDED.data,
				updated_at   = EXCLUDED.updated_at
			RETURNING `+progressColumns, userID, storyID, step, string(data), now))
		if err != nil {
			return apperr.Persistence("upsert progress", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE stories SET updated_at = $2 WHERE id = $1`, storyID, now); err != nil {
			return apperr.Persistence("touch story", err)
		}
		saved = p
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrPersistence) {
			s.logger.Error("Failed to save progress", zap.String("storyID", storyID.String()), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Debug("Progress saved", zap.String("storyID", storyID.String()), zap.String("step", step))
	return saved, nil
}

// LoadProgress returns the caller's checkpoint. ErrProgressNotFound is the
// normal answer for a story that was never saved.
func (s *ProgressService) LoadProgress(ctx context.Context, userID, storyID uuid.UUID) (*progress.Progress, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if _, err := loadVisibleStory(ctx, s.db, userID, storyID); err != nil {
		return nil, err
	}

	p, err := scanProgress(s.db.QueryRow(ctx, `
		SELECT `+progressColumns+`
		FROM progress
		WHERE user_id = $1 AND story_id = $2`, userID, storyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrProgressNotFound
		}
		return nil, apperr.Persistence("load progress", err)
	}
	return p, nil
}
