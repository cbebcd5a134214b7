package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/story"
)

const storyColumns = `id, user_id, challenge_id, title, description, content, age_group,
	is_public, is_shared, is_complete, is_draft, is_challenge_winner,
	like_count, view_count, share_message, created_at, updated_at, share_date, submission_date`

func scanStory(row pgx.Row) (*story.Story, error) {
	st := &story.Story{}
	err := row.Scan(
		&st.ID, &st.UserID, &st.ChallengeID, &st.Title, &st.Description, &st.Content, &st.AgeGroup,
		&st.IsPublic, &st.IsShared, &st.IsComplete, &st.IsDraft, &st.IsChallengeWinner,
		&st.LikeCount, &st.ViewCount, &st.ShareMessage, &st.CreatedAt, &st.UpdatedAt, &st.ShareDate, &st.SubmissionDate,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func queryStories(ctx context.Context, q database.DBTX, query string, args ...any) ([]*story.Story, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := make([]*story.Story, 0)
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

// loadStory fetches one story, optionally locking the row for the rest of
// the transaction.
func loadStory(ctx context.Context, q database.DBTX, storyID uuid.UUID, forUpdate bool) (*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	st, err := scanStory(q.QueryRow(ctx, query, storyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrStoryNotFound
		}
		return nil, apperr.Persistence("load story", err)
	}
	return st, nil
}

// loadOwnedStory is loadStory plus the ownership check every mutation needs.
func loadOwnedStory(ctx context.Context, q database.DBTX, callerID, storyID uuid.UUID, forUpdate bool) (*story.Story, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	st, err := loadStory(ctx, q, storyID, forUpdate)
	if err != nil {
		return nil, err
	}
	if !st.OwnedBy(callerID) {
		return nil, apperr.ErrPermissionDenied
	}
	return st, nil
}

// loadVisibleStory applies the read rule: owners always, others only when
// the story is public.
func loadVisibleStory(ctx context.Context, q database.DBTX, callerID, storyID uuid.UUID) (*story.Story, error) {
	st, err := loadStory(ctx, q, storyID, false)
	if err != nil {
		return nil, err
	}
	if !st.VisibleTo(callerID) {
		return nil, apperr.ErrPermissionDenied
	}
	return st, nil
}

func loadElements(ctx context.Context, q database.DBTX, storyID uuid.UUID) ([]*story.Element, error) {
	rows, err := q.Query(ctx, `
		SELECT id, story_id, element_type, content, position, character_id, setting_id, created_at
		FROM story_elements
		WHERE story_id = $1
		ORDER BY position`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query story elements: %w", err)
	}
	defer rows.Close()

	elements := make([]*story.Element, 0)
	for rows.Next() {
		e := &story.Element{}
		if err := rows.Scan(&e.ID, &e.StoryID, &e.ElementType, &e.Content, &e.Position,
			&e.CharacterID, &e.SettingID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story element: %w", err)
		}
		elements = append(elements, e)
	}
	return elements, rows.Err()
}

// lockUser serializes rule evaluation per user so concurrent actions see
// each other's counts.
func lockUser(ctx context.Context, q database.DBTX, userID uuid.UUID) error {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrUserNotFound
	}
	if err != nil {
		return apperr.Persistence("lock user", err)
	}
	return nil
}

func countStories(ctx context.Context, q database.DBTX, where string, userID uuid.UUID) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM stories WHERE user_id = $1 AND `+where, userID).Scan(&n); err != nil {
		return 0, apperr.Persistence("count stories", err)
	}
	return n, nil
}

const (
	whereShared      = `is_shared`
	whereInChallenge = `challenge_id IS NOT NULL`
)
