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
	"storyquestAPI/internal/challenge"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/rules"
	"storyquestAPI/internal/story"
)

const (
	upcomingChallengeLimit = 3
	pastChallengeLimit     = 5
)

type ChallengeService struct {
	db           *pgxpool.Pool
	achievements *AchievementService
	logger       *zap.Logger
	now          func() time.Time
}

func NewChallengeService(db *pgxpool.Pool, achievements *AchievementService, logger *zap.Logger) *ChallengeService {
	return &ChallengeService{
		db:           db,
		achievements: achievements,
		logger:       logger.Named("ChallengeService"),
		now:          time.Now,
	}
}

const challengeColumns = `id, title, description, start_date, end_date, difficulty, age_group, is_active, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.StartDate, &c.EndDate, &c.Difficulty, &c.AgeGroup, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChallengeService) queryChallenges(ctx context.Context, query string, args ...any) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Persistence("list challenges", err)
	}
	defer rows.Close()

	out := make([]*challenge.Challenge, 0)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, apperr.Persistence("scan challenge", err)
		}
		out = append(out, c)
	}
	return out, apperr.Persistence("list challenges", rows.Err())
}

func loadChallenge(ctx context.Context, q database.DBTX, id uuid.UUID) (*challenge.Challenge, error) {
	c, err := scanChallenge(q.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrChallengeNotFound
		}
		return nil, apperr.Persistence("load challenge", err)
	}
	return c, nil
}

func (s *ChallengeService) Create(ctx context.Context, callerID uuid.UUID, isAdmin bool, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if !isAdmin {
		return nil, apperr.ErrPermissionDenied
	}

	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return nil, apperr.Validation("title is required")
	case strings.TrimSpace(req.Description) == "":
		return nil, apperr.Validation("description is required")
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return nil, apperr.Validation("start_date and end_date are required")
	case !req.EndDate.After(req.StartDate):
		return nil, apperr.Validation("end_date must be after start_date")
	case !req.Difficulty.Valid():
		return nil, apperr.Validation("difficulty must be easy, medium or hard")
	case strings.TrimSpace(req.AgeGroup) == "":
		return nil, apperr.Validation("age_group is required")
	}

	c, err := scanChallenge(s.db.QueryRow(ctx, `
		INSERT INTO challenges (title, description, start_date, end_date, difficulty, age_group)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+challengeColumns,
		title, strings.TrimSpace(req.Description), req.StartDate, req.EndDate, req.Difficulty, strings.TrimSpace(req.AgeGroup)))
	if err != nil {
		return nil, apperr.Persistence("create challenge", err)
	}

	s.logger.Info("Challenge created", zap.String("challengeID", c.ID.String()), zap.Time("endDate", c.EndDate))
	return c, nil
}

// List groups challenges into active, the next few upcoming and the most
// recent past ones.
func (s *ChallengeService) List(ctx context.Context) (*challenge.Overview, error) {
	now := s.now()
	var (
		ov  challenge.Overview
		err error
	)

	ov.Active, err = s.queryChallenges(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE start_date <= $1 AND end_date >= $1 AND is_active
		ORDER BY end_date`, now)
	if err != nil {
		return nil, err
	}
	ov.Upcoming, err = s.queryChallenges(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE start_date > $1 AND is_active
		ORDER BY start_date
		LIMIT $2`, now, upcomingChallengeLimit)
	if err != nil {
		return nil, err
	}
	ov.Past, err = s.queryChallenges(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE end_date < $1
		ORDER BY end_date DESC
		LIMIT $2`, now, pastChallengeLimit)
	if err != nil {
		return nil, err
	}
	return &ov, nil
}

// Get returns the challenge, its public entries and, for a signed-in
// caller, the caller's stories that are not yet in any challenge.
func (s *ChallengeService) Get(ctx context.Context, callerID, challengeID uuid.UUID) (*challenge.Detail, error) {
	c, err := loadChallenge(ctx, s.db, challengeID)
	if err != nil {
		return nil, err
	}

	detail := &challenge.Detail{Challenge: c, Open: c.AcceptsSubmissions(s.now())}
	detail.Stories, err = queryStories(ctx, s.db, `
		SELECT `+storyColumns+` FROM stories
		WHERE challenge_id = $1 AND is_public
		ORDER BY is_challenge_winner DESC, like_count DESC, submission_date`, challengeID)
	if err != nil {
		return nil, apperr.Persistence("list challenge stories", err)
	}

	if callerID != uuid.Nil {
		detail.EligibleStories, err = queryStories(ctx, s.db, `
			SELECT `+storyColumns+` FROM stories
			WHERE user_id = $1 AND challenge_id IS NULL
			ORDER BY updated_at DESC`, callerID)
		if err != nil {
			return nil, apperr.Persistence("list eligible stories", err)
		}
	}
	return detail, nil
}

// Submit enters a story into a challenge. The story becomes public and the
// challenge participation rule runs against the new entry count. A story
// already entered elsewhere moves to this challenge without changing the count.
func (s *ChallengeService) Submit(ctx context.Context, callerID uuid.UUID, req *challenge.SubmitRequest) (*story.Story, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if req.ChallengeID == uuid.Nil || req.StoryID == uuid.Nil {
		return nil, apperr.Validation("challenge_id and story_id are required")
	}

	var (
		submitted *story.Story
		granted   []*achievement.Achievement
	)
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		c, err := loadChallenge(ctx, tx, req.ChallengeID)
		if err != nil {
			return err
		}
		if err := lockUser(ctx, tx, callerID); err != nil {
			return err
		}
		st, err := loadOwnedStory(ctx, tx, callerID, req.StoryID, true)
		if err != nil {
			return err
		}

		now := s.now()
		if !c.AcceptsSubmissions(now) {
			return apperr.ErrChallengeClosed
		}

		prev, err := countStories(ctx, tx, whereInChallenge, callerID)
		if err != nil {
			return err
		}

		submitted, err = scanStory(tx.QueryRow(ctx, `
			UPDATE stories
			SET challenge_id = $2, is_public = TRUE, submission_date = $3, updated_at = $3
			WHERE id = $1
			RETURNING `+storyColumns, st.ID, c.ID, now))
		if err != nil {
			return apperr.Persistence("submit story", err)
		}

		// already-entered stories do not add to the participation count
		if st.ChallengeID != nil {
			return nil
		}
		granted, err = s.achievements.evaluate(ctx, tx, callerID, rules.ChallengeRule, prev, prev+1)
		return err
	})
	if err != nil {
		challengeSubmissions.WithLabelValues(submissionResult(err)).Inc()
		if errors.Is(err, apperr.ErrPersistence) {
			s.logger.Error("Challenge submission failed", zap.String("storyID", req.StoryID.String()), zap.Error(err))
		}
		return nil, err
	}

	challengeSubmissions.WithLabelValues("accepted").Inc()
	s.logger.Info("Story submitted to challenge",
		zap.String("storyID", req.StoryID.String()),
		zap.String("challengeID", req.ChallengeID.String()),
		zap.String("userID", callerID.String()))
	s.achievements.announce(ctx, callerID, granted)
	return submitted, nil
}

func submissionResult(err error) string {
	switch {
	case errors.Is(err, apperr.ErrChallengeClosed):
		return "closed"
	case errors.Is(err, apperr.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// DeclareWinner marks a challenge entry as a winner.
func (s *ChallengeService) DeclareWinner(ctx context.Context, callerID uuid.UUID, isAdmin bool, storyID uuid.UUID) (*story.Story, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if !isAdmin {
		return nil, apperr.ErrPermissionDenied
	}

	var winner *story.Story
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		st, err := loadStory(ctx, tx, storyID, true)
		if err != nil {
			return err
		}
		if st.ChallengeID == nil {
			return apperr.Validation("story is not entered in a challenge")
		}
		winner, err = scanStory(tx.QueryRow(ctx, `
			UPDATE stories SET is_challenge_winner = TRUE
			WHERE id = $1
			RETURNING `+storyColumns, storyID))
		return apperr.Persistence("declare winner", err)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Challenge winner declared", zap.String("storyID", storyID.String()), zap.String("challengeID", winner.ChallengeID.String()))
	return winner, nil
}
