package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/leaderboard"
	"storyquestAPI/internal/rules"
	"storyquestAPI/internal/seed"
)

const leaderboardSize = 10

// AchievementNotifier is told about every grant after its transaction
// commits.
type AchievementNotifier interface {
	AchievementUnlocked(ctx context.Context, userID uuid.UUID, a *achievement.Achievement)
}

type AchievementService struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	catalog  atomic.Pointer[rules.Catalog]
	notifier AchievementNotifier
	now      func() time.Time
}

func NewAchievementService(db *pgxpool.Pool, logger *zap.Logger) *AchievementService {
	s := &AchievementService{
		db:     db,
		logger: logger.Named("AchievementService"),
		now:    time.Now,
	}
	s.catalog.Store(rules.NewCatalog(nil))
	return s
}

// SetNotifier wires the grant listener. Call before serving requests.
func (s *AchievementService) SetNotifier(n AchievementNotifier) {
	s.notifier = n
}

func (s *AchievementService) Catalog() *rules.Catalog {
	return s.catalog.Load()
}

const achievementColumns = `id, name, description, icon, points, created_at`

func scanAchievement(row pgx.Row) (*achievement.Achievement, error) {
	a := &achievement.Achievement{}
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Points, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// SyncCatalog upserts the seed entries by name and reloads the in-memory
// catalog from the table.
func (s *AchievementService) SyncCatalog(ctx context.Context, entries []seed.Achievement) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, e := range entries {
			_, err := tx.Exec(ctx, `
				INSERT INTO achievements (name, description, icon, points)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT ON CONSTRAINT achievements_name_key DO UPDATE
				SET description = EXCLUDED.description,
					icon        = EXCLUDED.icon,
					points      = EXCLUDED.points`,
				e.Name, e.Description, e.Icon, e.Points)
			if err != nil {
				return fmt.Errorf("failed to upsert achievement %q: %w", e.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.ReloadCatalog(ctx)
}

func (s *AchievementService) ReloadCatalog(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `SELECT `+achievementColumns+` FROM achievements`)
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	defer rows.Close()

	var list []*achievement.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return fmt.Errorf("failed to scan achievement: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}

	catalog := rules.NewCatalog(list)
	s.catalog.Store(catalog)
	s.logger.Info("Achievement catalog loaded", zap.Int("count", catalog.Len()))
	return nil
}

// grant inserts the pair and reports whether it was new. The primary key on
// (user_id, achievement_id) makes repeats a no-op.
func (s *AchievementService) grant(ctx context.Context, q database.DBTX, userID uuid.UUID, a *achievement.Achievement) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`, userID, a.ID, s.now())
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return false, apperr.ErrUserNotFound
		}
		return false, apperr.Persistence("grant achievement", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *AchievementService) heldBy(ctx context.Context, q database.DBTX, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := q.Query(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, apperr.Persistence("load held achievements", err)
	}
	defer rows.Close()

	held := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Persistence("scan held achievement", err)
		}
		held[id] = true
	}
	return held, apperr.Persistence("load held achievements", rows.Err())
}

// evaluate grants whatever rule earns for a move of its metric from prev to
// next. It runs inside the caller's transaction and returns only the
// achievements that are new for the user.
func (s *AchievementService) evaluate(ctx context.Context, q database.DBTX, userID uuid.UUID, rule rules.Rule, prev, next int) ([]*achievement.Achievement, error) {
	if len(rule.Evaluate(prev, next)) == 0 {
		return nil, nil
	}
	held, err := s.heldBy(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	pending, missing := rules.Pending(s.Catalog(), held, rule, prev, next)
	for _, name := range missing {
		s.logger.Warn("Attempted to award non-existent achievement", zap.String("name", name), zap.String("metric", string(rule.Metric)))
	}

	var granted []*achievement.Achievement
	for _, a := range pending {
		isNew, err := s.grant(ctx, q, userID, a)
		if err != nil {
			return nil, err
		}
		if isNew {
			granted = append(granted, a)
		}
	}
	return granted, nil
}

// announce runs after commit.
func (s *AchievementService) announce(ctx context.Context, userID uuid.UUID, granted []*achievement.Achievement) {
	for _, a := range granted {
		achievementsGranted.WithLabelValues(a.Name).Inc()
		s.logger.Info("Achievement awarded", zap.String("userID", userID.String()), zap.String("name", a.Name))
		if s.notifier != nil {
			s.notifier.AchievementUnlocked(ctx, userID, a)
		}
	}
}

// Grant gives the named achievement to the user. Unknown names are logged
// and ignored. The result reports whether the grant was new.
func (s *AchievementService) Grant(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	a, ok := s.Catalog().Lookup(name)
	if !ok {
		s.logger.Warn("Attempted to award non-existent achievement", zap.String("name", name))
		return false, nil
	}

	isNew, err := s.grant(ctx, s.db, userID, a)
	if err != nil {
		return false, err
	}
	if isNew {
		s.announce(ctx, userID, []*achievement.Achievement{a})
	}
	return isNew, nil
}

// Award grants an achievement by id. Callers may award themselves; admins
// may award anyone.
func (s *AchievementService) Award(ctx context.Context, callerID uuid.UUID, isAdmin bool, req *achievement.AwardRequest) (*achievement.AwardResult, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if req.UserID == uuid.Nil || req.AchievementID == uuid.Nil {
		return nil, apperr.Validation("user_id and achievement_id are required")
	}
	if req.UserID != callerID && !isAdmin {
		return nil, apperr.ErrPermissionDenied
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, req.UserID).Scan(&exists); err != nil {
		return nil, apperr.Persistence("check user", err)
	}
	if !exists {
		return nil, apperr.ErrUserNotFound
	}

	a, err := scanAchievement(s.db.QueryRow(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id = $1`, req.AchievementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrAchievementNotFound
		}
		return nil, apperr.Persistence("load achievement", err)
	}

	isNew, err := s.grant(ctx, s.db, req.UserID, a)
	if err != nil {
		return nil, err
	}

	result := &achievement.AwardResult{Success: true, Achievement: a, AlreadyHad: !isNew}
	if isNew {
		result.Message = "Achievement awarded successfully!"
		s.announce(ctx, req.UserID, []*achievement.Achievement{a})
	} else {
		result.Message = "User already has this achievement"
	}
	return result, nil
}

// ListForUser returns the whole catalog with the user's unlock state.
func (s *AchievementService) ListForUser(ctx context.Context, userID uuid.UUID) (*achievement.AchievementsResponse, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.name, a.description, a.icon, a.points, a.created_at, ua.unlocked_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = $1
		ORDER BY a.points, a.name`, userID)
	if err != nil {
		return nil, apperr.Persistence("list achievements", err)
	}
	defer rows.Close()

	resp := &achievement.AchievementsResponse{Achievements: make([]*achievement.AchievementWithStatus, 0)}
	for rows.Next() {
		a := &achievement.AchievementWithStatus{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Points, &a.CreatedAt, &a.UnlockedAt); err != nil {
			return nil, apperr.Persistence("scan achievement", err)
		}
		a.Unlocked = a.UnlockedAt != nil
		if a.Unlocked {
			resp.Unlocked++
			resp.Points += a.Points
		}
		resp.Achievements = append(resp.Achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list achievements", err)
	}
	resp.Total = len(resp.Achievements)
	return resp, nil
}

// Progress returns the counters the achievement rules look at.
func (s *AchievementService) Progress(ctx context.Context, userID uuid.UUID) (*achievement.Progress, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	p := &achievement.Progress{}
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_complete),
			COUNT(*) FILTER (WHERE is_shared),
			COUNT(*) FILTER (WHERE challenge_id IS NOT NULL),
			COUNT(*) FILTER (WHERE is_challenge_winner),
			COALESCE(SUM(like_count), 0),
			COALESCE(SUM(view_count), 0),
			(SELECT COALESCE(SUM(a.points), 0)
			   FROM user_achievements ua JOIN achievements a ON a.id = ua.achievement_id
			  WHERE ua.user_id = $1)
		FROM stories
		WHERE user_id = $1`, userID).Scan(
		&p.TotalStories, &p.CompletedStories, &p.SharedStories, &p.ChallengeEntries,
		&p.ChallengeWins, &p.TotalLikes, &p.TotalViews, &p.AchievementPoints,
	)
	if err != nil {
		return nil, apperr.Persistence("load achievement progress", err)
	}
	return p, nil
}

// Leaderboard ranks users by achievement points, story count and challenge
// wins. Users with nothing to count are left out of each board.
func (s *AchievementService) Leaderboard(ctx context.Context) (*leaderboard.Leaderboard, error) {
	var (
		lb  leaderboard.Leaderboard
		err error
	)
	lb.TopPoints, err = s.board(ctx, `
		SELECT u.id, u.username, SUM(a.points)::int AS value
		FROM users u
		JOIN user_achievements ua ON ua.user_id = u.id
		JOIN achievements a ON a.id = ua.achievement_id
		GROUP BY u.id, u.username`)
	if err != nil {
		return nil, err
	}
	lb.MostStories, err = s.board(ctx, `
		SELECT u.id, u.username, COUNT(st.id)::int AS value
		FROM users u
		JOIN stories st ON st.user_id = u.id
		GROUP BY u.id, u.username`)
	if err != nil {
		return nil, err
	}
	lb.ChallengeWinners, err = s.board(ctx, `
		SELECT u.id, u.username, COUNT(st.id)::int AS value
		FROM users u
		JOIN stories st ON st.user_id = u.id AND st.is_challenge_winner
		GROUP BY u.id, u.username`)
	if err != nil {
		return nil, err
	}
	return &lb, nil
}

func (s *AchievementService) board(ctx context.Context, inner string) ([]*leaderboard.LeaderboardEntry, error) {
	query := `
		SELECT id, username, value, RANK() OVER (ORDER BY value DESC)::int AS rank
		FROM (` + inner + `) t
		WHERE value > 0
		ORDER BY value DESC, username
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, leaderboardSize)
	if err != nil {
		return nil, apperr.Persistence("load leaderboard", err)
	}
	defer rows.Close()

	entries := make([]*leaderboard.LeaderboardEntry, 0)
	for rows.Next() {
		e := &leaderboard.LeaderboardEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Value, &e.Rank); err != nil {
			return nil, apperr.Persistence("scan leaderboard entry", err)
		}
		entries = append(entries, e)
	}
	return entries, apperr.Persistence("load leaderboard", rows.Err())
}
