package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/challenge"
	"storyquestAPI/internal/seed"
	"storyquestAPI/internal/story"
	"storyquestAPI/internal/testutil"
	"storyquestAPI/internal/user"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) AchievementUnlocked(_ context.Context, userID uuid.UUID, a *achievement.Achievement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, userID.String()+":"+a.Name)
}

func (r *recordingNotifier) count(userID uuid.UUID, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == userID.String()+":"+name {
			n++
		}
	}
	return n
}

type fixture struct {
	ctx           context.Context
	pool          *pgxpool.Pool
	users         *UserService
	stories       *StoryService
	assets        *AssetService
	progress      *ProgressService
	challenges    *ChallengeService
	achievements  *AchievementService
	viral         *ViralService
	notifications *NotificationService
	notifier      *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool := testutil.NewPostgres(t)
	log := zap.NewNop()

	f := &fixture{
		ctx:           context.Background(),
		pool:          pool,
		users:         NewUserService(pool, log),
		stories:       NewStoryService(pool, log),
		assets:        NewAssetService(pool, log),
		progress:      NewProgressService(pool, log),
		achievements:  NewAchievementService(pool, log),
		notifications: NewNotificationService(pool, log),
		notifier:      &recordingNotifier{},
	}
	f.users.hashCost = bcrypt.MinCost
	f.challenges = NewChallengeService(pool, f.achievements, log)
	f.viral = NewViralService(pool, f.achievements, log)
	f.achievements.SetNotifier(f.notifier)

	entries, err := seed.Load()
	require.NoError(t, err)
	require.NoError(t, f.achievements.SyncCatalog(f.ctx, entries))
	return f
}

func (f *fixture) register(t *testing.T, username string) *user.User {
	t.Helper()
	u, err := f.users.Register(f.ctx, &user.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) makeAdmin(t *testing.T, userID uuid.UUID) {
	t.Helper()
	_, err := f.pool.Exec(f.ctx, `UPDATE users SET is_admin = TRUE WHERE id = $1`, userID)
	require.NoError(t, err)
}

func (f *fixture) story(t *testing.T, owner *user.User, title string) *story.Story {
	t.Helper()
	st, err := f.stories.Create(f.ctx, owner.ID, &story.CreateStoryRequest{Title: title, AgeGroup: "7-9"})
	require.NoError(t, err)
	return st
}

func (f *fixture) manyStories(t *testing.T, owner *user.User, n int) []*story.Story {
	t.Helper()
	out := make([]*story.Story, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.story(t, owner, fmt.Sprintf("Story %d", i+1)))
	}
	return out
}

// challengeWindow inserts a challenge directly so windows in the past are
// possible.
func (f *fixture) challengeWindow(t *testing.T, start, end time.Time) *challenge.Challenge {
	t.Helper()
	c, err := scanChallenge(f.pool.QueryRow(f.ctx, `
		INSERT INTO challenges (title, description, start_date, end_date, difficulty, age_group)
		VALUES ('Dragon Week', 'Write about a friendly dragon', $1, $2, 'easy', '7-9')
		RETURNING `+challengeColumns, start, end))
	require.NoError(t, err)
	return c
}

func (f *fixture) openChallenge(t *testing.T) *challenge.Challenge {
	now := time.Now()
	return f.challengeWindow(t, now.Add(-time.Hour), now.Add(24*time.Hour))
}

func (f *fixture) heldNames(t *testing.T, userID uuid.UUID) []string {
	t.Helper()
	rows, err := f.pool.Query(f.ctx, `
		SELECT a.name FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1`, userID)
	require.NoError(t, err)
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	sort.Strings(names)
	return names
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.pool.QueryRow(f.ctx, query, args...).Scan(&n))
	return n
}
