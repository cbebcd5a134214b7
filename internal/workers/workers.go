package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/database"
	"storyquestAPI/internal/notification"
)

// NotificationCreator is the one method the worker needs from the
// notification service.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// ChallengeCloser deactivates challenges whose window has ended and tells
// every participant once.
type ChallengeCloser struct {
	db       database.DBTX
	notifier NotificationCreator
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewChallengeCloser(db database.DBTX, notifier NotificationCreator, interval time.Duration, logger *zap.Logger) *ChallengeCloser {
	return &ChallengeCloser{
		db:       db,
		notifier: notifier,
		logger:   logger.Named("ChallengeCloser"),
		interval: interval,
		now:      time.Now,
	}
}

// Start runs CloseExpired on every tick until ctx is done.
func (c *ChallengeCloser) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := c.CloseExpired(runCtx); err != nil {
				c.logger.Error("Closing expired challenges failed", zap.Error(err))
			}
			cancel()
		}
	}
}

type participant struct {
	challengeID uuid.UUID
	title       string
	userID      uuid.UUID
}

// CloseExpired flips is_active off for ended challenges and returns how many
// were closed. Submissions are judged by end_date alone, so this only
// affects listings and notifications.
func (c *ChallengeCloser) CloseExpired(ctx context.Context) (int, error) {
	rows, err := c.db.Query(ctx, `
		WITH closed AS (
			UPDATE challenges SET is_active = FALSE
			WHERE is_active AND end_date < $1
			RETURNING id, title
		)
		SELECT closed.id, closed.title, s.user_id
		FROM closed
		LEFT JOIN (SELECT DISTINCT challenge_id, user_id FROM stories) s ON s.challenge_id = closed.id
		ORDER BY closed.id`, c.now())
	if err != nil {
		return 0, fmt.Errorf("failed to close challenges: %w", err)
	}
	defer rows.Close()

	closed := make(map[uuid.UUID]bool)
	var participants []participant
	for rows.Next() {
		var (
			p      participant
			userID *uuid.UUID
		)
		if err := rows.Scan(&p.challengeID, &p.title, &userID); err != nil {
			return 0, fmt.Errorf("failed to scan closed challenge: %w", err)
		}
		closed[p.challengeID] = true
		if userID != nil {
			p.userID = *userID
			participants = append(participants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to close challenges: %w", err)
	}

	for _, p := range participants {
		_, err := c.notifier.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID: p.userID,
			Type:   notification.NotificationChallenge,
			Title:  "Challenge ended",
			Body:   fmt.Sprintf("The %q challenge has ended. Thanks for taking part!", p.title),
			Data:   map[string]any{"challenge_id": p.challengeID.String()},
		})
		if err != nil {
			c.logger.Warn("Failed to notify participant",
				zap.String("challengeID", p.challengeID.String()), zap.String("userID", p.userID.String()), zap.Error(err))
		}
	}

	if len(closed) > 0 {
		c.logger.Info("Closed expired challenges", zap.Int("count", len(closed)), zap.Int("notified", len(participants)))
	}
	return len(closed), nil
}
