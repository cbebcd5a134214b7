package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/notification"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotificationService struct {
	db         *pgxpool.Pool
	logger     *zap.Logger
	dispatcher *NotificationDispatcher
}

var _ AchievementNotifier = (*NotificationService)(nil)

func NewNotificationService(db *pgxpool.Pool, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		db:     db,
		logger: logger.Named("NotificationService"),
	}
}

// SetDispatcher enables push delivery. Without one, notifications are only
// stored for the in-app list.
func (s *NotificationService) SetDispatcher(d *NotificationDispatcher) {
	s.dispatcher = d
}

const notificationColumns = `id, user_id, type, title, body, data, status, is_read, created_at, sent_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	n := &notification.Notification{}
	var data []byte
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &data, &n.Status, &n.IsRead, &n.CreatedAt, &n.SentAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
	}
	return n, nil
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}

	n, err := scanNotification(s.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, body, data, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		req.UserID, req.Type, req.Title, req.Body, dataJSON, notification.StatusPending))
	if err != nil {
		return nil, apperr.Persistence("create notification", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchNotification(n)
	}
	return n, nil
}

// AchievementUnlocked stores and dispatches the "achievement unlocked"
// notification. Failures are logged; the grant itself already committed.
func (s *NotificationService) AchievementUnlocked(ctx context.Context, userID uuid.UUID, a *achievement.Achievement) {
	_, err := s.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID: userID,
		Type:   notification.NotificationAchievement,
		Title:  "Achievement unlocked!",
		Body:   fmt.Sprintf("You earned %q (+%d points)", a.Name, a.Points),
		Data: map[string]any{
			"achievement_id": a.ID.String(),
			"name":           a.Name,
			"points":         a.Points,
		},
	})
	if err != nil {
		s.logger.Error("Failed to create achievement notification",
			zap.String("userID", userID.String()), zap.String("achievement", a.Name), zap.Error(err))
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	where := `WHERE user_id = $1`
	if unreadOnly {
		where += ` AND NOT is_read`
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		`+where+`
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperr.Persistence("list notifications", err)
	}
	defer rows.Close()

	resp := &notification.NotificationListResponse{
		Notifications: make([]*notification.Notification, 0),
		Page:          page,
		PageSize:      pageSize,
	}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, apperr.Persistence("scan notification", err)
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list notifications", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE user_id = $1`, userID).Scan(&resp.TotalCount, &resp.UnreadCount)
	if err != nil {
		return nil, apperr.Persistence("count notifications", err)
	}
	return resp, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.ErrNotLoggedIn
	}
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return apperr.Persistence("mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotificationMissing
	}
	return nil
}

// RegisterDevice attaches a push token to the user. A token seen before is
// moved to the new owner.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req notification.RegisterDeviceRequest) error {
	if userID == uuid.Nil {
		return apperr.ErrNotLoggedIn
	}
	req.Token = strings.TrimSpace(req.Token)
	if !req.Valid() {
		return apperr.Validation("token and a platform of ios, android or web are required")
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (token, user_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = NOW()`,
		req.Token, userID, req.Platform)
	if err != nil {
		return apperr.Persistence("register device", err)
	}
	s.logger.Debug("Device registered", zap.String("userID", userID.String()), zap.String("platform", req.Platform))
	return nil
}

func (s *NotificationService) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) MarkSent(ctx context.Context, notificationID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET status = $2, sent_at = NOW(), error = '' WHERE id = $1`,
		notificationID, notification.StatusSent)
	return err
}

func (s *NotificationService) MarkFailed(ctx context.Context, notificationID uuid.UUID, reason error) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET status = $2, error = $3 WHERE id = $1`,
		notificationID, notification.StatusFailed, reason.Error())
	return err
}
