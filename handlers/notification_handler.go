package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/notification"
	"storyquestAPI/middleware"
)

type NotificationStore interface {
	GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
	RegisterDevice(ctx context.Context, userID uuid.UUID, req notification.RegisterDeviceRequest) error
}

type NotificationHandler struct {
	notifications NotificationStore
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationStore, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.Named("NotificationHandler"),
	}
}

// GET /api/v1/notifications - Get user's notifications
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	response, err := h.notifications.GetNotifications(ctx, middleware.CallerID(ctx),
		queryInt(r, "page", 1), queryInt(r, "page_size", 0), queryBool(r, "unread_only"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, response)
}

// POST /api/v1/notifications/{id}/read - Mark notification as read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	notificationID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.notifications.MarkAsRead(ctx, middleware.CallerID(ctx), notificationID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Notification marked as read"})
}

// POST /api/v1/notifications/devices - Register a push token
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req notification.RegisterDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.notifications.RegisterDevice(ctx, middleware.CallerID(ctx), req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
