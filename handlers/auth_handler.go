package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/session"
	"storyquestAPI/internal/user"
	"storyquestAPI/middleware"
)

type UserStore interface {
	Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error)
	Authenticate(ctx context.Context, req *user.LoginRequest) (*user.User, error)
	Profile(ctx context.Context, id uuid.UUID) (*user.Profile, error)
}

type AuthHandler struct {
	users        UserStore
	sessions     session.Store
	sessionTTL   time.Duration
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(users UserStore, sessions session.Store, sessionTTL time.Duration, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:        users,
		sessions:     sessions,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
		logger:       logger.Named("AuthHandler"),
	}
}

type authResponse struct {
	Success bool       `json:"success"`
	User    *user.User `json:"user"`
}

// Register creates the account and logs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	u, err := h.users.Register(ctx, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !h.startSession(ctx, w, u) {
		return
	}
	respondWithJSON(w, http.StatusCreated, authResponse{Success: true, User: u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	u, err := h.users.Authenticate(ctx, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !h.startSession(ctx, w, u) {
		return
	}
	respondWithJSON(w, http.StatusOK, authResponse{Success: true, User: u})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if token := middleware.SessionToken(ctx); token != "" {
		if err := h.sessions.Delete(ctx, token); err != nil {
			h.logger.Warn("Failed to delete session", zap.Error(err))
		}
	}
	middleware.ClearSessionCookie(w, h.secureCookie)
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "You have been logged out."})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	profile, err := h.users.Profile(ctx, middleware.CallerID(ctx))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) startSession(ctx context.Context, w http.ResponseWriter, u *user.User) bool {
	token, err := h.sessions.Create(ctx, &session.Session{
		UserID:    u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		CreatedAt: time.Now(),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return false
	}
	middleware.SetSessionCookie(w, token, h.sessionTTL, h.secureCookie)
	return true
}
