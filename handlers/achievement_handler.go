package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/leaderboard"
	"storyquestAPI/middleware"
)

type AchievementStore interface {
	Award(ctx context.Context, callerID uuid.UUID, isAdmin bool, req *achievement.AwardRequest) (*achievement.AwardResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID) (*achievement.AchievementsResponse, error)
	Progress(ctx context.Context, userID uuid.UUID) (*achievement.Progress, error)
	Leaderboard(ctx context.Context) (*leaderboard.Leaderboard, error)
}

type AchievementHandler struct {
	achievements AchievementStore
	logger       *zap.Logger
}

func NewAchievementHandler(achievements AchievementStore, logger *zap.Logger) *AchievementHandler {
	return &AchievementHandler{
		achievements: achievements,
		logger:       logger.Named("AchievementHandler"),
	}
}

func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.achievements.ListForUser(ctx, middleware.CallerID(ctx))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *AchievementHandler) Progress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.achievements.Progress(ctx, middleware.CallerID(ctx))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// Award is idempotent. Awarding a held achievement still answers 200 with
// already_had set.
func (h *AchievementHandler) Award(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req achievement.AwardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	result, err := h.achievements.Award(ctx, middleware.CallerID(ctx), isAdmin(ctx), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *AchievementHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lb, err := h.achievements.Leaderboard(ctx)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, lb)
}
