package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/progress"
	"storyquestAPI/middleware"
)

type ProgressStore interface {
	SaveProgress(ctx context.Context, userID, storyID uuid.UUID, step string, data json.RawMessage) (*progress.Progress, error)
	LoadProgress(ctx context.Context, userID, storyID uuid.UUID) (*progress.Progress, error)
}

type ProgressHandler struct {
	progress ProgressStore
	logger   *zap.Logger
}

func NewProgressHandler(progress ProgressStore, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   logger.Named("ProgressHandler"),
	}
}

func (h *ProgressHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "story_id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req progress.SaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	p, err := h.progress.SaveProgress(ctx, middleware.CallerID(ctx), storyID, req.CurrentStep, req.Data)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress.SaveResponse{Success: true, Timestamp: &p.UpdatedAt})
}

// Load answers 200 with success=false when the story has no checkpoint yet.
func (h *ProgressHandler) Load(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "story_id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	p, err := h.progress.LoadProgress(ctx, middleware.CallerID(ctx), storyID)
	if errors.Is(err, apperr.ErrProgressNotFound) {
		respondWithJSON(w, http.StatusOK, progress.LoadResponse{Error: "No progress found"})
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, progress.LoadResponse{
		Success:     true,
		CurrentStep: p.CurrentStep,
		Data:        json.RawMessage(p.Data),
		Timestamp:   &p.UpdatedAt,
	})
}
