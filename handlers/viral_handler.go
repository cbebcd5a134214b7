package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/story"
	"storyquestAPI/middleware"
)

type ViralStore interface {
	Like(ctx context.Context, callerID, storyID uuid.UUID) (int, error)
	RecordView(ctx context.Context, callerID, storyID uuid.UUID) (*story.Story, error)
	Share(ctx context.Context, callerID, storyID uuid.UUID, message string) (*story.Story, error)
	SharedStories(ctx context.Context, limit int) ([]*story.Story, error)
}

type ViralHandler struct {
	viral  ViralStore
	logger *zap.Logger
}

func NewViralHandler(viral ViralStore, logger *zap.Logger) *ViralHandler {
	return &ViralHandler{
		viral:  viral,
		logger: logger.Named("ViralHandler"),
	}
}

// Like answers {success:false} for anonymous callers instead of a redirect.
func (h *ViralHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	likes, err := h.viral.Like(ctx, middleware.CallerID(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, story.LikeResponse{Success: true, Likes: likes})
}

func (h *ViralHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.viral.RecordView(ctx, middleware.CallerID(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (h *ViralHandler) Share(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req story.ShareStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.viral.Share(ctx, middleware.CallerID(ctx), storyID, req.ShareMessage)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (h *ViralHandler) Shared(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stories, err := h.viral.SharedStories(ctx, queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stories)
}
