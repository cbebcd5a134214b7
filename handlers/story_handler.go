package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/story"
	"storyquestAPI/middleware"
)

type StoryStore interface {
	Create(ctx context.Context, ownerID uuid.UUID, req *story.CreateStoryRequest) (*story.Story, error)
	Get(ctx context.Context, callerID, storyID uuid.UUID) (*story.Story, error)
	Update(ctx context.Context, callerID, storyID uuid.UUID, req *story.UpdateStoryRequest) (*story.Story, error)
	ReplaceElements(ctx context.Context, callerID, storyID uuid.UUID, req *story.ReplaceElementsRequest) (*story.Story, error)
	Autosave(ctx context.Context, callerID, storyID uuid.UUID, content json.RawMessage) (time.Time, error)
	ToggleVisibility(ctx context.Context, callerID, storyID uuid.UUID) (bool, error)
	Delete(ctx context.Context, callerID, storyID uuid.UUID) error
	UserStories(ctx context.Context, userID uuid.UUID, includeDrafts bool) ([]*story.Story, error)
	PublicStories(ctx context.Context, limit int) ([]*story.Story, error)
	FeaturedStories(ctx context.Context, limit int) ([]*story.Story, error)
}

type StoryHandler struct {
	stories       StoryStore
	featuredLimit int
	logger        *zap.Logger
}

func NewStoryHandler(stories StoryStore, featuredLimit int, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		stories:       stories,
		featuredLimit: featuredLimit,
		logger:        logger.Named("StoryHandler"),
	}
}

func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req story.CreateStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.stories.Create(ctx, middleware.CallerID(ctx), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, st)
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.stories.Get(ctx, middleware.CallerID(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req story.UpdateStoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.stories.Update(ctx, middleware.CallerID(ctx), storyID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

// ReplaceElements stores the editor's full element list.
func (h *StoryHandler) ReplaceElements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req story.ReplaceElementsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.stories.ReplaceElements(ctx, middleware.CallerID(ctx), storyID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (h *StoryHandler) Autosave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req story.AutosaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	ts, err := h.stories.Autosave(ctx, middleware.CallerID(ctx), storyID, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, story.AutosaveResponse{Success: true, Message: "Story autosaved", Timestamp: ts})
}

func (h *StoryHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	public, err := h.stories.ToggleVisibility(ctx, middleware.CallerID(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, story.VisibilityResponse{Success: true, IsPublic: public})
}

func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.stories.Delete(ctx, middleware.CallerID(ctx), storyID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoryHandler) MyStories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stories, err := h.stories.UserStories(ctx, middleware.CallerID(ctx), queryBool(r, "include_drafts"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) Public(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stories, err := h.stories.PublicStories(ctx, queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stories, err := h.stories.FeaturedStories(ctx, queryInt(r, "limit", h.featuredLimit))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stories)
}
