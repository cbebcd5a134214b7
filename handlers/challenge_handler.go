package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/challenge"
	"storyquestAPI/internal/story"
	"storyquestAPI/middleware"
)

type ChallengeStore interface {
	Create(ctx context.Context, callerID uuid.UUID, isAdmin bool, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error)
	List(ctx context.Context) (*challenge.Overview, error)
	Get(ctx context.Context, callerID, challengeID uuid.UUID) (*challenge.Detail, error)
	Submit(ctx context.Context, callerID uuid.UUID, req *challenge.SubmitRequest) (*story.Story, error)
	DeclareWinner(ctx context.Context, callerID uuid.UUID, isAdmin bool, storyID uuid.UUID) (*story.Story, error)
}

type ChallengeHandler struct {
	challenges ChallengeStore
	logger     *zap.Logger
}

func NewChallengeHandler(challenges ChallengeStore, logger *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		challenges: challenges,
		logger:     logger.Named("ChallengeHandler"),
	}
}

func isAdmin(ctx context.Context) bool {
	s, ok := middleware.CurrentUser(ctx)
	return ok && s.IsAdmin
}

func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	overview, err := h.challenges.List(ctx)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, overview)
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	challengeID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	detail, err := h.challenges.Get(ctx, middleware.CallerID(ctx), challengeID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req challenge.CreateChallengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	c, err := h.challenges.Create(ctx, middleware.CallerID(ctx), isAdmin(ctx), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *ChallengeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req challenge.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.challenges.Submit(ctx, middleware.CallerID(ctx), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, challenge.SubmitResponse{
		Success: true,
		Message: "Your story has been submitted to the challenge!",
		Story:   st,
	})
}

func (h *ChallengeHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	st, err := h.challenges.DeclareWinner(ctx, middleware.CallerID(ctx), isAdmin(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}
