package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyquestAPI/internal/asset"
	"storyquestAPI/middleware"
)

type AssetStore interface {
	CreateCharacter(ctx context.Context, callerID, storyID uuid.UUID, req *asset.CharacterRequest) (*asset.Character, error)
	UpdateCharacter(ctx context.Context, callerID, characterID uuid.UUID, req *asset.CharacterRequest) (*asset.Character, error)
	StoryCharacters(ctx context.Context, callerID, storyID uuid.UUID) ([]*asset.Character, error)
	UserCharacters(ctx context.Context, userID uuid.UUID) ([]*asset.Character, error)
	CreateSetting(ctx context.Context, callerID, storyID uuid.UUID, req *asset.SettingRequest) (*asset.Setting, error)
	UpdateSetting(ctx context.Context, callerID, settingID uuid.UUID, req *asset.SettingRequest) (*asset.Setting, error)
	StorySettings(ctx context.Context, callerID, storyID uuid.UUID) ([]*asset.Setting, error)
	UserSettings(ctx context.Context, userID uuid.UUID) ([]*asset.Setting, error)
}

// AssetHandler serves characters and settings.
type AssetHandler struct {
	assets AssetStore
	logger *zap.Logger
}

func NewAssetHandler(assets AssetStore, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{
		assets: assets,
		logger: logger.Named("AssetHandler"),
	}
}

func (h *AssetHandler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req asset.CharacterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	c, err := h.assets.CreateCharacter(ctx, middleware.CallerID(ctx), storyID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *AssetHandler) UpdateCharacter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	characterID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req asset.CharacterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	c, err := h.assets.UpdateCharacter(ctx, middleware.CallerID(ctx), characterID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *AssetHandler) StoryCharacters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	characters, err := h.assets.StoryCharacters(ctx, middleware.CallerID(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, characters)
}

func (h *AssetHandler) MyCharacters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	characters, err := h.assets.UserCharacters(ctx, middleware.CallerID(ctx))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, characters)
}

func (h *AssetHandler) CreateSetting(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req asset.SettingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	s, err := h.assets.CreateSetting(ctx, middleware.CallerID(ctx), storyID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, s)
}

func (h *AssetHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	settingID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	var req asset.SettingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	s, err := h.assets.UpdateSetting(ctx, middleware.CallerID(ctx), settingID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *AssetHandler) StorySettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	storyID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	settings, err := h.assets.StorySettings(ctx, middleware.CallerID(ctx), storyID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

func (h *AssetHandler) MySettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	settings, err := h.assets.UserSettings(ctx, middleware.CallerID(ctx))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}
