package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"storyquestAPI/middleware"
)

const uuidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

// Set groups the API handlers for route registration.
type Set struct {
	Auth          *AuthHandler
	Stories       *StoryHandler
	Assets        *AssetHandler
	Progress      *ProgressHandler
	Challenges    *ChallengeHandler
	Achievements  *AchievementHandler
	Viral         *ViralHandler
	Notifications *NotificationHandler
}

// Register mounts the API on api. The session middleware must already be
// installed on a parent router.
func Register(api *mux.Router, h Set) {
	id := "/{id:" + uuidPattern + "}"
	storyID := "/{story_id:" + uuidPattern + "}"

	// -------------------------------------------------------------------------
	// PUBLIC ROUTES (SESSION OPTIONAL)
	// -------------------------------------------------------------------------
	api.HandleFunc("/auth/register", h.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Auth.Logout).Methods(http.MethodPost)

	api.HandleFunc("/stories/public", h.Stories.Public).Methods(http.MethodGet)
	api.HandleFunc("/stories/featured", h.Stories.Featured).Methods(http.MethodGet)
	api.HandleFunc("/stories/shared", h.Viral.Shared).Methods(http.MethodGet)
	api.HandleFunc("/stories"+id, h.Stories.Get).Methods(http.MethodGet)
	api.HandleFunc("/stories"+id+"/view", h.Viral.View).Methods(http.MethodPost)
	api.HandleFunc("/stories"+id+"/characters", h.Assets.StoryCharacters).Methods(http.MethodGet)
	api.HandleFunc("/stories"+id+"/settings", h.Assets.StorySettings).Methods(http.MethodGet)
	api.HandleFunc("/stories"+id+"/like", h.Viral.Like).Methods(http.MethodPost)

	api.HandleFunc("/challenges", h.Challenges.List).Methods(http.MethodGet)
	api.HandleFunc("/challenges"+id, h.Challenges.Get).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", h.Achievements.Leaderboard).Methods(http.MethodGet)

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE SESSION)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.RequireSession)

	protected.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)
	protected.HandleFunc("/me/stories", h.Stories.MyStories).Methods(http.MethodGet)
	protected.HandleFunc("/me/characters", h.Assets.MyCharacters).Methods(http.MethodGet)
	protected.HandleFunc("/me/settings", h.Assets.MySettings).Methods(http.MethodGet)

	protected.HandleFunc("/stories", h.Stories.Create).Methods(http.MethodPost)
	protected.HandleFunc("/stories"+id, h.Stories.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/stories"+id, h.Stories.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/stories"+id+"/elements", h.Stories.ReplaceElements).Methods(http.MethodPut)
	protected.HandleFunc("/stories"+id+"/autosave", h.Stories.Autosave).Methods(http.MethodPost)
	protected.HandleFunc("/stories"+id+"/visibility", h.Stories.ToggleVisibility).Methods(http.MethodPost)
	protected.HandleFunc("/stories"+id+"/share", h.Viral.Share).Methods(http.MethodPost)
	protected.HandleFunc("/stories"+id+"/winner", h.Challenges.DeclareWinner).Methods(http.MethodPost)
	protected.HandleFunc("/stories"+id+"/characters", h.Assets.CreateCharacter).Methods(http.MethodPost)
	protected.HandleFunc("/stories"+id+"/settings", h.Assets.CreateSetting).Methods(http.MethodPost)
	protected.HandleFunc("/characters"+id, h.Assets.UpdateCharacter).Methods(http.MethodPatch)
	protected.HandleFunc("/settings"+id, h.Assets.UpdateSetting).Methods(http.MethodPatch)

	protected.HandleFunc("/progress"+storyID, h.Progress.Save).Methods(http.MethodPost)
	protected.HandleFunc("/progress"+storyID, h.Progress.Load).Methods(http.MethodGet)

	protected.HandleFunc("/challenges", h.Challenges.Create).Methods(http.MethodPost)
	protected.HandleFunc("/challenges/submit", h.Challenges.Submit).Methods(http.MethodPost)

	protected.HandleFunc("/achievements", h.Achievements.List).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/progress", h.Achievements.Progress).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/award", h.Achievements.Award).Methods(http.MethodPost)

	protected.HandleFunc("/notifications", h.Notifications.GetNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications"+id+"/read", h.Notifications.MarkAsRead).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/devices", h.Notifications.RegisterDevice).Methods(http.MethodPost)
}
