package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/challenge"
	"storyquestAPI/internal/progress"
	"storyquestAPI/internal/session"
	"storyquestAPI/internal/story"
	"storyquestAPI/internal/user"
	"storyquestAPI/middleware"
)

type harness struct {
	router        http.Handler
	sessions      *session.MemoryStore
	users         *mockUserStore
	stories       *mockStoryStore
	assets        *mockAssetStore
	progress      *mockProgressStore
	challenges    *mockChallengeStore
	achievements  *mockAchievementStore
	viral         *mockViralStore
	notifications *mockNotificationStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	h := &harness{
		sessions:      session.NewMemoryStore(),
		users:         &mockUserStore{},
		stories:       &mockStoryStore{},
		assets:        &mockAssetStore{},
		progress:      &mockProgressStore{},
		challenges:    &mockChallengeStore{},
		achievements:  &mockAchievementStore{},
		viral:         &mockViralStore{},
		notifications: &mockNotificationStore{},
	}

	r := mux.NewRouter()
	r.Use(middleware.SessionAuth(h.sessions, log))
	Register(r.PathPrefix("/api/v1").Subrouter(), Set{
		Auth:          NewAuthHandler(h.users, h.sessions, time.Hour, false, log),
		Stories:       NewStoryHandler(h.stories, 6, log),
		Assets:        NewAssetHandler(h.assets, log),
		Progress:      NewProgressHandler(h.progress, log),
		Challenges:    NewChallengeHandler(h.challenges, log),
		Achievements:  NewAchievementHandler(h.achievements, log),
		Viral:         NewViralHandler(h.viral, log),
		Notifications: NewNotificationHandler(h.notifications, log),
	})
	h.router = r

	t.Cleanup(func() {
		for _, m := range []interface{ AssertExpectations(mock.TestingT) bool }{
			h.users, h.stories, h.assets, h.progress, h.challenges, h.achievements, h.viral, h.notifications,
		} {
			m.AssertExpectations(t)
		}
	})
	return h
}

func (h *harness) login(t *testing.T, isAdmin bool) (uuid.UUID, *http.Cookie) {
	t.Helper()
	id := uuid.New()
	token, err := h.sessions.Create(context.Background(), &session.Session{UserID: id, Username: "pip", IsAdmin: isAdmin})
	require.NoError(t, err)
	return id, &http.Cookie{Name: session.CookieName, Value: token}
}

func (h *harness) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err     error
		code    int
		message string
	}{
		{apperr.ErrNotLoggedIn, http.StatusUnauthorized, "please log in to continue"},
		{apperr.ErrInvalidCredentials, http.StatusUnauthorized, "invalid username or password"},
		{apperr.ErrPermissionDenied, http.StatusForbidden, "you don't have permission to do that"},
		{apperr.ErrStoryNotFound, http.StatusNotFound, "story resource not found"},
		{apperr.Validation("title is required"), http.StatusBadRequest, "title is required"},
		{apperr.ErrUsernameTaken, http.StatusConflict, "username already exists"},
		{fmt.Errorf("wrapped: %w", apperr.ErrEmailTaken), http.StatusConflict, "wrapped: email already registered"},
		{apperr.Persistence("insert", errors.New("disk on fire")), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, zap.NewNop(), tc.err)
			assert.Equal(t, tc.code, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.message, body["error"])
		})
	}
}

func TestChallengeClosedCarriesWarning(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, zap.NewNop(), apperr.ErrChallengeClosed)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"this challenge has ended","warning":true}`, rec.Body.String())
}

func TestRegisterStartsSession(t *testing.T) {
	h := newHarness(t)
	u := &user.User{ID: uuid.New(), Username: "pip", Email: "pip@example.com", AgeGroup: "7-9"}
	h.users.On("Register", mock.Anything, &user.RegisterRequest{Username: "pip", Email: "pip@example.com", Password: "secret1"}).
		Return(u, nil)

	rec := h.do(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": "pip", "email": "pip@example.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	s, err := h.sessions.Get(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.users.On("Authenticate", mock.Anything, mock.Anything).Return(nil, apperr.ErrInvalidCredentials)

	rec := h.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "pip", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogoutDropsSession(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.login(t, false)

	rec := h.do(http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := h.sessions.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newHarness(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodPost, "/api/v1/stories"},
		{http.MethodPatch, "/api/v1/stories/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/progress/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/challenges/submit"},
		{http.MethodGet, "/api/v1/notifications"},
	} {
		rec := h.do(route.method, route.path, map[string]string{}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestStoryRoutesRejectMalformedIDs(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/v1/stories/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStoryPassesCaller(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	storyID := uuid.New()
	h.stories.On("Get", mock.Anything, callerID, storyID).Return(&story.Story{ID: storyID, Title: "Forest"}, nil)
	h.stories.On("Get", mock.Anything, uuid.Nil, storyID).Return(nil, apperr.ErrPermissionDenied)

	rec := h.do(http.MethodGet, "/api/v1/stories/"+storyID.String(), nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Forest", decodeBody(t, rec)["title"])

	rec = h.do(http.MethodGet, "/api/v1/stories/"+storyID.String(), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStoryOnSamePathAsGet(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	storyID := uuid.New()
	h.stories.On("Update", mock.Anything, callerID, storyID, mock.MatchedBy(func(req *story.UpdateStoryRequest) bool {
		return req.Title != nil && *req.Title == "Renamed" && req.Description == nil
	})).Return(&story.Story{ID: storyID, Title: "Renamed"}, nil)

	rec := h.do(http.MethodPatch, "/api/v1/stories/"+storyID.String(), map[string]string{"title": "Renamed"}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestFeaturedUsesConfiguredLimit(t *testing.T) {
	h := newHarness(t)
	h.stories.On("FeaturedStories", mock.Anything, 6).Return([]*story.Story{}, nil)
	h.stories.On("PublicStories", mock.Anything, 3).Return([]*story.Story{}, nil)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/stories/featured", nil, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/stories/public?limit=3", nil, nil).Code)
}

func TestSaveProgress(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	storyID := uuid.New()
	saved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.progress.On("SaveProgress", mock.Anything, callerID, storyID, "character_creation", json.RawMessage(`{"name":"Hero"}`)).
		Return(&progress.Progress{CurrentStep: "character_creation", UpdatedAt: saved}, nil)

	rec := h.do(http.MethodPost, "/api/v1/progress/"+storyID.String(),
		map[string]any{"current_step": "character_creation", "data": map[string]string{"name": "Hero"}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"timestamp":"2026-03-01T12:00:00Z"}`, rec.Body.String())
}

func TestLoadProgress(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	saved, missing := uuid.New(), uuid.New()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.progress.On("LoadProgress", mock.Anything, callerID, saved).
		Return(&progress.Progress{CurrentStep: "character_creation", Data: `{"name":"Hero"}`, UpdatedAt: ts}, nil)
	h.progress.On("LoadProgress", mock.Anything, callerID, missing).Return(nil, apperr.ErrProgressNotFound)

	rec := h.do(http.MethodGet, "/api/v1/progress/"+saved.String(), nil, cookie)
	assert.JSONEq(t, `{"success":true,"current_step":"character_creation","data":{"name":"Hero"},"timestamp":"2026-03-01T12:00:00Z"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/progress/"+missing.String(), nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"No progress found"}`, rec.Body.String())
}

func TestSubmitToChallenge(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	req := &challenge.SubmitRequest{ChallengeID: uuid.New(), StoryID: uuid.New()}
	closed := &challenge.SubmitRequest{ChallengeID: uuid.New(), StoryID: req.StoryID}
	h.challenges.On("Submit", mock.Anything, callerID, req).Return(&story.Story{ID: req.StoryID, IsPublic: true}, nil)
	h.challenges.On("Submit", mock.Anything, callerID, closed).Return(nil, apperr.ErrChallengeClosed)

	rec := h.do(http.MethodPost, "/api/v1/challenges/submit", req, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Your story has been submitted to the challenge!", body["message"])

	rec = h.do(http.MethodPost, "/api/v1/challenges/submit", closed, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["warning"])
}

func TestCreateChallengePassesAdminFlag(t *testing.T) {
	h := newHarness(t)
	adminID, cookie := h.login(t, true)
	h.challenges.On("Create", mock.Anything, adminID, true, mock.Anything).Return(&challenge.Challenge{Title: "Dragons"}, nil)

	rec := h.do(http.MethodPost, "/api/v1/challenges", map[string]string{"title": "Dragons"}, cookie)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLikeAnonymous(t *testing.T) {
	h := newHarness(t)
	storyID := uuid.New()
	h.viral.On("Like", mock.Anything, uuid.Nil, storyID).Return(0, apperr.ErrNotLoggedIn)

	rec := h.do(http.MethodPost, "/api/v1/stories/"+storyID.String()+"/like", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestLikeReturnsCount(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	storyID := uuid.New()
	h.viral.On("Like", mock.Anything, callerID, storyID).Return(10, nil)

	rec := h.do(http.MethodPost, "/api/v1/stories/"+storyID.String()+"/like", nil, cookie)
	assert.JSONEq(t, `{"success":true,"likes":10}`, rec.Body.String())
}

func TestAwardAlreadyHadIsNotAnError(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	req := &achievement.AwardRequest{UserID: callerID, AchievementID: uuid.New()}
	h.achievements.On("Award", mock.Anything, callerID, false, req).Return(&achievement.AwardResult{
		Success:    true,
		AlreadyHad: true,
		Message:    "User already has this achievement",
	}, nil)

	rec := h.do(http.MethodPost, "/api/v1/achievements/award", req, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["already_had"])
	assert.Equal(t, "User already has this achievement", body["message"])
}

func TestShareForwardsMessage(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	storyID := uuid.New()
	h.viral.On("Share", mock.Anything, callerID, storyID, "read this").Return(&story.Story{ID: storyID, IsShared: true}, nil)

	rec := h.do(http.MethodPost, "/api/v1/stories/"+storyID.String()+"/share", map[string]string{"share_message": "read this"}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	h := newHarness(t)
	callerID, cookie := h.login(t, false)
	id := uuid.New()
	h.notifications.On("MarkAsRead", mock.Anything, callerID, id).Return(apperr.ErrNotificationMissing)

	rec := h.do(http.MethodPost, "/api/v1/notifications/"+id.String()+"/read", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.login(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stories", bytes.NewBufferString("{"))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
