package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storyquestAPI/internal/achievement"
	"storyquestAPI/internal/asset"
	"storyquestAPI/internal/challenge"
	"storyquestAPI/internal/leaderboard"
	"storyquestAPI/internal/notification"
	"storyquestAPI/internal/progress"
	"storyquestAPI/internal/story"
	"storyquestAPI/internal/user"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserStore) Authenticate(ctx context.Context, req *user.LoginRequest) (*user.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUserStore) Profile(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*user.Profile)
	return p, args.Error(1)
}

type mockStoryStore struct{ mock.Mock }

func (m *mockStoryStore) Create(ctx context.Context, ownerID uuid.UUID, req *story.CreateStoryRequest) (*story.Story, error) {
	args := m.Called(ctx, ownerID, req)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockStoryStore) Get(ctx context.Context, callerID, storyID uuid.UUID) (*story.Story, error) {
	args := m.Called(ctx, callerID, storyID)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockStoryStore) Update(ctx context.Context, callerID, storyID uuid.UUID, req *story.UpdateStoryRequest) (*story.Story, error) {
	args := m.Called(ctx, callerID, storyID, req)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockStoryStore) ReplaceElements(ctx context.Context, callerID, storyID uuid.UUID, req *story.ReplaceElementsRequest) (*story.Story, error) {
	args := m.Called(ctx, callerID, storyID, req)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockStoryStore) Autosave(ctx context.Context, callerID, storyID uuid.UUID, content json.RawMessage) (time.Time, error) {
	args := m.Called(ctx, callerID, storyID, content)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockStoryStore) ToggleVisibility(ctx context.Context, callerID, storyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, callerID, storyID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStoryStore) Delete(ctx context.Context, callerID, storyID uuid.UUID) error {
	return m.Called(ctx, callerID, storyID).Error(0)
}

func (m *mockStoryStore) UserStories(ctx context.Context, userID uuid.UUID, includeDrafts bool) ([]*story.Story, error) {
	args := m.Called(ctx, userID, includeDrafts)
	s, _ := args.Get(0).([]*story.Story)
	return s, args.Error(1)
}

func (m *mockStoryStore) PublicStories(ctx context.Context, limit int) ([]*story.Story, error) {
	args := m.Called(ctx, limit)
	s, _ := args.Get(0).([]*story.Story)
	return s, args.Error(1)
}

func (m *mockStoryStore) FeaturedStories(ctx context.Context, limit int) ([]*story.Story, error) {
	args := m.Called(ctx, limit)
	s, _ := args.Get(0).([]*story.Story)
	return s, args.Error(1)
}

type mockAssetStore struct{ mock.Mock }

func (m *mockAssetStore) CreateCharacter(ctx context.Context, callerID, storyID uuid.UUID, req *asset.CharacterRequest) (*asset.Character, error) {
	args := m.Called(ctx, callerID, storyID, req)
	c, _ := args.Get(0).(*asset.Character)
	return c, args.Error(1)
}

func (m *mockAssetStore) UpdateCharacter(ctx context.Context, callerID, characterID uuid.UUID, req *asset.CharacterRequest) (*asset.Character, error) {
	args := m.Called(ctx, callerID, characterID, req)
	c, _ := args.Get(0).(*asset.Character)
	return c, args.Error(1)
}

func (m *mockAssetStore) StoryCharacters(ctx context.Context, callerID, storyID uuid.UUID) ([]*asset.Character, error) {
	args := m.Called(ctx, callerID, storyID)
	c, _ := args.Get(0).([]*asset.Character)
	return c, args.Error(1)
}

func (m *mockAssetStore) UserCharacters(ctx context.Context, userID uuid.UUID) ([]*asset.Character, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).([]*asset.Character)
	return c, args.Error(1)
}

func (m *mockAssetStore) CreateSetting(ctx context.Context, callerID, storyID uuid.UUID, req *asset.SettingRequest) (*asset.Setting, error) {
	args := m.Called(ctx, callerID, storyID, req)
	s, _ := args.Get(0).(*asset.Setting)
	return s, args.Error(1)
}

func (m *mockAssetStore) UpdateSetting(ctx context.Context, callerID, settingID uuid.UUID, req *asset.SettingRequest) (*asset.Setting, error) {
	args := m.Called(ctx, callerID, settingID, req)
	s, _ := args.Get(0).(*asset.Setting)
	return s, args.Error(1)
}

func (m *mockAssetStore) StorySettings(ctx context.Context, callerID, storyID uuid.UUID) ([]*asset.Setting, error) {
	args := m.Called(ctx, callerID, storyID)
	s, _ := args.Get(0).([]*asset.Setting)
	return s, args.Error(1)
}

func (m *mockAssetStore) UserSettings(ctx context.Context, userID uuid.UUID) ([]*asset.Setting, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).([]*asset.Setting)
	return s, args.Error(1)
}

type mockProgressStore struct{ mock.Mock }

func (m *mockProgressStore) SaveProgress(ctx context.Context, userID, storyID uuid.UUID, step string, data json.RawMessage) (*progress.Progress, error) {
	args := m.Called(ctx, userID, storyID, step, data)
	p, _ := args.Get(0).(*progress.Progress)
	return p, args.Error(1)
}

func (m *mockProgressStore) LoadProgress(ctx context.Context, userID, storyID uuid.UUID) (*progress.Progress, error) {
	args := m.Called(ctx, userID, storyID)
	p, _ := args.Get(0).(*progress.Progress)
	return p, args.Error(1)
}

type mockChallengeStore struct{ mock.Mock }

func (m *mockChallengeStore) Create(ctx context.Context, callerID uuid.UUID, isAdmin bool, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	args := m.Called(ctx, callerID, isAdmin, req)
	c, _ := args.Get(0).(*challenge.Challenge)
	return c, args.Error(1)
}

func (m *mockChallengeStore) List(ctx context.Context) (*challenge.Overview, error) {
	args := m.Called(ctx)
	o, _ := args.Get(0).(*challenge.Overview)
	return o, args.Error(1)
}

func (m *mockChallengeStore) Get(ctx context.Context, callerID, challengeID uuid.UUID) (*challenge.Detail, error) {
	args := m.Called(ctx, callerID, challengeID)
	d, _ := args.Get(0).(*challenge.Detail)
	return d, args.Error(1)
}

func (m *mockChallengeStore) Submit(ctx context.Context, callerID uuid.UUID, req *challenge.SubmitRequest) (*story.Story, error) {
	args := m.Called(ctx, callerID, req)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockChallengeStore) DeclareWinner(ctx context.Context, callerID uuid.UUID, isAdmin bool, storyID uuid.UUID) (*story.Story, error) {
	args := m.Called(ctx, callerID, isAdmin, storyID)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

type mockAchievementStore struct{ mock.Mock }

func (m *mockAchievementStore) Award(ctx context.Context, callerID uuid.UUID, isAdmin bool, req *achievement.AwardRequest) (*achievement.AwardResult, error) {
	args := m.Called(ctx, callerID, isAdmin, req)
	r, _ := args.Get(0).(*achievement.AwardResult)
	return r, args.Error(1)
}

func (m *mockAchievementStore) ListForUser(ctx context.Context, userID uuid.UUID) (*achievement.AchievementsResponse, error) {
	args := m.Called(ctx, userID)
	r, _ := args.Get(0).(*achievement.AchievementsResponse)
	return r, args.Error(1)
}

func (m *mockAchievementStore) Progress(ctx context.Context, userID uuid.UUID) (*achievement.Progress, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*achievement.Progress)
	return p, args.Error(1)
}

func (m *mockAchievementStore) Leaderboard(ctx context.Context) (*leaderboard.Leaderboard, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).(*leaderboard.Leaderboard)
	return l, args.Error(1)
}

type mockViralStore struct{ mock.Mock }

func (m *mockViralStore) Like(ctx context.Context, callerID, storyID uuid.UUID) (int, error) {
	args := m.Called(ctx, callerID, storyID)
	return args.Int(0), args.Error(1)
}

func (m *mockViralStore) RecordView(ctx context.Context, callerID, storyID uuid.UUID) (*story.Story, error) {
	args := m.Called(ctx, callerID, storyID)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockViralStore) Share(ctx context.Context, callerID, storyID uuid.UUID, message string) (*story.Story, error) {
	args := m.Called(ctx, callerID, storyID, message)
	s, _ := args.Get(0).(*story.Story)
	return s, args.Error(1)
}

func (m *mockViralStore) SharedStories(ctx context.Context, limit int) ([]*story.Story, error) {
	args := m.Called(ctx, limit)
	s, _ := args.Get(0).([]*story.Story)
	return s, args.Error(1)
}

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	args := m.Called(ctx, userID, page, pageSize, unreadOnly)
	r, _ := args.Get(0).(*notification.NotificationListResponse)
	return r, args.Error(1)
}

func (m *mockNotificationStore) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *mockNotificationStore) RegisterDevice(ctx context.Context, userID uuid.UUID, req notification.RegisterDeviceRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}
