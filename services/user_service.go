package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storyquestAPI/internal/apperr"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/user"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 80
)

type UserService struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	hashCost int
	now      func() time.Time
}

func NewUserService(db *pgxpool.Pool, logger *zap.Logger) *UserService {
	return &UserService{
		db:       db,
		logger:   logger.Named("UserService"),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

const userColumns = `id, username, email, password_hash, age_group, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AgeGroup, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return nil, apperr.Validation("all fields are required")
	}
	if len(username) > maxUsernameLength {
		return nil, apperr.Validation("username must be at most %d characters", maxUsernameLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("email address is invalid")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	ageGroup := strings.TrimSpace(req.AgeGroup)
	if ageGroup == "" {
		ageGroup = user.DefaultAgeGroup
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Validation("password cannot be used")
	}

	now := s.now()
	query := `
	INSERT INTO users (username, email, password_hash, age_group, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, username, email, string(hash), ageGroup, now))
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "users_username_key"):
			return nil, apperr.ErrUsernameTaken
		case database.IsUniqueViolation(err, "users_email_key"):
			return nil, apperr.ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.String("username", username), zap.Error(err))
		return nil, apperr.Persistence("create user", err)
	}

	s.logger.Info("User registered", zap.String("userID", u.ID.String()), zap.String("username", u.Username))
	return u, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, req *user.LoginRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Persistence("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug("Password mismatch", zap.String("userID", u.ID.String()))
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Persistence("load user", err)
	}
	return u, nil
}

// Profile returns the user with story and achievement totals.
func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	if id == uuid.Nil {
		return nil, apperr.ErrNotLoggedIn
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &user.Profile{User: u}
	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stories WHERE user_id = $1),
			COUNT(a.id),
			COALESCE(SUM(a.points), 0)
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1`, id).Scan(&profile.StoryCount, &profile.AchievementCount, &profile.AchievementPoints)
	if err != nil {
		return nil, apperr.Persistence("load profile totals", err)
	}
	return profile, nil
}
