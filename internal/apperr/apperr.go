package apperr

import (
	"errors"
	"fmt"
)

// Application-wide errors. Every one of them is recovered at the request
// boundary; none of them is fatal to the process.
var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("resource not found")
	ErrValidation       = errors.New("validation failed")
	ErrPersistence      = errors.New("persistence failure")

	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrStoryNotFound       = fmt.Errorf("story %w", ErrNotFound)
	ErrChallengeNotFound   = fmt.Errorf("challenge %w", ErrNotFound)
	ErrAchievementNotFound = fmt.Errorf("achievement %w", ErrNotFound)
	ErrProgressNotFound    = fmt.Errorf("progress %w", ErrNotFound)
	ErrAssetNotFound       = fmt.Errorf("asset %w", ErrNotFound)
	ErrNotificationMissing = fmt.Errorf("notification %w", ErrNotFound)

	ErrChallengeClosed    = errors.New("this challenge has ended")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a user-visible validation failure.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string { return e.op + ": " + e.err.Error() }

func (e *persistenceError) Unwrap() error { return e.err }

func (e *persistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps a storage error. The wrapped detail is meant for the
// server log only.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &persistenceError{op: op, err: err}
}
