package repo

import (
	"context"
	"errors"
	"time"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the durable directory of subscribers keyed by phone number.
// Users are never deleted, only deactivated or blacklisted.
type UserRepository interface {
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, phone string) (*model.User, error)
	Deactivate(ctx context.Context, id int64) error
	Blacklist(ctx context.Context, id int64) error
	// UpdatePreferences stores the weekly slot and marks the user active.
	UpdatePreferences(ctx context.Context, id int64, prefs model.Preferences) error
	RecordQuestion(ctx context.Context, id int64, questionID int64, sentAt time.Time) error
	// ListDue returns active, non-blacklisted users whose slot matches day/hour
	// and who have not been messaged since sentBefore.
	ListDue(ctx context.Context, day, hour int, sentBefore time.Time) ([]model.User, error)
}
