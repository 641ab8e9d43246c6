// Package repo holds the credential store implementations.
package repo

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository is the credential store. Email values are expected to be
// normalized by the caller; every implementation enforces their uniqueness
// itself and reports a violation as ErrDuplicateEmail.
type UserRepository interface {
	// Create assigns ID and timestamps on u.
	Create(ctx context.Context, u *entity.User) error
	// GetByEmail is the only lookup that returns PasswordHash.
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, id string, p entity.Patch) (*entity.User, error)
	// EnsureSchema creates tables and indexes, idempotently.
	EnsureSchema(ctx context.Context) error
}
