// Package repo holds the task store implementations.
package repo

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
)

// ErrNotFound is returned when no task with the id exists for the given owner,
// including when the id is not well-formed for the store.
var ErrNotFound = errors.New("task not found")

// TaskRepository is the task store. Every operation is scoped by the owner.
type TaskRepository interface {
	// Create assigns ID and timestamps on t.
	Create(ctx context.Context, t *entity.Task) error
	Get(ctx context.Context, userID, id string) (*entity.Task, error)
	// Update changes only the patched fields, atomically, and returns the
	// stored task.
	Update(ctx context.Context, userID, id string, p entity.Patch) (*entity.Task, error)
	Delete(ctx context.Context, userID, id string) error
	// List returns one page of matching tasks and the number of all matches.
	List(ctx context.Context, q entity.ListQuery) ([]entity.Task, int64, error)
	EnsureSchema(ctx context.Context) error
}
