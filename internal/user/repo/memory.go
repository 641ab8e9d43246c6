package repo

import (
	"context"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
)

// MemoryRepo keeps users in process memory. It backs the "memory" store driver
// used for local runs and tests; the email index is checked and written under
// one lock, which gives it the same uniqueness guarantee as the real stores.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]entity.User
	byEmail map[string]string
	newID   func() string
	now     func() time.Time
}

func NewMemoryRepo(newID func() string) *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]entity.User),
		byEmail: make(map[string]string),
		newID:   newID,
		now:     time.Now,
	}
}

func (r *MemoryRepo) EnsureSchema(context.Context) error { return nil }

func (r *MemoryRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	now := r.now().UTC()
	u.ID = r.newID()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.PasswordHash = ""
	return &u, nil
}

func (r *MemoryRepo) Update(_ context.Context, id string, p entity.Patch) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Email != nil && *p.Email != u.Email {
		if _, taken := r.byEmail[*p.Email]; taken {
			return nil, ErrDuplicateEmail
		}
		delete(r.byEmail, u.Email)
		r.byEmail[*p.Email] = id
	}
	p.Apply(&u, r.now().UTC())
	r.byID[id] = u
	u.PasswordHash = ""
	return &u, nil
}
