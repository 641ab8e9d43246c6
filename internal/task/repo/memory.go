package repo

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
)

// MemoryRepo keeps tasks in process memory for the "memory" store driver.
// Search matches a task when any search term occurs in its title or
// description, ignoring case.
type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]entity.Task
	newID func() string
	now   func() time.Time
}

func NewMemoryRepo(newID func() string) *MemoryRepo {
	return &MemoryRepo{tasks: make(map[string]entity.Task), newID: newID, now: time.Now}
}

func (r *MemoryRepo) EnsureSchema(context.Context) error { return nil }

func (r *MemoryRepo) Create(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	t.ID = r.newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Tags == nil {
		t.Tags = []string{}
	}
	r.tasks[t.ID] = clone(*t)
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, userID, id string) (*entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	out := clone(t)
	return &out, nil
}

func (r *MemoryRepo) Update(_ context.Context, userID, id string, p entity.Patch) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	p.Apply(&t, r.now().UTC())
	r.tasks[id] = clone(t)
	return &t, nil
}

func (r *MemoryRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepo) List(_ context.Context, q entity.ListQuery) ([]entity.Task, int64, error) {
	r.mu.RLock()
	matched := make([]entity.Task, 0)
	terms := searchTerms(q.Search)
	for _, t := range r.tasks {
		if matches(t, q, terms) {
			matched = append(matched, clone(t))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j], q.Sort) })
	total := int64(len(matched))
	start := min(q.Skip(), len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func matches(t entity.Task, q entity.ListQuery, terms []string) bool {
	if t.UserID != q.UserID {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if len(q.Tags) > 0 && !slices.ContainsFunc(t.Tags, func(tag string) bool { return slices.Contains(q.Tags, tag) }) {
		return false
	}
	if q.Search != "" {
		// a search without any word matches nothing
		text := strings.ToLower(t.Title + " " + t.Description)
		return slices.ContainsFunc(terms, func(term string) bool { return strings.Contains(text, term) })
	}
	return true
}

func searchTerms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// less orders by the sort keys, then by id so that pages are stable.
func less(a, b entity.Task, keys []entity.SortKey) bool {
	for _, k := range keys {
		c := compare(a, b, k.Field)
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return a.ID < b.ID
}

func compare(a, b entity.Task, field string) int {
	switch field {
	case entity.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case entity.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case entity.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case entity.SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case entity.SortPriority:
		return strings.Compare(string(a.Priority), string(b.Priority))
	case entity.SortDueDate:
		// Missing due dates sort first, as in the document store.
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return -1
		case b.DueDate == nil:
			return 1
		}
		return a.DueDate.Compare(*b.DueDate)
	}
	return 0
}

func clone(t entity.Task) entity.Task {
	t.Tags = append([]string{}, t.Tags...)
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}
