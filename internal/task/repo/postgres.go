package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
)

const taskColumns = `id, user_id, title, description, status, priority, due_date, tags, created_at, updated_at`

// searchVector must stay identical to the expression of tasks_search_idx.
const searchVector = `to_tsvector('english', title || ' ' || description)`

var sortColumns = map[string]string{
	entity.SortCreatedAt: "created_at",
	entity.SortUpdatedAt: "updated_at",
	entity.SortDueDate:   "due_date",
	entity.SortTitle:     "title",
	entity.SortStatus:    "status",
	entity.SortPriority:  "priority",
}

type taskRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	Priority    string         `db:"priority"`
	DueDate     sql.NullTime   `db:"due_date"`
	Tags        pq.StringArray `db:"tags"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r taskRow) entity() entity.Task {
	t := entity.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Status:      entity.Status(r.Status),
		Priority:    entity.Priority(r.Priority),
		Tags:        []string(r.Tags),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time.UTC()
		t.DueDate = &due
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

// PostgresRepo provides data access for the tasks table using sqlx.
type PostgresRepo struct {
	db    *sqlx.DB
	newID func() string
	now   func() time.Time
}

func NewPostgresRepo(db *sqlx.DB, newID func() string) *PostgresRepo {
	return &PostgresRepo{db: db, newID: newID, now: time.Now}
}

func (r *PostgresRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// EnsureSchema creates the tasks table and its indexes if not exists.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  title VARCHAR(200) NOT NULL,
  description VARCHAR(1000) NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-progress', 'completed')),
  priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
  due_date TIMESTAMPTZ,
  tags TEXT[] NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tasks_user_filter_idx ON tasks (user_id, status, priority, created_at DESC);
CREATE INDEX IF NOT EXISTS tasks_due_date_idx ON tasks (due_date);
CREATE INDEX IF NOT EXISTS tasks_tags_idx ON tasks USING GIN (tags);
CREATE INDEX IF NOT EXISTS tasks_search_idx ON tasks USING GIN (` + searchVector + `);`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return oops.In("task-repo").With("table", "tasks").Wrapf(err, "ensure schema")
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, t *entity.Task) error {
	const q = `INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :user_id, :title, :description, :status, :priority, :due_date, :tags, :created_at, :updated_at)`
	now := r.timestamp()
	if t.Tags == nil {
		t.Tags = []string{}
	}
	row := taskRow{
		ID:          r.newID(),
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Tags:        pq.StringArray(t.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.DueDate != nil {
		row.DueDate = sql.NullTime{Time: *t.DueDate, Valid: true}
	}
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return oops.In("task-repo").With("op", "create", "user_id", t.UserID).Wrap(err)
	}
	t.ID = row.ID
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (*entity.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1 AND user_id=$2`
	var row taskRow
	if err := r.db.GetContext(ctx, &row, q, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, oops.In("task-repo").With("op", "get", "id", id).Wrap(err)
	}
	t := row.entity()
	return &t, nil
}

func (r *PostgresRepo) Update(ctx context.Context, userID, id string, p entity.Patch) (*entity.Task, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Priority != nil {
		add("priority", string(*p.Priority))
	}
	switch {
	case p.ClearDueDate:
		sets = append(sets, "due_date=NULL")
	case p.DueDate != nil:
		add("due_date", *p.DueDate)
	}
	if p.Tags != nil {
		add("tags", pq.StringArray(*p.Tags))
	}
	add("updated_at", r.timestamp())
	args = append(args, id, userID)

	q := fmt.Sprintf(`UPDATE tasks SET %s WHERE id=$%d AND user_id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), taskColumns)
	var row taskRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, oops.In("task-repo").With("op", "update", "id", id).Wrap(err)
	}
	t := row.entity()
	return &t, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return oops.In("task-repo").With("op", "delete", "id", id).Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.In("task-repo").With("op", "delete", "id", id).Wrap(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, q entity.ListQuery) ([]entity.Task, int64, error) {
	where, args := listWhere(q)

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tasks WHERE `+where, args...); err != nil {
		return nil, 0, oops.In("task-repo").With("op", "count", "user_id", q.UserID).Wrap(err)
	}

	args = append(args, q.Limit, q.Skip())
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, orderBy(q.Sort), len(args)-1, len(args))
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, oops.In("task-repo").With("op", "list", "user_id", q.UserID).Wrap(err)
	}
	tasks := make([]entity.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.entity())
	}
	return tasks, total, nil
}

func listWhere(q entity.ListQuery) (string, []any) {
	conds := []string{"user_id=$1"}
	args := []any{q.UserID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Search != "" {
		if ts := tsQuery(q.Search); ts != "" {
			add(searchVector+" @@ to_tsquery('english', $%d)", ts)
		} else {
			conds = append(conds, "FALSE")
		}
	}
	if q.Status != "" {
		add("status=$%d", string(q.Status))
	}
	if q.Priority != "" {
		add("priority=$%d", string(q.Priority))
	}
	if len(q.Tags) > 0 {
		add("tags && $%d", pq.StringArray(q.Tags))
	}
	return strings.Join(conds, " AND "), args
}

// tsQuery ORs the words of a free-text search, so a task matches when any of
// them occurs. Only letters and digits survive, which keeps the result valid
// to_tsquery input.
func tsQuery(search string) string {
	words := strings.FieldsFunc(search, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " | ")
}

// orderBy renders whitelisted sort keys. Missing due dates order first
// ascending and last descending, matching the document store.
func orderBy(keys []entity.SortKey) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		col, ok := sortColumns[k.Field]
		if !ok {
			continue
		}
		if k.Desc {
			parts = append(parts, col+" DESC NULLS LAST")
		} else {
			parts = append(parts, col+" ASC NULLS FIRST")
		}
	}
	return strings.Join(append(parts, "id ASC"), ", ")
}
