package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Avatar       string    `db:"avatar"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) entity() *entity.User {
	return &entity.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Avatar:       r.Avatar,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// PostgresRepo provides data access for the users table using sqlx.
type PostgresRepo struct {
	db    *sqlx.DB
	newID func() string
	now   func() time.Time
}

func NewPostgresRepo(db *sqlx.DB, newID func() string) *PostgresRepo {
	return &PostgresRepo{db: db, newID: newID, now: time.Now}
}

// EnsureSchema creates the users table if not exists (idempotent).
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  avatar TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return oops.In("user-repo").With("table", "users").Wrapf(err, "ensure schema")
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, name, email, password_hash, avatar, created_at, updated_at)
		VALUES (:id, :name, :email, :password_hash, :avatar, :created_at, :updated_at)`
	now := r.now().UTC().Truncate(time.Microsecond)
	row := userRow{
		ID:           r.newID(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return oops.In("user-repo").With("op", "create").Wrap(err)
	}
	u.ID = row.ID
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetByEmail returns a user matched by email, including the password hash.
func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, name, email, password_hash, avatar, created_at, updated_at FROM users WHERE email=$1`
	return r.get(ctx, q, email)
}

// GetByID fetches a user without its password hash.
func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const q = `SELECT id, name, email, '' AS password_hash, avatar, created_at, updated_at FROM users WHERE id=$1`
	return r.get(ctx, q, id)
}

func (r *PostgresRepo) get(ctx context.Context, q string, arg any) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, oops.In("user-repo").With("op", "get").Wrap(err)
	}
	return row.entity(), nil
}

// Update sets only the patched columns and returns the row as stored.
func (r *PostgresRepo) Update(ctx context.Context, id string, p entity.Patch) (*entity.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Avatar != nil {
		add("avatar", *p.Avatar)
	}
	add("updated_at", r.now().UTC().Truncate(time.Microsecond))
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE users SET %s WHERE id=$%d
		RETURNING id, name, email, '' AS password_hash, avatar, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))
	var row userRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicateEmail
		}
		return nil, oops.In("user-repo").With("op", "update", "id", id).Wrap(err)
	}
	return row.entity(), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
