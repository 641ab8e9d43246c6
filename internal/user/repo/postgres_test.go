package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
)

var userColumns = []string{"id", "name", "email", "password_hash", "avatar", "created_at", "updated_at"}

func newPostgresRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r := NewPostgresRepo(sqlx.NewDb(db, "postgres"), func() string { return "42" })
	return r, mock
}

func TestPostgresRepo_Create(t *testing.T) {
	r, mock := newPostgresRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("42", "Ana", "ana@example.com", "hash", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &entity.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "hash"}
	require.NoError(t, r.Create(context.Background(), u))
	assert.Equal(t, "42", u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CreateDuplicate(t *testing.T) {
	r, mock := newPostgresRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := r.Create(context.Background(), &entity.User{Name: "Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgresRepo_GetByEmail(t *testing.T) {
	r, mock := newPostgresRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=$1")).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("42", "Ana", "ana@example.com", "hash", "", now, now))

	u, err := r.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, now, u.CreatedAt)
}

func TestPostgresRepo_GetByIDMissing(t *testing.T) {
	r, mock := newPostgresRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=$1")).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := r.GetByID(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_UpdateOnlyPatchedColumns(t *testing.T) {
	r, mock := newPostgresRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET name=$1, avatar=$2, updated_at=$3 WHERE id=$4")).
		WithArgs("Anna", "", sqlmock.AnyArg(), "42").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("42", "Anna", "ana@example.com", "", "", now, now))

	name, avatar := "Anna", ""
	u, err := r.Update(context.Background(), "42", entity.Patch{Name: &name, Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateDuplicateEmail(t *testing.T) {
	r, mock := newPostgresRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET email=$1")).
		WillReturnError(&pq.Error{Code: "23505"})

	email := "taken@example.com"
	_, err := r.Update(context.Background(), "42", entity.Patch{Email: &email})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}
