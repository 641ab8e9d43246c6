package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("Task not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestError_WithCauseKeepsMessage(t *testing.T) {
	cause := errors.New("E11000 duplicate key")
	err := Conflict("Email already in use").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Email already in use", err.Message)
}

type signup struct {
	Name  string   `json:"name" validate:"required,min=2,max=50"`
	Email string   `json:"email" validate:"required,email"`
	Tags  []string `json:"tags" validate:"max=2,dive,max=3"`
}

func TestValidateStruct(t *testing.T) {
	msgs := Messages{
		"name.required": "Name is required",
		"name":          "Name must be between 2 and 50 characters",
		"email":         "Please provide a valid email",
	}

	err := ValidateStruct(signup{Name: "A", Email: "nope", Tags: []string{"long-tag"}}, msgs)
	require.Error(t, err)

	verr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, verr.Kind)
	assert.Equal(t, "Validation failed", verr.Message)
	assert.Equal(t, []FieldError{
		{Field: "name", Message: "Name must be between 2 and 50 characters"},
		{Field: "email", Message: "Please provide a valid email"},
		{Field: "tags", Message: "Invalid value"},
	}, verr.Fields)

	err = ValidateStruct(signup{Email: "a@b.co"}, msgs)
	verr, ok = As(err)
	require.True(t, ok)
	assert.Equal(t, "Name is required", verr.Fields[0].Message)

	assert.NoError(t, ValidateStruct(signup{Name: "Ana", Email: "ana@x.com"}, msgs))
}
