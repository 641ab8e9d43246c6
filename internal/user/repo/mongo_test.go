package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
)

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("create assigns id", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		r.now = func() time.Time { return created }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &entity.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "hash"}
		require.NoError(mt, r.Create(ctx, u))
		assert.True(mt, primitive.IsValidObjectID(u.ID))
		assert.Equal(mt, created, u.CreatedAt)
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error collection: taskd.users index: email_unique",
		}))

		err := r.Create(ctx, &entity.User{Name: "Ana", Email: "ana@example.com"})
		assert.ErrorIs(mt, err, ErrDuplicateEmail)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "taskd.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Ana"},
			{Key: "email", Value: "ana@example.com"},
			{Key: "password", Value: "hash"},
			{Key: "createdAt", Value: created},
			{Key: "updatedAt", Value: created},
		}))

		u, err := r.GetByEmail(ctx, "ana@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), u.ID)
		assert.Equal(mt, "hash", u.PasswordHash)
		assert.Equal(mt, created, u.CreatedAt)
	})

	mt.Run("get by id missing", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "taskd.users", mtest.FirstBatch))

		_, err := r.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("malformed id is not found", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)

		_, err := r.GetByID(ctx, "not-an-object-id")
		assert.ErrorIs(mt, err, ErrNotFound)
		_, err = r.Update(ctx, "not-an-object-id", entity.Patch{})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update returns stored document", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Anna"},
			{Key: "email", Value: "ana@example.com"},
			{Key: "createdAt", Value: created},
			{Key: "updatedAt", Value: created.Add(time.Hour)},
		}}))

		name := "Anna"
		u, err := r.Update(ctx, oid.Hex(), entity.Patch{Name: &name})
		require.NoError(mt, err)
		assert.Equal(mt, "Anna", u.Name)
		assert.Empty(mt, u.PasswordHash)
		assert.Equal(mt, created.Add(time.Hour), u.UpdatedAt)
	})

	mt.Run("update missing user", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		name := "Anna"
		_, err := r.Update(ctx, primitive.NewObjectID().Hex(), entity.Patch{Name: &name})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("ensure schema", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, r.EnsureSchema(ctx))
	})
}
