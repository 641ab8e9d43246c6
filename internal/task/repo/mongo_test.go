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

	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
)

func taskDoc(id, owner primitive.ObjectID, title string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "user", Value: owner},
		{Key: "title", Value: title},
		{Key: "description", Value: ""},
		{Key: "status", Value: "pending"},
		{Key: "priority", Value: "medium"},
		{Key: "tags", Value: bson.A{"work"}},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
}

func TestMongoTaskRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	owner := primitive.NewObjectID()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("create", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		r.now = func() time.Time { return created }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		task := &entity.Task{UserID: owner.Hex(), Title: "Write tests", Status: entity.StatusPending, Priority: entity.PriorityMedium}
		require.NoError(mt, r.Create(ctx, task))
		assert.True(mt, primitive.IsValidObjectID(task.ID))
		assert.Equal(mt, []string{}, task.Tags)
		assert.Equal(mt, created, task.CreatedAt)
	})

	mt.Run("get", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "taskd.tasks", mtest.FirstBatch, taskDoc(id, owner, "Write tests", created)))

		task, err := r.Get(ctx, owner.Hex(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), task.ID)
		assert.Equal(mt, owner.Hex(), task.UserID)
		assert.Equal(mt, []string{"work"}, task.Tags)
		assert.Nil(mt, task.DueDate)
	})

	mt.Run("malformed ids are not found", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)

		_, err := r.Get(ctx, owner.Hex(), "123")
		assert.ErrorIs(mt, err, ErrNotFound)
		_, err = r.Update(ctx, owner.Hex(), "zzz", entity.Patch{})
		assert.ErrorIs(mt, err, ErrNotFound)
		assert.ErrorIs(mt, r.Delete(ctx, owner.Hex(), "zzz"), ErrNotFound)
	})

	mt.Run("update someone else's task", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		title := "mine now"
		_, err := r.Update(ctx, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), entity.Patch{Title: &title})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: taskDoc(id, owner, "Renamed", created)}))

		title := "Renamed"
		task, err := r.Update(ctx, owner.Hex(), id.Hex(), entity.Patch{Title: &title, ClearDueDate: true})
		require.NoError(mt, err)
		assert.Equal(mt, "Renamed", task.Title)
	})

	mt.Run("delete", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		assert.NoError(mt, r.Delete(ctx, owner.Hex(), primitive.NewObjectID().Hex()))
		assert.ErrorIs(mt, r.Delete(ctx, owner.Hex(), primitive.NewObjectID().Hex()), ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "taskd.tasks", mtest.FirstBatch,
				taskDoc(first, owner, "One", created),
				taskDoc(second, owner, "Two", created),
			),
			mtest.CreateCursorResponse(0, "taskd.tasks", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(12)}}),
		)

		tasks, total, err := r.List(ctx, entity.ListQuery{
			UserID: owner.Hex(), Search: "one", Tags: []string{"work"}, Page: 2, Limit: 10,
			Sort: []entity.SortKey{{Field: entity.SortCreatedAt, Desc: true}},
		})
		require.NoError(mt, err)
		assert.EqualValues(mt, 12, total)
		require.Len(mt, tasks, 2)
		assert.Equal(mt, "One", tasks[0].Title)
	})

	mt.Run("ensure schema", func(mt *mtest.T) {
		r := NewMongoRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, r.EnsureSchema(ctx))
	})
}

func TestListFilterAndSort(t *testing.T) {
	owner := primitive.NewObjectID()
	filter := listFilter(owner, entity.ListQuery{
		Search: "report", Status: entity.StatusPending, Priority: entity.PriorityHigh, Tags: []string{"a", "b"},
	})
	assert.Equal(t, bson.D{
		{Key: "user", Value: owner},
		{Key: "$text", Value: bson.D{{Key: "$search", Value: "report"}}},
		{Key: "status", Value: "pending"},
		{Key: "priority", Value: "high"},
		{Key: "tags", Value: bson.D{{Key: "$in", Value: []string{"a", "b"}}}},
	}, filter)

	assert.Equal(t, bson.D{
		{Key: "dueDate", Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: 1},
	}, sortSpec([]entity.SortKey{{Field: entity.SortDueDate}, {Field: entity.SortCreatedAt, Desc: true}}))
}
