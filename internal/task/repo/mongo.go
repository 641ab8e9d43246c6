package repo

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
)

const tasksCollection = "tasks"

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	User        primitive.ObjectID `bson:"user"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	Tags        []string           `bson:"tags"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) entity() entity.Task {
	t := entity.Task{
		ID:          d.ID.Hex(),
		UserID:      d.User.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      entity.Status(d.Status),
		Priority:    entity.Priority(d.Priority),
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

// MongoRepo stores tasks in the "tasks" collection, owner ids as ObjectIDs.
type MongoRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection(tasksCollection), now: time.Now}
}

func (r *MongoRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// EnsureSchema creates the text index used by search and the indexes behind
// the list filters.
func (r *MongoRepo) EnsureSchema(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("title_description_text"),
		},
		{
			Keys: bson.D{
				{Key: "user", Value: 1}, {Key: "status", Value: 1},
				{Key: "priority", Value: 1}, {Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("user_status_priority_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "dueDate", Value: 1}},
			Options: options.Index().SetName("dueDate"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return oops.In("task-repo").With("collection", tasksCollection).Wrapf(err, "create indexes")
	}
	return nil
}

func (r *MongoRepo) Create(ctx context.Context, t *entity.Task) error {
	owner, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return oops.In("task-repo").With("user_id", t.UserID).Wrapf(err, "owner id")
	}
	now := r.timestamp()
	if t.Tags == nil {
		t.Tags = []string{}
	}
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		User:        owner,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Tags:        t.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return oops.In("task-repo").With("op", "create", "user_id", t.UserID).Wrap(err)
	}
	t.ID = doc.ID.Hex()
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// ownedFilter matches the task id for its owner; ok is false when either id
// cannot exist in this store.
func ownedFilter(userID, id string) (bson.D, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: owner}}, true
}

func (r *MongoRepo) Get(ctx context.Context, userID, id string) (*entity.Task, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return nil, ErrNotFound
	}
	var doc taskDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, oops.In("task-repo").With("op", "get", "id", id).Wrap(err)
	}
	t := doc.entity()
	return &t, nil
}

func (r *MongoRepo) Update(ctx context.Context, userID, id string, p entity.Patch) (*entity.Task, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return nil, ErrNotFound
	}
	set := bson.D{{Key: "updatedAt", Value: r.timestamp()}}
	if p.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *p.Title})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *p.Description})
	}
	if p.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*p.Status)})
	}
	if p.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: string(*p.Priority)})
	}
	if p.DueDate != nil && !p.ClearDueDate {
		set = append(set, bson.E{Key: "dueDate", Value: *p.DueDate})
	}
	if p.Tags != nil {
		set = append(set, bson.E{Key: "tags", Value: *p.Tags})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if p.ClearDueDate {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "dueDate", Value: ""}}})
	}

	var doc taskDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, oops.In("task-repo").With("op", "update", "id", id).Wrap(err)
	}
	t := doc.entity()
	return &t, nil
}

func (r *MongoRepo) Delete(ctx context.Context, userID, id string) error {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return oops.In("task-repo").With("op", "delete", "id", id).Wrap(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) List(ctx context.Context, q entity.ListQuery) ([]entity.Task, int64, error) {
	owner, err := primitive.ObjectIDFromHex(q.UserID)
	if err != nil {
		return []entity.Task{}, 0, nil
	}
	filter := listFilter(owner, q)

	opts := options.Find().
		SetSort(sortSpec(q.Sort)).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, oops.In("task-repo").With("op", "list", "user_id", q.UserID).Wrap(err)
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, oops.In("task-repo").With("op", "list decode").Wrap(err)
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, oops.In("task-repo").With("op", "count", "user_id", q.UserID).Wrap(err)
	}

	tasks := make([]entity.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].entity())
	}
	return tasks, total, nil
}

func listFilter(owner primitive.ObjectID, q entity.ListQuery) bson.D {
	filter := bson.D{{Key: "user", Value: owner}}
	if q.Search != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: q.Search}}})
	}
	if q.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: string(q.Status)})
	}
	if q.Priority != "" {
		filter = append(filter, bson.E{Key: "priority", Value: string(q.Priority)})
	}
	if len(q.Tags) > 0 {
		filter = append(filter, bson.E{Key: "tags", Value: bson.D{{Key: "$in", Value: q.Tags}}})
	}
	return filter
}

// sortSpec maps sort keys to document fields, ending on _id so that pages
// are stable when keys tie.
func sortSpec(keys []entity.SortKey) bson.D {
	spec := make(bson.D, 0, len(keys)+1)
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		spec = append(spec, bson.E{Key: k.Field, Value: dir})
	}
	return append(spec, bson.E{Key: "_id", Value: 1})
}
