// Package store opens the configured backend and hands out its repositories.
package store

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/config"
	taskrepo "github.com/ovaphlow/pitchfork/service-task-go/internal/task/repo"
	userrepo "github.com/ovaphlow/pitchfork/service-task-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-task-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-go/pkg/utilities"
)

// Store is the single handle shared by every request.
type Store struct {
	Driver string
	Users  userrepo.UserRepository
	Tasks  taskrepo.TaskRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Open connects to the backend named by cfg.Driver and verifies it is reachable.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.SugaredLogger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, oops.In("store").With("driver", cfg.Driver, "database", cfg.Mongo.Database).Wrap(err)
		}
		logger.Infow("store connected", "driver", cfg.Driver, "database", cfg.Mongo.Database)
		return newMongo(client, db), nil

	case config.DriverPostgres:
		ids, err := utilities.NewIDGenerator(cfg.SnowflakeNode)
		if err != nil {
			return nil, oops.In("store").With("driver", cfg.Driver, "node", cfg.SnowflakeNode).Wrapf(err, "snowflake node")
		}
		db, err := database.ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, oops.In("store").With("driver", cfg.Driver).Wrap(err)
		}
		logger.Infow("store connected", "driver", cfg.Driver)
		return newPostgres(db, ids.NewID), nil

	case config.DriverMemory:
		ids, err := utilities.NewIDGenerator(cfg.SnowflakeNode)
		if err != nil {
			return nil, oops.In("store").With("driver", cfg.Driver, "node", cfg.SnowflakeNode).Wrapf(err, "snowflake node")
		}
		logger.Warnw("using in-memory store, data is lost on restart")
		return NewMemory(ids.NewID), nil
	}
	return nil, oops.In("store").With("driver", cfg.Driver).Errorf("unknown store driver %q", cfg.Driver)
}

func newMongo(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Driver: config.DriverMongo,
		Users:  userrepo.NewMongoRepo(db),
		Tasks:  taskrepo.NewMongoRepo(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}

func newPostgres(db *sqlx.DB, newID func() string) *Store {
	return &Store{
		Driver: config.DriverPostgres,
		Users:  userrepo.NewPostgresRepo(db, newID),
		Tasks:  taskrepo.NewPostgresRepo(db, newID),
		ping:   db.PingContext,
		close:  func(context.Context) error { return db.Close() },
	}
}

// NewMemory builds a process-local store. Used for development and tests.
func NewMemory(newID func() string) *Store {
	noop := func(context.Context) error { return nil }
	return &Store{
		Driver: config.DriverMemory,
		Users:  userrepo.NewMemoryRepo(newID),
		Tasks:  taskrepo.NewMemoryRepo(newID),
		ping:   noop,
		close:  noop,
	}
}

// EnsureSchema creates the tables and indexes of every repository.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.Users.EnsureSchema(ctx); err != nil {
		return oops.In("store").With("driver", s.Driver).Wrapf(err, "users schema")
	}
	if err := s.Tasks.EnsureSchema(ctx); err != nil {
		return oops.In("store").With("driver", s.Driver).Wrapf(err, "tasks schema")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return errors.New("store not open")
	}
	return s.ping(ctx)
}

// Close releases the connection pool. Call it after the HTTP server drained.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
