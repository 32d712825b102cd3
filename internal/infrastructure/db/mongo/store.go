package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

const (
	collectionUsers   = "users"
	collectionConfigs = "configs"
)

// Store implements ports.ConfigStore on two collections.
type Store struct {
	client  *mongo.Client
	users   *mongo.Collection
	configs *mongo.Collection
	admins  map[int64]struct{}
	now     func() time.Time
}

// Open connects, ensures indexes and returns a ready store.
func Open(ctx context.Context, cfg Config, adminIDs []int64) (*Store, error) {
	client, db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, domain.NewStorageError("connect", err)
	}

	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	s := &Store{
		client:  client,
		users:   db.Collection(collectionUsers),
		configs: db.Collection(collectionConfigs),
		admins:  admins,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, domain.NewStorageError("ensure indexes", err)
	}
	return s, nil
}

// EnsureIndexes mirrors the SQLite schema: unique external ids, and lookups
// by owner and by active flag.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.configs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "active", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "active", Value: 1}}},
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return domain.NewStorageError("ping", s.client.Ping(ctx, readpref.Primary()))
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
