package mongo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

// configDocument adds an insertion sequence so listings keep creation order
// even when two rows share a millisecond.
type configDocument struct {
	domain.Config `bson:",inline"`
	Seq           int64 `bson:"seq"`
}

var bySeq = options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})

func (s *Store) CountActiveConfigs(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := s.configs.CountDocuments(ctx, bson.M{"user_id": userID, "active": true})
	if err != nil {
		return 0, domain.NewStorageError("count active configs", err)
	}
	return int(n), nil
}

// CreateConfig inserts an active document. It does not check the quota.
func (s *Store) CreateConfig(ctx context.Context, cfg domain.NewConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := s.now()
	doc := configDocument{
		Config: domain.Config{
			ID:         "cfg-" + uuid.NewString(),
			UserID:     cfg.UserID,
			InboundID:  cfg.InboundID,
			ClientUUID: cfg.ClientUUID,
			Email:      cfg.Email,
			Port:       cfg.Port,
			Flow:       cfg.Flow,
			URI:        cfg.URI,
			Active:     true,
			CreatedAt:  now,
			ExpiresAt:  cfg.ExpiresAt,
		},
		Seq: now.UnixNano(),
	}

	if _, err := s.configs.InsertOne(ctx, doc); err != nil {
		return "", domain.NewStorageError("create config", err)
	}
	return doc.ID, nil
}

func (s *Store) ListActiveConfigs(ctx context.Context, userID int64) ([]domain.Config, error) {
	return s.findConfigs(ctx, "list active configs", bson.M{"user_id": userID, "active": true})
}

func (s *Store) ListAllActiveConfigs(ctx context.Context) ([]domain.Config, error) {
	return s.findConfigs(ctx, "list all active configs", bson.M{"active": true})
}

func (s *Store) GetActiveConfig(ctx context.Context, userID int64, configID string) (*domain.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc configDocument
	err := s.configs.FindOne(ctx, bson.M{"_id": configID, "user_id": userID, "active": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, domain.NewStorageError("get active config", err)
	}
	return &doc.Config, nil
}

// DeactivateConfig only matches active documents, so repeated calls report false.
func (s *Store) DeactivateConfig(ctx context.Context, configID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.configs.UpdateOne(ctx,
		bson.M{"_id": configID, "active": true},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return false, domain.NewStorageError("deactivate config", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) ActivePorts(ctx context.Context) (map[int]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := s.configs.Find(ctx, bson.M{"active": true}, options.Find().SetProjection(bson.M{"port": 1}))
	if err != nil {
		return nil, domain.NewStorageError("active ports", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Port int `bson:"port"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, domain.NewStorageError("active ports", err)
	}

	ports := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		ports[r.Port] = struct{}{}
	}
	return ports, nil
}

func (s *Store) findConfigs(ctx context.Context, op string, filter bson.M) ([]domain.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := s.configs.Find(ctx, filter, bySeq)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer cur.Close(ctx)

	var docs []configDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStorageError(op, err)
	}

	configs := make([]domain.Config, 0, len(docs))
	for _, d := range docs {
		configs = append(configs, d.Config)
	}
	return configs, nil
}
