package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
)

func (s *Store) GetUser(ctx context.Context, externalID int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewStorageError("get user", err)
	}
	return &u, nil
}

// AddUser relies on the unique external_id index; it never upserts.
func (s *Store) AddUser(ctx context.Context, externalID int64, handle, displayName string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, isAdmin := s.admins[externalID]
	u := &domain.User{
		ExternalID:  externalID,
		Handle:      handle,
		DisplayName: displayName,
		IsAdmin:     isAdmin,
		CreatedAt:   s.now(),
	}

	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, domain.NewStorageError("add user", err)
	}
	return u, nil
}

// GetStats groups registrations by UTC calendar day, newest first.
func (s *Store) GetStats(ctx context.Context, windowDays int) ([]domain.DailyStat, error) {
	if windowDays <= 0 || windowDays > ports.StatsWindowLimit {
		windowDays = ports.StatsWindowLimit
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": -1}}},
		{{Key: "$limit", Value: windowDays}},
	}

	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStorageError("get stats", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Date  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, domain.NewStorageError("get stats", err)
	}

	stats := make([]domain.DailyStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.DailyStat{Date: r.Date, NewUsers: r.Count})
	}
	return stats, nil
}

func (s *Store) Overview(ctx context.Context) (domain.Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	users, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return domain.Overview{}, domain.NewStorageError("overview", err)
	}
	active, err := s.configs.CountDocuments(ctx, bson.M{"active": true})
	if err != nil {
		return domain.Overview{}, domain.NewStorageError("overview", err)
	}
	return domain.Overview{TotalUsers: int(users), ActiveConfigs: int(active)}, nil
}
