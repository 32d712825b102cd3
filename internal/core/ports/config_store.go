package ports

import (
	"context"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

// StatsWindowLimit caps the number of rows GetStats returns.
const StatsWindowLimit = 30

// ConfigStore is the durable record of users and their configs. It is the
// single source of truth for quota checks and listings. Every failure is a
// *domain.StorageError unless documented otherwise.
type ConfigStore interface {
	// GetUser returns domain.ErrUserNotFound when no row exists.
	GetUser(ctx context.Context, externalID int64) (*domain.User, error)
	// AddUser inserts a user, deriving IsAdmin from the allow-list. It never
	// upserts: a duplicate returns domain.ErrUserExists.
	AddUser(ctx context.Context, externalID int64, handle, displayName string) (*domain.User, error)

	CountActiveConfigs(ctx context.Context, userID int64) (int, error)
	// CreateConfig stores an active row and returns its generated ID. Quota
	// is the caller's responsibility.
	CreateConfig(ctx context.Context, cfg domain.NewConfig) (string, error)
	// ListActiveConfigs returns the user's active configs in creation order.
	ListActiveConfigs(ctx context.Context, userID int64) ([]domain.Config, error)
	// GetActiveConfig returns domain.ErrConfigNotFound unless the config is
	// active and owned by userID.
	GetActiveConfig(ctx context.Context, userID int64, configID string) (*domain.Config, error)
	// DeactivateConfig reports whether an active row was switched off.
	DeactivateConfig(ctx context.Context, configID string) (bool, error)

	// ActivePorts returns the set of ports held by active configs.
	ActivePorts(ctx context.Context) (map[int]struct{}, error)
	ListAllActiveConfigs(ctx context.Context) ([]domain.Config, error)

	// GetStats aggregates user registrations per day, newest first, limited
	// to windowDays rows and never more than StatsWindowLimit.
	GetStats(ctx context.Context, windowDays int) ([]domain.DailyStat, error)
	Overview(ctx context.Context) (domain.Overview, error)

	Ping(ctx context.Context) error
	Close() error
}
