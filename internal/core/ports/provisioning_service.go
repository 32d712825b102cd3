package ports

import (
	"context"
	"time"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

// ProvisionedConfig is everything the front end shows after a config is
// created or opened.
type ProvisionedConfig struct {
	ConfigID      string
	ClientUUID    string
	Email         string
	Port          int
	Flow          string
	URI           string
	QRCode        []byte
	ServerAddress string
	PublicKey     string
	SNI           string
	ShortID       string
	ExpiresAt     *time.Time
	// Remaining is the number of configs the user can still create.
	Remaining int
}

// DeleteResult is returned after a config has been revoked.
type DeleteResult struct {
	ConfigID  string
	Remaining int
}

// StatsResult backs the admin overview.
type StatsResult struct {
	Overview      domain.Overview
	Registrations []domain.DailyStat
}

// ProvisioningService defines the credential lifecycle use cases.
type ProvisioningService interface {
	EnsureUser(ctx context.Context, externalID int64, handle, displayName string) (*domain.User, error)
	CreateConfig(ctx context.Context, userID int64) (*ProvisionedConfig, error)
	DeleteConfig(ctx context.Context, userID int64, configID string) (*DeleteResult, error)
	ListConfigs(ctx context.Context, userID int64) ([]domain.Config, error)
	GetConfig(ctx context.Context, userID int64, configID string) (*ProvisionedConfig, error)
	Stats(ctx context.Context) (*StatsResult, error)
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	RemoteInbounds int      `json:"remote_inbounds"`
	LocalActive    int      `json:"local_active"`
	OrphansFound   []int    `json:"orphans_found"`
	OrphansDeleted []int    `json:"orphans_deleted"`
	MissingRemote  []string `json:"missing_remote"`
	Expired        []string `json:"expired"`
}

// Reconciler aligns local rows with the panel's live inbounds.
type Reconciler interface {
	Run(ctx context.Context) (*ReconcileReport, error)
}

// AuthService issues bearer tokens to API callers.
type AuthService interface {
	IssueToken(ctx context.Context, key string) (token string, role string, err error)
}
