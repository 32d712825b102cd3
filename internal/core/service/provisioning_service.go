package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
	"github.com/vlessbot/provisioner/internal/pkg/metrics"
)

const (
	defaultPortAttempts = 64
	persistTimeout      = 10 * time.Second
)

// persistContext is used for store writes that follow a change the panel has
// already applied. It keeps the caller's values but not its cancellation, so
// a client hang-up cannot split the remote and local records.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// Serializer runs fn so that calls sharing a userID never overlap.
type Serializer interface {
	Do(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
}

// ProvisioningOptions holds the limits and the server facts echoed back to
// the user next to every connection link.
type ProvisioningOptions struct {
	Quota             int
	PortMin           int
	PortMax           int
	PortAttempts      int
	DefaultExpireDays int

	ServerAddress string
	PublicKey     string
	ShortID       string
}

// ProvisioningService is the only component that calls both the store and
// the panel for a user action.
type ProvisioningService struct {
	store  ports.ConfigStore
	panel  ports.PanelClient
	serial Serializer
	opts   ProvisioningOptions
	log    zerolog.Logger

	now  func() time.Time
	intn func(n int) int
}

func NewProvisioningService(
	store ports.ConfigStore,
	panel ports.PanelClient,
	serial Serializer,
	opts ProvisioningOptions,
	log zerolog.Logger,
) *ProvisioningService {
	if opts.PortAttempts <= 0 {
		opts.PortAttempts = defaultPortAttempts
	}
	return &ProvisioningService{
		store:  store,
		panel:  panel,
		serial: serial,
		opts:   opts,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		intn:   rand.IntN,
	}
}

// EnsureUser returns the stored user, registering it on first contact.
func (s *ProvisioningService) EnsureUser(ctx context.Context, externalID int64, handle, displayName string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user, err = s.store.AddUser(ctx, externalID, handle, displayName)
	if errors.Is(err, domain.ErrUserExists) {
		// lost a race with a concurrent first contact
		return s.store.GetUser(ctx, externalID)
	}
	if err != nil {
		return nil, err
	}

	metrics.UsersRegisteredTotal.Inc()
	s.log.Info().Int64("user_id", externalID).Bool("admin", user.IsAdmin).Msg("user registered")
	return user, nil
}

// CreateConfig provisions a new inbound for the user and records it. Either
// both the remote inbound and the local row exist afterwards, or neither.
func (s *ProvisioningService) CreateConfig(ctx context.Context, userID int64) (*ports.ProvisionedConfig, error) {
	var out *ports.ProvisionedConfig
	err := s.serial.Do(ctx, userID, func(ctx context.Context) error {
		var err error
		out, err = s.createConfig(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProvisioningService) createConfig(ctx context.Context, userID int64) (*ports.ProvisionedConfig, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	// 1. Quota check happens before any remote call.
	count, err := s.store.CountActiveConfigs(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("count active configs")
		return nil, err
	}
	if count >= s.opts.Quota {
		metrics.QuotaRejectionsTotal.Inc()
		s.log.Info().Int64("user_id", userID).Int("active", count).Msg("config quota reached")
		return nil, domain.ErrQuotaExceeded
	}

	// 2. Port allocation.
	port, err := s.pickPort(ctx)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("port allocation failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioningFailed, err)
	}

	// 3. Remote inbound. Nothing is written locally on failure.
	inbound, err := s.panel.CreateInbound(ctx, port)
	if err != nil {
		metrics.ConfigsCreatedTotal.WithLabelValues("panel_error").Inc()
		s.log.Error().Err(err).Int64("user_id", userID).Int("port", port).Msg("panel create inbound failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioningFailed, err)
	}

	// 4. Local row.
	pctx, cancel := persistContext(ctx)
	defer cancel()

	var expiresAt *time.Time
	if s.opts.DefaultExpireDays > 0 {
		t := s.now().AddDate(0, 0, s.opts.DefaultExpireDays)
		expiresAt = &t
	}

	configID, err := s.store.CreateConfig(pctx, domain.NewConfig{
		UserID:     userID,
		InboundID:  inbound.ID,
		ClientUUID: inbound.ClientUUID,
		Email:      inbound.Email,
		Port:       inbound.Port,
		Flow:       inbound.Flow,
		URI:        inbound.URI,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		metrics.ConfigsCreatedTotal.WithLabelValues("storage_error").Inc()
		// The inbound now exists only on the panel; the reconciler picks it up.
		s.log.Error().Err(err).
			Int64("user_id", userID).
			Int("inbound_id", inbound.ID).
			Msg("persist config failed, remote inbound left without local row")
		return nil, err
	}

	metrics.ConfigsCreatedTotal.WithLabelValues("ok").Inc()
	s.log.Info().
		Int64("user_id", userID).
		Str("config_id", configID).
		Int("inbound_id", inbound.ID).
		Int("port", inbound.Port).
		Msg("config created")

	return &ports.ProvisionedConfig{
		ConfigID:      configID,
		ClientUUID:    inbound.ClientUUID,
		Email:         inbound.Email,
		Port:          inbound.Port,
		Flow:          inbound.Flow,
		URI:           inbound.URI,
		QRCode:        inbound.QRCode,
		ServerAddress: s.opts.ServerAddress,
		PublicKey:     s.opts.PublicKey,
		SNI:           inbound.SNI,
		ShortID:       s.opts.ShortID,
		ExpiresAt:     expiresAt,
		Remaining:     s.opts.Quota - count - 1,
	}, nil
}

// DeleteConfig revokes one of the user's active configs. Ownership is
// enforced by searching only the caller's own list.
func (s *ProvisioningService) DeleteConfig(ctx context.Context, userID int64, configID string) (*ports.DeleteResult, error) {
	var out *ports.DeleteResult
	err := s.serial.Do(ctx, userID, func(ctx context.Context) error {
		var err error
		out, err = s.deleteConfig(ctx, userID, configID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProvisioningService) deleteConfig(ctx context.Context, userID int64, configID string) (*ports.DeleteResult, error) {
	configs, err := s.store.ListActiveConfigs(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("list active configs")
		return nil, err
	}

	var target *domain.Config
	for i := range configs {
		if configs[i].ID == configID {
			target = &configs[i]
			break
		}
	}
	if target == nil {
		s.log.Info().Int64("user_id", userID).Str("config_id", configID).Msg("delete of unknown config")
		return nil, domain.ErrConfigNotFound
	}

	deleted, err := s.panel.DeleteInbound(ctx, target.InboundID)
	if err != nil {
		metrics.ConfigsDeletedTotal.WithLabelValues("panel_error").Inc()
		s.log.Error().Err(err).Str("config_id", configID).Int("inbound_id", target.InboundID).Msg("panel delete inbound failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrProvisioningFailed, err)
	}
	if !deleted {
		metrics.ConfigsDeletedTotal.WithLabelValues("panel_refused").Inc()
		s.log.Error().Str("config_id", configID).Int("inbound_id", target.InboundID).Msg("panel refused inbound deletion")
		return nil, fmt.Errorf("%w: panel did not delete inbound %d", domain.ErrProvisioningFailed, target.InboundID)
	}

	pctx, cancel := persistContext(ctx)
	defer cancel()

	if _, err := s.store.DeactivateConfig(pctx, target.ID); err != nil {
		metrics.ConfigsDeletedTotal.WithLabelValues("storage_error").Inc()
		s.log.Error().Err(err).Str("config_id", configID).Msg("deactivate config failed after remote delete")
		return nil, err
	}

	count, err := s.store.CountActiveConfigs(pctx, userID)
	if err != nil {
		return nil, err
	}

	metrics.ConfigsDeletedTotal.WithLabelValues("ok").Inc()
	s.log.Info().Int64("user_id", userID).Str("config_id", configID).Msg("config deleted")

	return &ports.DeleteResult{ConfigID: configID, Remaining: s.remaining(count)}, nil
}

// ListConfigs returns the user's active configs in creation order.
func (s *ProvisioningService) ListConfigs(ctx context.Context, userID int64) ([]domain.Config, error) {
	return s.store.ListActiveConfigs(ctx, userID)
}

// GetConfig returns one active config with a freshly rendered QR code.
func (s *ProvisioningService) GetConfig(ctx context.Context, userID int64, configID string) (*ports.ProvisionedConfig, error) {
	cfg, err := s.store.GetActiveConfig(ctx, userID, configID)
	if err != nil {
		return nil, err
	}

	qr, err := s.panel.RenderQR(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}

	count, err := s.store.CountActiveConfigs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ports.ProvisionedConfig{
		ConfigID:      cfg.ID,
		ClientUUID:    cfg.ClientUUID,
		Email:         cfg.Email,
		Port:          cfg.Port,
		Flow:          cfg.Flow,
		URI:           cfg.URI,
		QRCode:        qr,
		ServerAddress: s.opts.ServerAddress,
		PublicKey:     s.opts.PublicKey,
		SNI:           sniFromURI(cfg.URI),
		ShortID:       s.opts.ShortID,
		ExpiresAt:     cfg.ExpiresAt,
		Remaining:     s.remaining(count),
	}, nil
}

// Stats returns the admin overview and the last registrations.
func (s *ProvisioningService) Stats(ctx context.Context) (*ports.StatsResult, error) {
	overview, err := s.store.Overview(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := s.store.GetStats(ctx, ports.StatsWindowLimit)
	if err != nil {
		return nil, err
	}
	return &ports.StatsResult{Overview: overview, Registrations: regs}, nil
}

func (s *ProvisioningService) remaining(active int) int {
	if r := s.opts.Quota - active; r > 0 {
		return r
	}
	return 0
}

// pickPort draws uniformly from [PortMin, PortMax] and redraws when the port
// is held by an active config. After PortAttempts misses it scans the range
// from a random offset.
func (s *ProvisioningService) pickPort(ctx context.Context) (int, error) {
	span := s.opts.PortMax - s.opts.PortMin + 1
	if span <= 0 {
		return 0, fmt.Errorf("invalid port range %d-%d", s.opts.PortMin, s.opts.PortMax)
	}

	taken, err := s.store.ActivePorts(ctx)
	if err != nil {
		return 0, err
	}

	for i := 0; i < s.opts.PortAttempts; i++ {
		port := s.opts.PortMin + s.intn(span)
		if _, busy := taken[port]; !busy {
			return port, nil
		}
	}

	start := s.intn(span)
	for i := 0; i < span; i++ {
		port := s.opts.PortMin + (start+i)%span
		if _, busy := taken[port]; !busy {
			return port, nil
		}
	}
	return 0, domain.ErrNoFreePort
}

func sniFromURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("sni")
}
