package config

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/curve25519"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Panel        PanelConfig
	Reality      RealityConfig
	Provisioning ProvisioningConfig
	Auth         AuthConfig
	Store        StoreConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Serializer   SerializerConfig
	Reconcile    ReconcileConfig
}

type PanelConfig struct {
	URL         string        `env:"PANEL_URL"`
	Username    string        `env:"PANEL_USERNAME"`
	Password    string        `env:"PANEL_PASSWORD"`
	Timeout     time.Duration `env:"PANEL_TIMEOUT,      default=30s"`
	InsecureTLS bool          `env:"PANEL_INSECURE_TLS, default=false"`
}

// RealityConfig holds the server-wide Reality parameters. Keys use the
// unpadded URL-safe base64 encoding printed by `xray x25519`.
type RealityConfig struct {
	PublicKey     string   `env:"REALITY_PUBLIC_KEY"`
	PrivateKey    string   `env:"REALITY_PRIVATE_KEY"`
	ShortID       string   `env:"REALITY_SHORT_ID"`
	ServerNames   []string `env:"REALITY_SERVER_NAMES"`
	ServerAddress string   `env:"SERVER_ADDRESS"`
	Domain        string   `env:"DOMAIN"`
}

type ProvisioningConfig struct {
	MaxConfigsPerUser int     `env:"MAX_CONFIGS_PER_USER, default=10"`
	PortMin           int     `env:"PORT_MIN,             default=30000"`
	PortMax           int     `env:"PORT_MAX,             default=40000"`
	DefaultFlow       string  `env:"DEFAULT_FLOW,         default=xtls-rprx-vision"`
	DefaultExpireDays int     `env:"DEFAULT_EXPIRE_DAYS,  default=0"`
	AdminIDs          []int64 `env:"ADMIN_IDS"`
}

type AuthConfig struct {
	FrontendKeyHash string        `env:"FRONTEND_KEY_HASH"`
	AdminKeyHash    string        `env:"ADMIN_KEY_HASH"`
	TokenTTL        time.Duration `env:"TOKEN_TTL, default=24h"`
}

type StoreConfig struct {
	Driver     string `env:"STORE_DRIVER, default=sqlite"`
	SQLitePath string `env:"SQLITE_PATH,  default=vpnbot.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=vpnbot"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// SerializerConfig selects how operations of one user are kept in order.
type SerializerConfig struct {
	LockBackend string        `env:"LOCK_BACKEND,       default=local"`
	LockTTL     time.Duration `env:"LOCK_TTL,           default=2m"`
	Workers     int           `env:"SERIALIZER_WORKERS, default=8"`
}

type ReconcileConfig struct {
	Interval      time.Duration `env:"RECONCILE_INTERVAL,       default=0s"`
	DeleteOrphans bool          `env:"RECONCILE_DELETE_ORPHANS, default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks ranges and cross-field rules. When only the Reality
// private key is set, the public key is derived from it.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.JWTSecret == "" {
		add("JWT_SECRET is required")
	}
	if c.Auth.FrontendKeyHash == "" {
		add("FRONTEND_KEY_HASH is required")
	}

	if c.Panel.URL == "" {
		add("PANEL_URL is required")
	}
	if c.Panel.Username == "" || c.Panel.Password == "" {
		add("PANEL_USERNAME and PANEL_PASSWORD are required")
	}

	if c.Reality.ServerAddress == "" {
		add("SERVER_ADDRESS is required")
	}
	if c.Reality.Domain == "" {
		add("DOMAIN is required")
	}
	if len(c.Reality.ServerNames) == 0 {
		add("REALITY_SERVER_NAMES needs at least one name")
	}
	if err := validateShortID(c.Reality.ShortID); err != nil {
		errs = append(errs, err)
	}
	if err := c.Reality.resolveKeys(); err != nil {
		errs = append(errs, err)
	}

	p := c.Provisioning
	if p.MaxConfigsPerUser < 1 {
		add("MAX_CONFIGS_PER_USER must be at least 1, got %d", p.MaxConfigsPerUser)
	}
	if p.PortMin < 1 || p.PortMax > 65535 || p.PortMin > p.PortMax {
		add("invalid port range %d-%d", p.PortMin, p.PortMax)
	}
	if p.DefaultExpireDays < 0 {
		add("DEFAULT_EXPIRE_DAYS must not be negative")
	}
	if p.DefaultFlow == "" {
		add("DEFAULT_FLOW is required")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			add("SQLITE_PATH is required for the sqlite store")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			add("MONGO_URI is required for the mongo store")
		}
	default:
		add("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Serializer.LockBackend {
	case "local":
		if c.Serializer.Workers < 1 {
			add("SERIALIZER_WORKERS must be at least 1, got %d", c.Serializer.Workers)
		}
	case "redis":
		// a create holds the lock across a panel login and an add
		if c.Serializer.LockTTL <= 2*c.Panel.Timeout {
			add("LOCK_TTL (%s) must exceed twice PANEL_TIMEOUT (%s)", c.Serializer.LockTTL, c.Panel.Timeout)
		}
	default:
		add("unknown LOCK_BACKEND %q", c.Serializer.LockBackend)
	}

	if c.Reconcile.Interval < 0 {
		add("RECONCILE_INTERVAL must not be negative")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func validateShortID(sid string) error {
	if len(sid) > 16 || len(sid)%2 != 0 {
		return fmt.Errorf("REALITY_SHORT_ID must be an even number of hex digits, at most 16")
	}
	if _, err := hex.DecodeString(sid); err != nil {
		return fmt.Errorf("REALITY_SHORT_ID is not hex: %w", err)
	}
	return nil
}

func (r *RealityConfig) resolveKeys() error {
	if r.PrivateKey == "" {
		return fmt.Errorf("REALITY_PRIVATE_KEY is required")
	}
	derived, err := DerivePublicKey(r.PrivateKey)
	if err != nil {
		return err
	}
	if r.PublicKey == "" {
		r.PublicKey = derived
		return nil
	}
	if strings.TrimRight(r.PublicKey, "=") != derived {
		return fmt.Errorf("REALITY_PUBLIC_KEY does not match REALITY_PRIVATE_KEY")
	}
	return nil
}

// DerivePublicKey returns the X25519 public key for a base64 private key.
func DerivePublicKey(privateKey string) (string, error) {
	priv, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(privateKey, "="))
	if err != nil {
		return "", fmt.Errorf("REALITY_PRIVATE_KEY is not base64: %w", err)
	}
	if len(priv) != curve25519.ScalarSize {
		return "", fmt.Errorf("REALITY_PRIVATE_KEY must decode to %d bytes, got %d", curve25519.ScalarSize, len(priv))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("derive reality public key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(pub), nil
}
