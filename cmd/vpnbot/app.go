package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vlessbot/provisioner/internal/api/handler"
	"github.com/vlessbot/provisioner/internal/core/ports"
	"github.com/vlessbot/provisioner/internal/core/service"
	"github.com/vlessbot/provisioner/internal/infrastructure/db/mongo"
	"github.com/vlessbot/provisioner/internal/infrastructure/db/redis"
	"github.com/vlessbot/provisioner/internal/infrastructure/db/sqlite"
	"github.com/vlessbot/provisioner/internal/infrastructure/panel"
	"github.com/vlessbot/provisioner/internal/infrastructure/queue"
	"github.com/vlessbot/provisioner/internal/pkg/config"
	"github.com/vlessbot/provisioner/pkg/logger"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	store  ports.ConfigStore
	sqlite *sqlite.Store // nil unless STORE_DRIVER=sqlite
	panel  *panel.Client
	rdb    *goredis.Client

	serializer service.Serializer
	dispatcher *queue.Dispatcher // nil unless LOCK_BACKEND=local

	provisioning *service.ProvisioningService
	reconciler   *service.Reconciler
}

func loadConfig(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "vpnbot",
	})
	return cfg, log, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.panel, err = panel.NewClient(panel.Options{
		BaseURL:       cfg.Panel.URL,
		Username:      cfg.Panel.Username,
		Password:      cfg.Panel.Password,
		Timeout:       cfg.Panel.Timeout,
		InsecureTLS:   cfg.Panel.InsecureTLS,
		Domain:        cfg.Reality.Domain,
		ServerAddress: cfg.Reality.ServerAddress,
		PublicKey:     cfg.Reality.PublicKey,
		PrivateKey:    cfg.Reality.PrivateKey,
		ShortID:       cfg.Reality.ShortID,
		ServerNames:   cfg.Reality.ServerNames,
		Flow:          cfg.Provisioning.DefaultFlow,
	}, logger.Component("panel"))
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openSerializer(ctx); err != nil {
		a.Close()
		return nil, err
	}

	p := cfg.Provisioning
	a.provisioning = service.NewProvisioningService(a.store, a.panel, a.serializer, service.ProvisioningOptions{
		Quota:             p.MaxConfigsPerUser,
		PortMin:           p.PortMin,
		PortMax:           p.PortMax,
		DefaultExpireDays: p.DefaultExpireDays,
		ServerAddress:     cfg.Reality.ServerAddress,
		PublicKey:         cfg.Reality.PublicKey,
		ShortID:           cfg.Reality.ShortID,
	}, logger.Component("provisioning"))
	a.reconciler = service.NewReconciler(a.store, a.panel, a.serializer, cfg.Reconcile.DeleteOrphans, logger.Component("reconciler"))

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case "sqlite":
		st, err := sqlite.Open(sqlite.Options{
			Path:     a.cfg.Store.SQLitePath,
			AdminIDs: a.cfg.Provisioning.AdminIDs,
		})
		if err != nil {
			return err
		}
		a.sqlite, a.store = st, st
	case "mongo":
		st, err := mongo.Open(ctx, mongo.Config{
			URI:      a.cfg.Mongo.URI,
			Database: a.cfg.Mongo.Database,
		}, a.cfg.Provisioning.AdminIDs)
		if err != nil {
			return err
		}
		a.store = st
	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
	a.log.Info().Str("driver", a.cfg.Store.Driver).Msg("config store ready")
	return nil
}

func (a *app) openSerializer(ctx context.Context) error {
	s := a.cfg.Serializer
	switch s.LockBackend {
	case "local":
		a.dispatcher = queue.NewDispatcher(s.Workers, logger.Component("dispatcher"))
		a.serializer = a.dispatcher
	case "redis":
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.rdb = rdb
		a.serializer = redis.NewUserLock(rdb, s.LockTTL, logger.Component("user_lock"))
	default:
		return fmt.Errorf("unknown lock backend %q", s.LockBackend)
	}
	a.log.Info().Str("backend", s.LockBackend).Msg("per-user serializer ready")
	return nil
}

// healthChecks lists what /health/ready pings.
func (a *app) healthChecks() map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"store": a.store.Ping,
	}
	if a.rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		}
	}
	return checks
}

func (a *app) Close() {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn().Err(err).Msg("shutdown: closing dependencies")
	}
}
