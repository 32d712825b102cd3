package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vlessbot/provisioner/internal/api"
	"github.com/vlessbot/provisioner/internal/core/service"
	"github.com/vlessbot/provisioner/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background reconciler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Workers outlive ctx so requests still in flight at shutdown can finish.
	workCtx, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()
	if a.dispatcher != nil {
		a.dispatcher.Start(workCtx)
	}
	go a.reconciler.Loop(ctx, a.cfg.Reconcile.Interval)

	authService := service.NewAuthService(
		a.cfg.Auth.FrontendKeyHash,
		a.cfg.Auth.AdminKeyHash,
		a.cfg.JWTSecret,
		a.cfg.Auth.TokenTTL,
	)
	e := api.NewRouter(api.Deps{
		Provisioning: a.provisioning,
		Reconciler:   a.reconciler,
		Auth:         authService,
		JWTSecret:    a.cfg.JWTSecret,
		Health:       a.healthChecks(),
		Log:          logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http server shutdown")
	}
	stopWork()
	return nil
}
