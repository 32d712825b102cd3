package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/vlessbot/provisioner/internal/api/docs"
	"github.com/vlessbot/provisioner/internal/api/handler"
	"github.com/vlessbot/provisioner/internal/api/middleware"
	"github.com/vlessbot/provisioner/internal/core/ports"
	"github.com/vlessbot/provisioner/internal/core/service"
)

// Deps groups everything the HTTP layer calls into.
type Deps struct {
	Provisioning ports.ProvisioningService
	Reconciler   ports.Reconciler
	Auth         ports.AuthService
	JWTSecret    string
	// Health lists the dependencies checked by /health/ready.
	Health map[string]handler.Pinger
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/token", authHandler.Token)

	// --- Front-end routes ---
	v1 := e.Group("/v1", middleware.Auth(d.JWTSecret))
	frontend := middleware.RBAC(service.RoleFrontend, service.RoleAdmin)

	userHandler := handler.NewUserHandler(d.Provisioning)
	v1.POST("/users", userHandler.Ensure, frontend)

	configHandler := handler.NewConfigHandler(d.Provisioning)
	v1.POST("/users/:user_id/configs", configHandler.Create, frontend)
	v1.GET("/users/:user_id/configs", configHandler.List, frontend)
	v1.GET("/users/:user_id/configs/:config_id", configHandler.Get, frontend)
	v1.DELETE("/users/:user_id/configs/:config_id", configHandler.Delete, frontend)

	// --- Admin routes ---
	admin := v1.Group("/admin", middleware.RBAC(service.RoleAdmin))
	adminHandler := handler.NewAdminHandler(d.Provisioning, d.Reconciler)
	admin.GET("/stats", adminHandler.Stats)
	admin.POST("/reconcile", adminHandler.Reconcile)

	return e
}
