package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vlessbot/provisioner/internal/core/ports"
)

// AdminHandler serves the operator-only endpoints.
type AdminHandler struct {
	service    ports.ProvisioningService
	reconciler ports.Reconciler
}

func NewAdminHandler(service ports.ProvisioningService, reconciler ports.Reconciler) *AdminHandler {
	return &AdminHandler{service: service, reconciler: reconciler}
}

// Stats handles GET /v1/admin/stats.
//
// @Summary      Usage overview
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}

// Reconcile handles POST /v1/admin/reconcile.
//
// @Summary      Run one reconciliation pass against the panel
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  reconcileResponse
// @Failure      403  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /v1/admin/reconcile [post]
func (h *AdminHandler) Reconcile(c echo.Context) error {
	report, err := h.reconciler.Run(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReconcileResponse(report))
}
