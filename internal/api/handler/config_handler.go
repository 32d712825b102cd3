package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vlessbot/provisioner/internal/core/ports"
)

// ConfigHandler handles HTTP requests for a user's VPN configs.
type ConfigHandler struct {
	service ports.ProvisioningService
}

func NewConfigHandler(service ports.ProvisioningService) *ConfigHandler {
	return &ConfigHandler{service: service}
}

// Create handles POST /v1/users/:user_id/configs.
//
// @Summary      Provision a new config
// @Tags         configs
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      int  true  "Chat platform user id"
// @Success      201      {object}  provisionedConfigResponse
// @Failure      404      {object}  errorResponse
// @Failure      409      {object}  errorResponse  "quota exceeded"
// @Failure      502      {object}  errorResponse  "panel failure"
// @Router       /v1/users/{user_id}/configs [post]
func (h *ConfigHandler) Create(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}

	cfg, err := h.service.CreateConfig(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	resp := toProvisionedResponse(userID, cfg)
	c.Response().Header().Set(echo.HeaderLocation, resp.Links.Self)
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/users/:user_id/configs.
//
// @Summary      List active configs
// @Tags         configs
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      int  true  "Chat platform user id"
// @Success      200      {object}  listConfigsResponse
// @Failure      400      {object}  errorResponse
// @Router       /v1/users/{user_id}/configs [get]
func (h *ConfigHandler) List(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}

	configs, err := h.service.ListConfigs(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toListResponse(userID, configs))
}

// Get handles GET /v1/users/:user_id/configs/:config_id.
//
// @Summary      Show one config with its QR code
// @Tags         configs
// @Produce      json
// @Security     BearerAuth
// @Param        user_id    path      int     true  "Chat platform user id"
// @Param        config_id  path      string  true  "Config id"
// @Success      200        {object}  provisionedConfigResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/users/{user_id}/configs/{config_id} [get]
func (h *ConfigHandler) Get(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	configID, err := configIDParam(c)
	if err != nil {
		return err
	}

	cfg, err := h.service.GetConfig(c.Request().Context(), userID, configID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProvisionedResponse(userID, cfg))
}

// Delete handles DELETE /v1/users/:user_id/configs/:config_id.
//
// @Summary      Revoke a config
// @Tags         configs
// @Produce      json
// @Security     BearerAuth
// @Param        user_id    path      int     true  "Chat platform user id"
// @Param        config_id  path      string  true  "Config id"
// @Success      200        {object}  deleteConfigResponse
// @Failure      404        {object}  errorResponse
// @Failure      502        {object}  errorResponse  "panel failure, config left active"
// @Router       /v1/users/{user_id}/configs/{config_id} [delete]
func (h *ConfigHandler) Delete(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	configID, err := configIDParam(c)
	if err != nil {
		return err
	}

	res, err := h.service.DeleteConfig(c.Request().Context(), userID, configID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deleteConfigResponse{ConfigID: res.ConfigID, Remaining: res.Remaining})
}
