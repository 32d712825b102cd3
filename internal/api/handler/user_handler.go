package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vlessbot/provisioner/internal/core/ports"
)

type UserHandler struct {
	service ports.ProvisioningService
}

func NewUserHandler(service ports.ProvisioningService) *UserHandler {
	return &UserHandler{service: service}
}

// Ensure registers the user on first contact and returns the stored record.
//
// @Summary      Register or fetch a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ensureUserRequest  true  "Chat platform identity"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Ensure(c echo.Context) error {
	var req ensureUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.EnsureUser(c.Request().Context(), req.ExternalID, req.Handle, req.DisplayName)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}
