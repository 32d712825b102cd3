package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vlessbot/provisioner/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token exchanges an API key for a bearer token.
//
// @Summary      Issue an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      tokenRequest  true  "API key"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, role, err := h.authService.IssueToken(c.Request().Context(), req.Key)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token, Role: role})
}
