package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// userIDParam parses the :user_id path segment. The front end authenticates
// as a whole, so the id is trusted once the token is; it still has to be a
// positive platform id.
func userIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "user_id must be a positive integer")
	}
	return id, nil
}

func configIDParam(c echo.Context) (string, error) {
	id := c.Param("config_id")
	if id == "" || len(id) > 64 {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid config_id")
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
