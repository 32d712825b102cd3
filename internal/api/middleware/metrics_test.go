package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vlessbot/provisioner/internal/pkg/metrics"
)

func TestMetrics_RecordsRenderedStatusPerRoute(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/things/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusConflict, "taken")
		}
		return c.NoContent(http.StatusNoContent)
	})

	okCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "204")
	errCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "409")
	okBefore, errBefore := testutil.ToFloat64(okCounter), testutil.ToFloat64(errCounter)

	for _, path := range []string{"/things/1", "/things/2", "/things/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 2 {
		t.Errorf("204 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(errCounter) - errBefore; got != 1 {
		t.Errorf("409 count = %v, want 1", got)
	}
}
