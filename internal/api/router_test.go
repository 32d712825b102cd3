package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vlessbot/provisioner/internal/api/handler"
	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
	"github.com/vlessbot/provisioner/internal/core/service"
)

const testSecret = "router-test-secret"

type fakeProvisioning struct {
	createErr error
	deleteErr error
}

func (f *fakeProvisioning) EnsureUser(_ context.Context, id int64, handle, name string) (*domain.User, error) {
	return &domain.User{ExternalID: id, Handle: handle, DisplayName: name}, nil
}

func (f *fakeProvisioning) CreateConfig(_ context.Context, userID int64) (*ports.ProvisionedConfig, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &ports.ProvisionedConfig{ConfigID: "cfg-1", Port: 30500, QRCode: []byte("png"), Remaining: 9}, nil
}

func (f *fakeProvisioning) DeleteConfig(_ context.Context, _ int64, configID string) (*ports.DeleteResult, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &ports.DeleteResult{ConfigID: configID, Remaining: 10}, nil
}

func (f *fakeProvisioning) ListConfigs(context.Context, int64) ([]domain.Config, error) {
	return nil, nil
}

func (f *fakeProvisioning) GetConfig(context.Context, int64, string) (*ports.ProvisionedConfig, error) {
	return nil, domain.ErrConfigNotFound
}

func (f *fakeProvisioning) Stats(context.Context) (*ports.StatsResult, error) {
	return &ports.StatsResult{Overview: domain.Overview{TotalUsers: 1}}, nil
}

type fakeReconciler struct{}

func (fakeReconciler) Run(context.Context) (*ports.ReconcileReport, error) {
	return &ports.ReconcileReport{OrphansFound: []int{}, OrphansDeleted: []int{}, MissingRemote: []string{}, Expired: []string{}}, nil
}

func newTestRouter(t *testing.T, prov ports.ProvisioningService) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("fe-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(Deps{
		Provisioning: prov,
		Reconciler:   fakeReconciler{},
		Auth:         service.NewAuthService(string(hash), "", testSecret, time.Hour),
		JWTSecret:    testSecret,
		Health:       map[string]handler.Pinger{"store": func(context.Context) error { return nil }},
		Log:          zerolog.Nop(),
	})
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func do(t *testing.T, h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestRouter_TokenThenCreate(t *testing.T) {
	h := newTestRouter(t, &fakeProvisioning{})

	rec := do(t, h, http.MethodPost, "/auth/token", "", `{"key":"fe-key"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("token: status = %d body = %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatal(err)
	}
	if tok.Role != service.RoleFrontend {
		t.Fatalf("role = %q", tok.Role)
	}

	rec = do(t, h, http.MethodPost, "/v1/users/42/configs", "Bearer "+tok.Token, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_WrongKeyIsUnauthorized(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeProvisioning{}), http.MethodPost, "/auth/token", "", `{"key":"nope"}`)
	if rec.Code != http.StatusUnauthorized || errorOf(t, rec) != "invalid credentials" {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeProvisioning{}), http.MethodGet, "/v1/users/1/configs", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRouter_AdminRoutesNeedAdminRole(t *testing.T) {
	h := newTestRouter(t, &fakeProvisioning{})

	rec := do(t, h, http.MethodGet, "/v1/admin/stats", bearer(t, service.RoleFrontend), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("frontend on admin route: status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/admin/stats", bearer(t, service.RoleAdmin), "")
	if rec.Code != http.StatusOK {
		t.Errorf("admin on admin route: status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/admin/reconcile", bearer(t, service.RoleAdmin), "")
	if rec.Code != http.StatusOK {
		t.Errorf("reconcile: status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/users/1/configs", bearer(t, "guest"), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("unknown role: status = %d", rec.Code)
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"quota", domain.ErrQuotaExceeded, http.StatusConflict, "config quota exceeded"},
		{"unknown user", domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{
			"panel failure hides detail",
			fmt.Errorf("%w: %w", domain.ErrProvisioningFailed, &domain.PanelAPIError{Op: "add", Status: 500, Msg: "secret stack trace"}),
			http.StatusBadGateway,
			"vpn panel unavailable, try again later",
		},
		{
			"storage is internal",
			domain.NewStorageError("insert config", fmt.Errorf("disk I/O error")),
			http.StatusInternalServerError,
			"internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeProvisioning{createErr: tt.err})
			rec := do(t, h, http.MethodPost, "/v1/users/9/configs", bearer(t, service.RoleFrontend), "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if msg := errorOf(t, rec); msg != tt.wantMsg {
				t.Errorf("error = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestRouter_DeleteUnknownConfig(t *testing.T) {
	h := newTestRouter(t, &fakeProvisioning{deleteErr: domain.ErrConfigNotFound})
	rec := do(t, h, http.MethodDelete, "/v1/users/9/configs/cfg-x", bearer(t, service.RoleFrontend), "")
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "config not found" {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, &fakeProvisioning{})

	if rec := do(t, h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/health: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/health/ready: %d", rec.Code)
	}

	do(t, h, http.MethodGet, "/health", "", "")
	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "vpnbot_http_requests_total") {
		t.Errorf("/metrics: status = %d", rec.Code)
	}
}
