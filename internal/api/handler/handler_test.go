package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
)

type stubProvisioning struct {
	user    *domain.User
	created *ports.ProvisionedConfig
	configs []domain.Config
	deleted *ports.DeleteResult
	stats   *ports.StatsResult
	err     error

	gotUserID   int64
	gotConfigID string
	gotHandle   string
}

func (s *stubProvisioning) EnsureUser(_ context.Context, externalID int64, handle, _ string) (*domain.User, error) {
	s.gotUserID, s.gotHandle = externalID, handle
	return s.user, s.err
}

func (s *stubProvisioning) CreateConfig(_ context.Context, userID int64) (*ports.ProvisionedConfig, error) {
	s.gotUserID = userID
	return s.created, s.err
}

func (s *stubProvisioning) DeleteConfig(_ context.Context, userID int64, configID string) (*ports.DeleteResult, error) {
	s.gotUserID, s.gotConfigID = userID, configID
	return s.deleted, s.err
}

func (s *stubProvisioning) ListConfigs(_ context.Context, userID int64) ([]domain.Config, error) {
	s.gotUserID = userID
	return s.configs, s.err
}

func (s *stubProvisioning) GetConfig(_ context.Context, userID int64, configID string) (*ports.ProvisionedConfig, error) {
	s.gotUserID, s.gotConfigID = userID, configID
	return s.created, s.err
}

func (s *stubProvisioning) Stats(context.Context) (*ports.StatsResult, error) {
	return s.stats, s.err
}

type stubReconciler struct {
	report *ports.ReconcileReport
	err    error
}

func (s *stubReconciler) Run(context.Context) (*ports.ReconcileReport, error) {
	return s.report, s.err
}

type stubAuth struct {
	err error
}

func (s *stubAuth) IssueToken(_ context.Context, key string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return "tok-" + key, "frontend", nil
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withParams(c echo.Context, kv ...string) {
	var names, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestConfigHandler_Create(t *testing.T) {
	expires := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubProvisioning{created: &ports.ProvisionedConfig{
		ConfigID:  "cfg-1",
		Port:      31000,
		URI:       "vless://u@h:31000?sni=a.com#x",
		QRCode:    []byte{0x89, 'P', 'N', 'G'},
		SNI:       "a.com",
		ExpiresAt: &expires,
		Remaining: 9,
	}}
	h := NewConfigHandler(svc)

	c, rec := newContext(http.MethodPost, "/v1/users/42/configs", "")
	withParams(c, "user_id", "42")

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if svc.gotUserID != 42 {
		t.Errorf("service called with user %d", svc.gotUserID)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/v1/users/42/configs/cfg-1" {
		t.Errorf("Location = %q", loc)
	}

	body := decode[provisionedConfigResponse](t, rec)
	png, err := base64.StdEncoding.DecodeString(body.QRCodePNG)
	if err != nil || string(png) != "\x89PNG" {
		t.Errorf("qr_code_png = %q", body.QRCodePNG)
	}
	if body.Remaining != 9 || body.SNI != "a.com" || body.ExpiresAt == nil {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestConfigHandler_CreateRejectsBadUserID(t *testing.T) {
	h := NewConfigHandler(&stubProvisioning{})
	for _, id := range []string{"abc", "0", "-3"} {
		c, _ := newContext(http.MethodPost, "/", "")
		withParams(c, "user_id", id)
		if code := httpCode(t, h.Create(c)); code != http.StatusBadRequest {
			t.Errorf("user_id %q: code = %d", id, code)
		}
	}
}

func TestConfigHandler_CreatePassesDomainErrors(t *testing.T) {
	h := NewConfigHandler(&stubProvisioning{err: domain.ErrQuotaExceeded})
	c, rec := newContext(http.MethodPost, "/", "")
	withParams(c, "user_id", "7")

	err := h.Create(c)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if rec.Body.Len() != 0 {
		t.Error("handler must leave rendering to the error handler")
	}
}

func TestConfigHandler_List(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubProvisioning{configs: []domain.Config{
		{ID: "cfg-a", Port: 30001, CreatedAt: now},
		{ID: "cfg-b", Port: 30002, CreatedAt: now},
	}}
	c, rec := newContext(http.MethodGet, "/", "")
	withParams(c, "user_id", "5")

	if err := NewConfigHandler(svc).List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	body := decode[listConfigsResponse](t, rec)
	if body.Count != 2 || body.Configs[0].ConfigID != "cfg-a" || body.Configs[1].Links.Self != "/v1/users/5/configs/cfg-b" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestConfigHandler_ListEmptyIsArray(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	withParams(c, "user_id", "5")

	if err := NewConfigHandler(&stubProvisioning{}).List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"configs":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestConfigHandler_Get(t *testing.T) {
	svc := &stubProvisioning{created: &ports.ProvisionedConfig{ConfigID: "cfg-9", QRCode: []byte("png")}}
	c, rec := newContext(http.MethodGet, "/", "")
	withParams(c, "user_id", "3", "config_id", "cfg-9")

	if err := NewConfigHandler(svc).Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if svc.gotUserID != 3 || svc.gotConfigID != "cfg-9" {
		t.Errorf("service called with %d/%s", svc.gotUserID, svc.gotConfigID)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestConfigHandler_Delete(t *testing.T) {
	svc := &stubProvisioning{deleted: &ports.DeleteResult{ConfigID: "cfg-9", Remaining: 4}}
	c, rec := newContext(http.MethodDelete, "/", "")
	withParams(c, "user_id", "3", "config_id", "cfg-9")

	if err := NewConfigHandler(svc).Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	body := decode[deleteConfigResponse](t, rec)
	if body.ConfigID != "cfg-9" || body.Remaining != 4 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestConfigHandler_DeleteRejectsLongConfigID(t *testing.T) {
	c, _ := newContext(http.MethodDelete, "/", "")
	withParams(c, "user_id", "3", "config_id", strings.Repeat("x", 65))

	if code := httpCode(t, NewConfigHandler(&stubProvisioning{}).Delete(c)); code != http.StatusBadRequest {
		t.Errorf("code = %d", code)
	}
}

func TestUserHandler_Ensure(t *testing.T) {
	svc := &stubProvisioning{user: &domain.User{ExternalID: 77, Handle: "neo", DisplayName: "Neo", IsAdmin: true}}
	c, rec := newContext(http.MethodPost, "/v1/users", `{"external_id":77,"handle":"neo","display_name":"Neo"}`)

	if err := NewUserHandler(svc).Ensure(c); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if svc.gotUserID != 77 || svc.gotHandle != "neo" {
		t.Errorf("service called with %d/%s", svc.gotUserID, svc.gotHandle)
	}
	body := decode[userResponse](t, rec)
	if !body.IsAdmin || body.DisplayName != "Neo" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestUserHandler_EnsureValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing id", `{"handle":"neo"}`, "external_id is required"},
		{"negative id", `{"external_id":-1}`, "external_id must be greater than 0"},
		{"malformed", `{"external_id":`, "invalid payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/v1/users", tt.body)
			err := NewUserHandler(&stubProvisioning{}).Ensure(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("err = %v, want 400", err)
			}
			if msg, _ := he.Message.(string); !strings.Contains(msg, tt.want) {
				t.Errorf("message = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestAuthHandler_Token(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/auth/token", `{"key":"k1"}`)
	if err := NewAuthHandler(&stubAuth{}).Token(c); err != nil {
		t.Fatalf("Token: %v", err)
	}
	body := decode[tokenResponse](t, rec)
	if body.Token != "tok-k1" || body.Role != "frontend" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAuthHandler_TokenErrors(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/auth/token", `{}`)
	if code := httpCode(t, NewAuthHandler(&stubAuth{}).Token(c)); code != http.StatusBadRequest {
		t.Errorf("empty key: code = %d", code)
	}

	c, _ = newContext(http.MethodPost, "/auth/token", `{"key":"bad"}`)
	err := NewAuthHandler(&stubAuth{err: domain.ErrInvalidCredentials}).Token(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("err = %v", err)
	}
}

func TestAdminHandler_Stats(t *testing.T) {
	svc := &stubProvisioning{stats: &ports.StatsResult{
		Overview:      domain.Overview{TotalUsers: 12, ActiveConfigs: 30},
		Registrations: []domain.DailyStat{{Date: "2026-10-14", NewUsers: 3}},
	}}
	c, rec := newContext(http.MethodGet, "/", "")

	if err := NewAdminHandler(svc, &stubReconciler{}).Stats(c); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	body := decode[statsResponse](t, rec)
	if body.TotalUsers != 12 || body.ActiveConfigs != 30 || len(body.Registrations) != 1 || body.Registrations[0].NewUsers != 3 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAdminHandler_Reconcile(t *testing.T) {
	rec := &stubReconciler{report: &ports.ReconcileReport{
		RemoteInbounds: 3,
		OrphansFound:   []int{9},
		OrphansDeleted: []int{},
		MissingRemote:  []string{"cfg-x"},
		Expired:        []string{},
	}}
	c, out := newContext(http.MethodPost, "/", "")

	if err := NewAdminHandler(&stubProvisioning{}, rec).Reconcile(c); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	body := decode[reconcileResponse](t, out)
	if body.RemoteInbounds != 3 || len(body.OrphansFound) != 1 || body.MissingRemote[0] != "cfg-x" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHealth_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	c, rec := newContext(http.MethodGet, "/health/ready", "")
	if err := NewHealthDependenciesHandler(map[string]Pinger{"store": ok}).Readiness(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("healthy: status = %d", rec.Code)
	}

	c, rec = newContext(http.MethodGet, "/health/ready", "")
	if err := NewHealthDependenciesHandler(map[string]Pinger{"store": ok, "redis": down}).Readiness(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded: status = %d", rec.Code)
	}
	body := decode[readinessResponse](t, rec)
	if body.Status != "degraded" || body.Dependencies["redis"].Error != "connection refused" || body.Dependencies["store"].Status != "ok" {
		t.Errorf("unexpected body: %+v", body)
	}
}
