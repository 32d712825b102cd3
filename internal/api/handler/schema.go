package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type tokenRequest struct {
	Key string `json:"key" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type ensureUserRequest struct {
	ExternalID  int64  `json:"external_id"  validate:"required,gt=0"`
	Handle      string `json:"handle"       validate:"max=64"`
	DisplayName string `json:"display_name" validate:"max=256"`
}

type userResponse struct {
	ExternalID  int64     `json:"external_id"`
	Handle      string    `json:"handle,omitempty"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

type configLinks struct {
	Self string `json:"self"`
}

// provisionedConfigResponse is returned on creation and on the detail view.
type provisionedConfigResponse struct {
	ConfigID      string      `json:"config_id"`
	ClientUUID    string      `json:"client_uuid"`
	Email         string      `json:"email"`
	Port          int         `json:"port"`
	Flow          string      `json:"flow"`
	URI           string      `json:"uri"`
	QRCodePNG     string      `json:"qr_code_png"` // base64
	ServerAddress string      `json:"server_address"`
	PublicKey     string      `json:"public_key"`
	SNI           string      `json:"sni"`
	ShortID       string      `json:"short_id"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	Remaining     int         `json:"remaining"`
	Links         configLinks `json:"_links"`
}

type configSummary struct {
	ConfigID  string      `json:"config_id"`
	Email     string      `json:"email"`
	Port      int         `json:"port"`
	Flow      string      `json:"flow"`
	URI       string      `json:"uri"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	Links     configLinks `json:"_links"`
}

type listConfigsResponse struct {
	Configs []configSummary `json:"configs"`
	Count   int             `json:"count"`
}

type deleteConfigResponse struct {
	ConfigID  string `json:"config_id"`
	Remaining int    `json:"remaining"`
}

type dailyStat struct {
	Date     string `json:"date"`
	NewUsers int    `json:"new_users"`
}

type statsResponse struct {
	TotalUsers    int         `json:"total_users"`
	ActiveConfigs int         `json:"active_configs"`
	Registrations []dailyStat `json:"registrations"`
}

type reconcileResponse struct {
	RemoteInbounds int      `json:"remote_inbounds"`
	LocalActive    int      `json:"local_active"`
	OrphansFound   []int    `json:"orphans_found"`
	OrphansDeleted []int    `json:"orphans_deleted"`
	MissingRemote  []string `json:"missing_remote"`
	Expired        []string `json:"expired"`
}
