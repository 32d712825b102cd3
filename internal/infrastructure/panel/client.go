// Package panel implements ports.PanelClient against a 3X-UI management
// panel. Every operation logs in first; the session cookie lives only in the
// client's cookie jar and is never reused on purpose.
package panel

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
	bodySnippetLen = 200

	remarkPrefix      = "VPN-"
	invalidResponse   = "invalid response format"
	realityDestPort   = "443"
	emailTagMin       = 1000
	emailTagRangeSize = 9000
)

// Options configures the panel endpoint and the Reality parameters written
// into every inbound.
type Options struct {
	BaseURL     string
	Username    string
	Password    string
	Timeout     time.Duration
	InsecureTLS bool

	// Domain is the suffix of generated client email tags.
	Domain        string
	ServerAddress string
	PublicKey     string
	PrivateKey    string
	ShortID       string
	ServerNames   []string
	Flow          string
}

// Client is safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client
	log  zerolog.Logger
	intn func(n int) int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. The caller is responsible
// for giving it a cookie jar.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// withRand fixes the random source (for testing).
func withRand(intn func(n int) int) ClientOption {
	return func(c *Client) { c.intn = intn }
}

func NewClient(opts Options, log zerolog.Logger, options ...ClientOption) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("panel: base url is required")
	}
	if len(opts.ServerNames) == 0 {
		return nil, fmt.Errorf("panel: at least one server name is required")
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("panel: cookie jar: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed panel certificates
	}

	c := &Client{
		opts: opts,
		http: &http.Client{Jar: jar, Timeout: opts.Timeout, Transport: transport},
		log:  log,
		intn: rand.IntN,
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// ── wire payloads ────────────────────────────────────────────────────────────

type clientSettings struct {
	Clients    []vlessClient `json:"clients"`
	Decryption string        `json:"decryption"`
}

type vlessClient struct {
	ID      string `json:"id"`
	Flow    string `json:"flow"`
	Email   string `json:"email"`
	LimitIP int    `json:"limitIp"`
	TotalGB int    `json:"totalGB"`
}

type streamSettings struct {
	Network         string          `json:"network"`
	Security        string          `json:"security"`
	RealitySettings realitySettings `json:"realitySettings"`
}

type realitySettings struct {
	Show        bool     `json:"show"`
	Dest        string   `json:"dest"`
	ServerNames []string `json:"serverNames"`
	PrivateKey  string   `json:"privateKey"`
	ShortIDs    []string `json:"shortIds"`
}

type addResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     *struct {
		ID int `json:"id"`
	} `json:"obj"`
}

type listResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     []struct {
		ID     int    `json:"id"`
		Port   int    `json:"port"`
		Remark string `json:"remark"`
	} `json:"obj"`
}

// ── operations ───────────────────────────────────────────────────────────────

func (c *Client) authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.opts.Username)
	form.Set("password", c.opts.Password)

	status, body, err := c.do(ctx, "login", http.MethodPost, "/login", form)
	if err != nil {
		c.log.Error().Err(err).Msg("panel login: connection error")
		return &domain.PanelAuthError{Err: err}
	}
	if status != http.StatusOK {
		c.log.Error().Int("status", status).Str("body", snippet(body)).Msg("panel login rejected")
		return &domain.PanelAuthError{Status: status}
	}
	return nil
}

// CreateInbound creates a single-client VLESS Reality inbound on port.
func (c *Client) CreateInbound(ctx context.Context, port int) (*domain.Inbound, error) {
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	clientID := uuid.NewString()
	email := fmt.Sprintf("user%d@%s", emailTagMin+c.intn(emailTagRangeSize), c.opts.Domain)
	sni := c.opts.ServerNames[c.intn(len(c.opts.ServerNames))]

	form, err := c.inboundForm(port, clientID, email, sni)
	if err != nil {
		return nil, &domain.PanelAPIError{Op: "add", Err: err}
	}

	status, body, err := c.do(ctx, "add", http.MethodPost, "/panel/api/inbounds/add", form)
	if err != nil {
		return nil, &domain.PanelAPIError{Op: "add", Err: err}
	}
	c.log.Debug().Int("status", status).Str("body", snippet(body)).Msg("panel add inbound response")
	if status != http.StatusOK {
		return nil, &domain.PanelAPIError{Op: "add", Status: status, Msg: snippet(body)}
	}

	var resp addResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Error().Err(err).Str("body", snippet(body)).Msg("panel add inbound: unparsable response")
		return nil, &domain.PanelAPIError{Op: "add", Status: status, Msg: invalidResponse}
	}
	if !resp.Success {
		msg := resp.Msg
		if msg == "" {
			msg = "unknown error from panel"
		}
		return nil, &domain.PanelAPIError{Op: "add", Status: status, Msg: msg}
	}
	if resp.Obj == nil || resp.Obj.ID == 0 {
		msg := resp.Msg
		if msg == "" {
			msg = "response carries no inbound id"
		}
		return nil, &domain.PanelAPIError{Op: "add", Status: status, Msg: msg}
	}

	uri := Link{
		UUID:      clientID,
		Host:      c.opts.ServerAddress,
		Port:      port,
		PublicKey: c.opts.PublicKey,
		SNI:       sni,
		ShortID:   c.opts.ShortID,
		Flow:      c.opts.Flow,
		Label:     email,
	}.String()

	qr, err := c.RenderQR(uri)
	if err != nil {
		return nil, &domain.PanelAPIError{Op: "qr", Err: err}
	}

	return &domain.Inbound{
		ID:         resp.Obj.ID,
		ClientUUID: clientID,
		Email:      email,
		Port:       port,
		Flow:       c.opts.Flow,
		SNI:        sni,
		URI:        uri,
		QRCode:     qr,
	}, nil
}

func (c *Client) inboundForm(port int, clientID, email, sni string) (url.Values, error) {
	settings, err := json.Marshal(clientSettings{
		Clients: []vlessClient{{
			ID:    clientID,
			Flow:  c.opts.Flow,
			Email: email,
		}},
		Decryption: "none",
	})
	if err != nil {
		return nil, err
	}
	stream, err := json.Marshal(streamSettings{
		Network:  "tcp",
		Security: "reality",
		RealitySettings: realitySettings{
			Dest:        sni + ":" + realityDestPort,
			ServerNames: c.opts.ServerNames,
			PrivateKey:  c.opts.PrivateKey,
			ShortIDs:    []string{c.opts.ShortID},
		},
	})
	if err != nil {
		return nil, err
	}

	remark := email
	if len(remark) > 10 {
		remark = remark[:10]
	}

	form := url.Values{}
	form.Set("up", "0")
	form.Set("down", "0")
	form.Set("total", "0")
	form.Set("remark", remarkPrefix+remark)
	form.Set("enable", "true")
	form.Set("expiryTime", "0")
	form.Set("listen", "")
	form.Set("port", strconv.Itoa(port))
	form.Set("protocol", "vless")
	form.Set("settings", string(settings))
	form.Set("streamSettings", string(stream))
	return form, nil
}

// DeleteInbound reports whether the panel answered 200. The body is ignored.
func (c *Client) DeleteInbound(ctx context.Context, inboundID int) (bool, error) {
	if err := c.authenticate(ctx); err != nil {
		return false, err
	}

	status, _, err := c.do(ctx, "del", http.MethodPost, fmt.Sprintf("/panel/api/inbounds/del/%d", inboundID), nil)
	if err != nil {
		c.log.Error().Err(err).Int("inbound_id", inboundID).Msg("panel delete inbound: connection error")
		return false, &domain.PanelAPIError{Op: "del", Err: err}
	}
	if status != http.StatusOK {
		c.log.Warn().Int("status", status).Int("inbound_id", inboundID).Msg("panel delete inbound not confirmed")
	}
	return status == http.StatusOK, nil
}

// ListInbounds returns every inbound the panel knows about.
func (c *Client) ListInbounds(ctx context.Context) ([]domain.RemoteInbound, error) {
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, "list", http.MethodGet, "/panel/api/inbounds/list", nil)
	if err != nil {
		return nil, &domain.PanelAPIError{Op: "list", Err: err}
	}
	if status != http.StatusOK {
		return nil, &domain.PanelAPIError{Op: "list", Status: status, Msg: snippet(body)}
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Error().Err(err).Str("body", snippet(body)).Msg("panel list inbounds: unparsable response")
		return nil, &domain.PanelAPIError{Op: "list", Status: status, Msg: invalidResponse}
	}
	if !resp.Success {
		return nil, &domain.PanelAPIError{Op: "list", Status: status, Msg: resp.Msg}
	}

	out := make([]domain.RemoteInbound, 0, len(resp.Obj))
	for _, in := range resp.Obj {
		out = append(out, domain.RemoteInbound{ID: in.ID, Port: in.Port, Remark: in.Remark})
	}
	return out, nil
}

// do sends one request and returns the status and at most maxBodyBytes of
// the body. Transport failures are the only errors.
func (c *Client) do(ctx context.Context, op, method, path string, form url.Values) (int, []byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.PanelRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	outcome := "ok"
	if err != nil || resp.StatusCode != http.StatusOK {
		outcome = "error"
	}
	metrics.PanelRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLen {
		return string(body[:bodySnippetLen])
	}
	return string(body)
}
