package ports

import (
	"context"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

// PanelClient talks to the remote VPN management panel. Every call logs in
// first; no session is reused between calls.
type PanelClient interface {
	// CreateInbound fails with *domain.PanelAuthError or *domain.PanelAPIError.
	CreateInbound(ctx context.Context, port int) (*domain.Inbound, error)
	// DeleteInbound reports whether the panel answered with HTTP 200.
	DeleteInbound(ctx context.Context, inboundID int) (bool, error)
	ListInbounds(ctx context.Context) ([]domain.RemoteInbound, error)
	// RenderQR encodes a stored connection URI as a PNG.
	RenderQR(uri string) ([]byte, error)
}
