package handler

import (
	"encoding/base64"
	"fmt"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
)

// --- Service output → Response ---

func configLink(userID int64, configID string) configLinks {
	return configLinks{Self: fmt.Sprintf("/v1/users/%d/configs/%s", userID, configID)}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ExternalID:  u.ExternalID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

func toProvisionedResponse(userID int64, p *ports.ProvisionedConfig) provisionedConfigResponse {
	return provisionedConfigResponse{
		ConfigID:      p.ConfigID,
		ClientUUID:    p.ClientUUID,
		Email:         p.Email,
		Port:          p.Port,
		Flow:          p.Flow,
		URI:           p.URI,
		QRCodePNG:     base64.StdEncoding.EncodeToString(p.QRCode),
		ServerAddress: p.ServerAddress,
		PublicKey:     p.PublicKey,
		SNI:           p.SNI,
		ShortID:       p.ShortID,
		ExpiresAt:     p.ExpiresAt,
		Remaining:     p.Remaining,
		Links:         configLink(userID, p.ConfigID),
	}
}

func toListResponse(userID int64, configs []domain.Config) listConfigsResponse {
	out := make([]configSummary, 0, len(configs))
	for _, c := range configs {
		out = append(out, configSummary{
			ConfigID:  c.ID,
			Email:     c.Email,
			Port:      c.Port,
			Flow:      c.Flow,
			URI:       c.URI,
			CreatedAt: c.CreatedAt,
			ExpiresAt: c.ExpiresAt,
			Links:     configLink(userID, c.ID),
		})
	}
	return listConfigsResponse{Configs: out, Count: len(out)}
}

func toStatsResponse(s *ports.StatsResult) statsResponse {
	regs := make([]dailyStat, 0, len(s.Registrations))
	for _, r := range s.Registrations {
		regs = append(regs, dailyStat{Date: r.Date, NewUsers: r.NewUsers})
	}
	return statsResponse{
		TotalUsers:    s.Overview.TotalUsers,
		ActiveConfigs: s.Overview.ActiveConfigs,
		Registrations: regs,
	}
}

func toReconcileResponse(r *ports.ReconcileReport) reconcileResponse {
	return reconcileResponse{
		RemoteInbounds: r.RemoteInbounds,
		LocalActive:    r.LocalActive,
		OrphansFound:   r.OrphansFound,
		OrphansDeleted: r.OrphansDeleted,
		MissingRemote:  r.MissingRemote,
		Expired:        r.Expired,
	}
}
