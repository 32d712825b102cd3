package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
	"github.com/vlessbot/provisioner/internal/pkg/metrics"
)

// RemarkPrefix marks inbounds created by this service on the panel.
const RemarkPrefix = "VPN-"

const listingSkew = time.Second

// Reconciler aligns local config rows with the panel's live inbounds:
//   - panel inbounds carrying RemarkPrefix with no active local row are
//     orphans (left behind by a crash between remote create and local insert);
//     one is deleted only when it was already an orphan in the previous pass;
//   - active rows whose inbound vanished from the panel are deactivated;
//   - active rows past their expiry are revoked on the panel, then deactivated.
type Reconciler struct {
	store         ports.ConfigStore
	panel         ports.PanelClient
	serial        Serializer
	deleteOrphans bool
	log           zerolog.Logger
	now           func() time.Time

	// mu keeps passes from overlapping and guards suspects.
	mu sync.Mutex
	// suspects holds the orphans reported by the previous pass.
	suspects map[int]struct{}
}

func NewReconciler(store ports.ConfigStore, panel ports.PanelClient, serial Serializer, deleteOrphans bool, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:         store,
		panel:         panel,
		serial:        serial,
		deleteOrphans: deleteOrphans,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
		suspects:      map[int]struct{}{},
	}
}

// SetDeleteOrphans overrides whether orphan inbounds are removed or only
// reported. It takes effect from the next pass.
func (r *Reconciler) SetDeleteOrphans(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteOrphans = v
}

// Run performs one reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) (*ports.ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Remote first: an inbound created after this call cannot be mistaken for
	// an orphan.
	listedAt := r.now()
	remote, err := r.panel.ListInbounds(ctx)
	if err != nil {
		return nil, err
	}
	local, err := r.store.ListAllActiveConfigs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ports.ReconcileReport{
		RemoteInbounds: len(remote),
		LocalActive:    len(local),
		OrphansFound:   []int{},
		OrphansDeleted: []int{},
		MissingRemote:  []string{},
		Expired:        []string{},
	}

	byInbound := make(map[int]struct{}, len(local))
	for _, c := range local {
		byInbound[c.InboundID] = struct{}{}
	}
	live := make(map[int]struct{}, len(remote))
	for _, in := range remote {
		live[in.ID] = struct{}{}
		if _, ok := byInbound[in.ID]; ok || !strings.HasPrefix(in.Remark, RemarkPrefix) {
			continue
		}
		report.OrphansFound = append(report.OrphansFound, in.ID)
	}

	if len(report.OrphansFound) > 0 && r.deleteOrphans {
		r.deleteOrphanInbounds(ctx, report)
	}
	r.rememberSuspects(report)

	now := r.now()
	for _, c := range local {
		if _, ok := live[c.InboundID]; !ok {
			// Rows newer than the remote listing may point at inbounds the
			// listing could not contain yet.
			if c.CreatedAt.After(listedAt.Add(-listingSkew)) {
				continue
			}
			r.deactivateMissing(ctx, c, report)
			continue
		}
		if c.Expired(now) {
			r.revokeExpired(ctx, c, report)
		}
	}

	r.log.Info().
		Int("remote", report.RemoteInbounds).
		Int("local", report.LocalActive).
		Int("orphans", len(report.OrphansFound)).
		Int("orphans_deleted", len(report.OrphansDeleted)).
		Int("missing_remote", len(report.MissingRemote)).
		Int("expired", len(report.Expired)).
		Msg("reconciliation finished")

	return report, nil
}

func (r *Reconciler) deleteOrphanInbounds(ctx context.Context, report *ports.ReconcileReport) {
	// Re-read local rows: a create that was in flight during the first read
	// may have committed since.
	fresh, err := r.store.ListAllActiveConfigs(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("reconcile: reload local configs, skipping orphan deletion")
		return
	}
	known := make(map[int]struct{}, len(fresh))
	for _, c := range fresh {
		known[c.InboundID] = struct{}{}
	}

	for _, id := range report.OrphansFound {
		metrics.ReconcileActionsTotal.WithLabelValues("orphan_found").Inc()
		if _, ok := known[id]; ok {
			continue
		}
		// An inbound seen for the first time may belong to a create whose
		// row is not committed yet.
		if _, seen := r.suspects[id]; !seen {
			continue
		}
		ok, err := r.panel.DeleteInbound(ctx, id)
		if err != nil || !ok {
			r.log.Warn().Err(err).Int("inbound_id", id).Msg("reconcile: delete orphan inbound failed")
			continue
		}
		metrics.ReconcileActionsTotal.WithLabelValues("orphan_deleted").Inc()
		report.OrphansDeleted = append(report.OrphansDeleted, id)
		r.log.Info().Int("inbound_id", id).Msg("reconcile: orphan inbound deleted")
	}
}

// rememberSuspects keeps the orphans still on the panel for the next pass.
func (r *Reconciler) rememberSuspects(report *ports.ReconcileReport) {
	deleted := make(map[int]struct{}, len(report.OrphansDeleted))
	for _, id := range report.OrphansDeleted {
		deleted[id] = struct{}{}
	}
	next := make(map[int]struct{}, len(report.OrphansFound))
	for _, id := range report.OrphansFound {
		if _, ok := deleted[id]; !ok {
			next[id] = struct{}{}
		}
	}
	r.suspects = next
}

// deactivateMissing switches off a row whose inbound is already gone.
func (r *Reconciler) deactivateMissing(ctx context.Context, c domain.Config, report *ports.ReconcileReport) {
	err := r.serial.Do(ctx, c.UserID, func(ctx context.Context) error {
		_, err := r.store.DeactivateConfig(ctx, c.ID)
		return err
	})
	if err != nil {
		r.log.Warn().Err(err).Str("config_id", c.ID).Msg("reconcile: deactivate missing config failed")
		return
	}
	metrics.ReconcileActionsTotal.WithLabelValues("missing_remote").Inc()
	report.MissingRemote = append(report.MissingRemote, c.ID)
	r.log.Info().Str("config_id", c.ID).Int("inbound_id", c.InboundID).Msg("reconcile: inbound absent, config deactivated")
}

// revokeExpired follows the normal deletion order: panel first, then row.
func (r *Reconciler) revokeExpired(ctx context.Context, c domain.Config, report *ports.ReconcileReport) {
	err := r.serial.Do(ctx, c.UserID, func(ctx context.Context) error {
		ok, err := r.panel.DeleteInbound(ctx, c.InboundID)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.PanelAPIError{Op: "delete", Msg: "inbound not deleted"}
		}
		pctx, cancel := persistContext(ctx)
		defer cancel()
		_, err = r.store.DeactivateConfig(pctx, c.ID)
		return err
	})
	if err != nil {
		r.log.Warn().Err(err).Str("config_id", c.ID).Msg("reconcile: revoke expired config failed")
		return
	}
	metrics.ReconcileActionsTotal.WithLabelValues("expired").Inc()
	report.Expired = append(report.Expired, c.ID)
	r.log.Info().Str("config_id", c.ID).Msg("reconcile: expired config revoked")
}

// Loop runs a pass every interval until ctx is cancelled.
func (r *Reconciler) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.log.Error().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}
