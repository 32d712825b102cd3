package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var (
		deleteOrphans bool
		confirmAfter  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a reconciliation pass and print the report as JSON",
		Long: "Run a reconciliation pass and print the report as JSON. Orphan inbounds are only " +
			"deleted once a second pass, run after --confirm-after, still finds them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.dispatcher != nil {
				a.dispatcher.Start(ctx)
			}
			deleting := a.cfg.Reconcile.DeleteOrphans
			if cmd.Flags().Changed("delete-orphans") {
				deleting = deleteOrphans
				a.reconciler.SetDeleteOrphans(deleting)
			}

			report, err := a.reconciler.Run(ctx)
			if err != nil {
				return err
			}
			if deleting && len(report.OrphansFound) > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(confirmAfter):
				}
				if report, err = a.reconciler.Run(ctx); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&deleteOrphans, "delete-orphans", false, "delete orphan inbounds on the panel (overrides RECONCILE_DELETE_ORPHANS)")
	cmd.Flags().DurationVar(&confirmAfter, "confirm-after", 10*time.Second, "wait before the confirming pass when deleting orphans")
	return cmd
}
