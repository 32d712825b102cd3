package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vlessbot/provisioner/internal/infrastructure/db/sqlite"
)

func newBackupCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the SQLite database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "sqlite" {
				return errors.New("backup is only available for the sqlite store, use mongodump for mongo")
			}

			st, err := sqlite.Open(sqlite.Options{Path: cfg.Store.SQLitePath, AdminIDs: cfg.Provisioning.AdminIDs})
			if err != nil {
				return err
			}
			defer st.Close()

			path, err := st.Backup(ctx, dir)
			if err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("backup written")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory for the backup file")
	return cmd
}
