package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

const backupTimeLayout = "20060102_150405"

// Backup writes a consistent copy of the database into dir and returns its
// path. The live database stays writable while the copy is taken.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("sqlite: backup dir: %w", err)
	}

	dest := filepath.Join(dir, fmt.Sprintf("vpnbot_backup_%s.db", s.now().Format(backupTimeLayout)))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("sqlite: backup %s already exists", dest)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return "", domain.NewStorageError("backup", err)
	}
	return dest, nil
}
