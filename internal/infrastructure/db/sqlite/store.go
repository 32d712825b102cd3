// Package sqlite is the default ports.ConfigStore, backed by a single SQLite
// file through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

const (
	defaultBusyTimeout = 5 * time.Second
	openTimeout        = 5 * time.Second

	// timeLayout sorts lexically and keeps the calendar date in the first
	// ten characters.
	timeLayout = "2006-01-02 15:04:05.000000"
)

// Options describes parameters for opening the store.
type Options struct {
	Path string
	// AdminIDs are external ids flagged as admin when first registered.
	AdminIDs []int64
}

// Store implements ports.ConfigStore.
type Store struct {
	db     *sql.DB
	path   string
	admins map[int64]struct{}
	now    func() time.Time
}

// Open creates the database file if needed and applies the schema.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", opts.Path, err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}

	return &Store{
		db:     db,
		path:   opts.Path,
		admins: admins,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return domain.NewStorageError("ping", s.db.PingContext(ctx))
}

// Close finalises the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
