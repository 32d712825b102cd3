package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

const configColumns = `id, user_id, inbound_id, uuid, email, port, flow, uri, is_active, created_at, expires_at`

func (s *Store) CountActiveConfigs(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM configs WHERE user_id = ? AND is_active = 1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, domain.NewStorageError("count active configs", err)
	}
	return n, nil
}

// CreateConfig inserts an active row. It does not check the quota.
func (s *Store) CreateConfig(ctx context.Context, cfg domain.NewConfig) (string, error) {
	id := "cfg-" + uuid.NewString()

	var expires sql.NullString
	if cfg.ExpiresAt != nil {
		expires = sql.NullString{String: formatTime(*cfg.ExpiresAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO configs (id, user_id, inbound_id, uuid, email, port, flow, uri, is_active, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, cfg.UserID, cfg.InboundID, cfg.ClientUUID, cfg.Email, cfg.Port, cfg.Flow, cfg.URI,
		formatTime(s.now()), expires,
	)
	if err != nil {
		return "", domain.NewStorageError("create config", err)
	}
	return id, nil
}

func (s *Store) ListActiveConfigs(ctx context.Context, userID int64) ([]domain.Config, error) {
	return s.queryConfigs(ctx, "list active configs",
		`SELECT `+configColumns+` FROM configs WHERE user_id = ? AND is_active = 1 ORDER BY created_at, rowid`, userID)
}

func (s *Store) ListAllActiveConfigs(ctx context.Context) ([]domain.Config, error) {
	return s.queryConfigs(ctx, "list all active configs",
		`SELECT `+configColumns+` FROM configs WHERE is_active = 1 ORDER BY created_at, rowid`)
}

func (s *Store) GetActiveConfig(ctx context.Context, userID int64, configID string) (*domain.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM configs WHERE id = ? AND user_id = ? AND is_active = 1`, configID, userID)
	cfg, err := scanConfig(row)
	if notFound(err) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get active config", err)
	}
	return cfg, nil
}

// DeactivateConfig is idempotent; only the first call reports true.
func (s *Store) DeactivateConfig(ctx context.Context, configID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE configs SET is_active = 0 WHERE id = ? AND is_active = 1`, configID)
	if err != nil {
		return false, domain.NewStorageError("deactivate config", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStorageError("deactivate config", err)
	}
	return n > 0, nil
}

func (s *Store) ActivePorts(ctx context.Context) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT port FROM configs WHERE is_active = 1`)
	if err != nil {
		return nil, domain.NewStorageError("active ports", err)
	}
	defer rows.Close()

	ports := make(map[int]struct{})
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, domain.NewStorageError("active ports", err)
		}
		ports[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("active ports", err)
	}
	return ports, nil
}

func (s *Store) queryConfigs(ctx context.Context, op, query string, args ...any) ([]domain.Config, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	configs := []domain.Config{}
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return configs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*domain.Config, error) {
	var (
		c       domain.Config
		created string
		expires sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.InboundID, &c.ClientUUID, &c.Email, &c.Port,
		&c.Flow, &c.URI, &c.Active, &created, &expires); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if expires.Valid {
		t, err := parseTime(expires.String)
		if err != nil {
			return nil, err
		}
		c.ExpiresAt = &t
	}
	return &c, nil
}
