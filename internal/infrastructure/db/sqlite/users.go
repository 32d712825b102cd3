package sqlite

import (
	"context"

	"github.com/vlessbot/provisioner/internal/core/domain"
	"github.com/vlessbot/provisioner/internal/core/ports"
)

func (s *Store) GetUser(ctx context.Context, externalID int64) (*domain.User, error) {
	var (
		u       domain.User
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT external_id, handle, display_name, is_admin, created_at FROM users WHERE external_id = ?`,
		externalID,
	).Scan(&u.ExternalID, &u.Handle, &u.DisplayName, &u.IsAdmin, &created)
	if notFound(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get user", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, domain.NewStorageError("get user", err)
	}
	return &u, nil
}

// AddUser never upserts.
func (s *Store) AddUser(ctx context.Context, externalID int64, handle, displayName string) (*domain.User, error) {
	_, isAdmin := s.admins[externalID]
	u := &domain.User{
		ExternalID:  externalID,
		Handle:      handle,
		DisplayName: displayName,
		IsAdmin:     isAdmin,
		CreatedAt:   s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (external_id, handle, display_name, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ExternalID, u.Handle, u.DisplayName, u.IsAdmin, formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrUserExists
	}
	if err != nil {
		return nil, domain.NewStorageError("add user", err)
	}
	return u, nil
}

// GetStats counts registrations per calendar day (UTC), newest day first.
func (s *Store) GetStats(ctx context.Context, windowDays int) ([]domain.DailyStat, error) {
	if windowDays <= 0 || windowDays > ports.StatsWindowLimit {
		windowDays = ports.StatsWindowLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		FROM users
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?`, windowDays)
	if err != nil {
		return nil, domain.NewStorageError("get stats", err)
	}
	defer rows.Close()

	stats := []domain.DailyStat{}
	for rows.Next() {
		var st domain.DailyStat
		if err := rows.Scan(&st.Date, &st.NewUsers); err != nil {
			return nil, domain.NewStorageError("get stats", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("get stats", err)
	}
	return stats, nil
}

func (s *Store) Overview(ctx context.Context) (domain.Overview, error) {
	var o domain.Overview
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM configs WHERE is_active = 1)`,
	).Scan(&o.TotalUsers, &o.ActiveConfigs)
	if err != nil {
		return domain.Overview{}, domain.NewStorageError("overview", err)
	}
	return o, nil
}
