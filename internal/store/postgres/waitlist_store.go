package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// WaitlistStore implements store.WaitlistStore using PostgreSQL.
type WaitlistStore struct {
	pool *pgxpool.Pool
}

var _ store.WaitlistStore = (*WaitlistStore)(nil)

func NewWaitlistStore(pool *pgxpool.Pool) *WaitlistStore {
	return &WaitlistStore{pool: pool}
}

func (s *WaitlistStore) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	entry.Email = strings.ToLower(entry.Email)

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO waitlist_entries (
			id, email, source, referrer, metadata, ip_address, user_agent, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.EntryID,
		entry.Email,
		entry.Source,
		entry.Referrer,
		metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.Status,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", mapPostgresError(err))
	}
	return nil
}

func (s *WaitlistStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist_entries WHERE status = $1`, models.WaitlistStatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist entries: %w", mapPostgresError(err))
	}
	return count, nil
}
