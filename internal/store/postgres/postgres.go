// Package postgres implements the store interfaces on PostgreSQL using pgx.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telodox/portal/internal/store"
)

// NewStores wires every store onto a shared pool.
func NewStores(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		Tenants:      NewTenantStore(pool),
		Users:        NewUserStore(pool),
		Templates:    NewFormTemplateStore(pool),
		Applications: NewApplicationStore(pool),
		Submissions:  NewSubmissionStore(pool),
		Waitlist:     NewWaitlistStore(pool),
	}
}
