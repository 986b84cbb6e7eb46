// Package memory provides in-memory store implementations for development and tests.
package memory

import "github.com/telodox/portal/internal/store"

// NewStores wires a fresh set of in-memory stores.
func NewStores() *store.Stores {
	return &store.Stores{
		Tenants:      NewTenantStore(),
		Users:        NewUserStore(),
		Templates:    NewFormTemplateStore(),
		Applications: NewApplicationStore(),
		Submissions:  NewSubmissionStore(),
		Waitlist:     NewWaitlistStore(),
	}
}
