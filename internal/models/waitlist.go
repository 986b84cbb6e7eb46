package models

import (
	"time"

	"github.com/google/uuid"
)

const WaitlistStatusActive = "active"

// WaitlistEntry is an early-access signup.
type WaitlistEntry struct {
	EntryID   uuid.UUID      `json:"id"`
	Email     string         `json:"email"` // lowercase, unique
	Source    string         `json:"source"`
	Referrer  *string        `json:"referrer,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
