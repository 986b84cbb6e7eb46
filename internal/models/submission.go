package models

import (
	"time"

	"github.com/google/uuid"
)

// FormSubmission is one filled instance of a template. It is mutated by auto-saves
// until SubmittedAt is stamped, after which it is final.
type FormSubmission struct {
	SubmissionID   uuid.UUID      `json:"id"`
	FormTemplateID uuid.UUID      `json:"form_template_id"`
	ApplicationID  *uuid.UUID     `json:"application_id,omitempty"`
	UserID         uuid.UUID      `json:"user_id"`
	FormData       map[string]any `json:"form_data"`
	SubmittedAt    *time.Time     `json:"submitted_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsSubmitted reports whether the submission has been finalized.
func (s *FormSubmission) IsSubmitted() bool {
	return s.SubmittedAt != nil
}
