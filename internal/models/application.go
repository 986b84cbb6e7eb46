package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStageTransition = errors.New("invalid stage transition")
	ErrRejectionReasonMissing = errors.New("rejection reason is required")
	ErrStageNotFound          = errors.New("workflow stage not found")
)

// ApplicationStatus is the overall state of a carrier onboarding case.
type ApplicationStatus string

const (
	ApplicationDraft           ApplicationStatus = "draft"
	ApplicationInProgress      ApplicationStatus = "in_progress"
	ApplicationPendingApproval ApplicationStatus = "pending_approval"
	ApplicationApproved        ApplicationStatus = "approved"
	ApplicationRejected        ApplicationStatus = "rejected"
	ApplicationCompleted       ApplicationStatus = "completed"
)

// StageStatus is the state of one workflow stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageApproved   StageStatus = "approved"
	StageRejected   StageStatus = "rejected"
)

// stageTransitions lists the legal next states of each stage state.
var stageTransitions = map[StageStatus][]StageStatus{
	StagePending:    {StageInProgress},
	StageInProgress: {StageCompleted},
	StageCompleted:  {StageApproved, StageRejected},
}

// CanTransition reports whether a stage may move from s to next.
func (s StageStatus) CanTransition(next StageStatus) bool {
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s StageStatus) Terminal() bool {
	return s == StageApproved || s == StageRejected
}

// WorkflowStage is one step of an application's onboarding sequence.
type WorkflowStage struct {
	FormType        FormType    `json:"form_type"`
	Status          StageStatus `json:"status"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID  `json:"approved_by,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
}

// Start moves a pending stage to in_progress. Stages already past pending are left alone.
func (w *WorkflowStage) Start(at time.Time) {
	if w.Status != StagePending {
		return
	}
	w.Status = StageInProgress
	w.StartedAt = &at
}

// Complete walks the stage forward to completed, starting it first when needed.
func (w *WorkflowStage) Complete(at time.Time) error {
	w.Start(at)
	if w.Status == StageCompleted {
		return nil
	}
	if !w.Status.CanTransition(StageCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, w.Status, StageCompleted)
	}
	w.Status = StageCompleted
	w.CompletedAt = &at
	return nil
}

// Approve moves a completed stage to approved.
func (w *WorkflowStage) Approve(by uuid.UUID, at time.Time) error {
	if !w.Status.CanTransition(StageApproved) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, w.Status, StageApproved)
	}
	w.Status = StageApproved
	w.ApprovedAt = &at
	w.ApprovedBy = &by
	return nil
}

// Reject moves a completed stage to rejected. A reason is mandatory.
func (w *WorkflowStage) Reject(reason string) error {
	if reason == "" {
		return ErrRejectionReasonMissing
	}
	if !w.Status.CanTransition(StageRejected) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, w.Status, StageRejected)
	}
	w.Status = StageRejected
	w.RejectionReason = reason
	return nil
}

// Application is one carrier's onboarding case owned by a tenant.
type Application struct {
	ApplicationID uuid.UUID         `json:"id"`
	TenantID      uuid.UUID         `json:"tenant_id"`
	CarrierName   string            `json:"carrier_name"`
	CarrierEmail  string            `json:"carrier_email"`
	UserID        *uuid.UUID        `json:"user_id,omitempty"`
	Status        ApplicationStatus `json:"status"`
	CurrentStage  FormType          `json:"current_stage"`
	Workflow      []WorkflowStage   `json:"workflow"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// Stage returns the workflow entry for a form type.
func (a *Application) Stage(formType FormType) (*WorkflowStage, bool) {
	for i := range a.Workflow {
		if a.Workflow[i].FormType == formType {
			return &a.Workflow[i], true
		}
	}
	return nil, false
}

// OwnedBy reports whether the application belongs to the given user.
func (a *Application) OwnedBy(userID uuid.UUID) bool {
	return a != nil && a.UserID != nil && *a.UserID == userID
}
