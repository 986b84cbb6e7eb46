// Package store defines persistence contracts for the onboarding portal. Implementations
// live in the memory and postgres subpackages and return the sentinel errors below.
package store

import "errors"

// Sentinel errors for common error conditions
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrSubdomainTaken      = errors.New("subdomain already taken")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrTemplateNotFound    = errors.New("form template not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrSubmissionFinal     = errors.New("submission already submitted")
	ErrWaitlistEmailExists = errors.New("email already on waitlist")
	ErrConstraintViolation = errors.New("constraint violation")
)

// Stores groups every store the services depend on.
type Stores struct {
	Tenants      TenantStore
	Users        UserStore
	Templates    FormTemplateStore
	Applications ApplicationStore
	Submissions  SubmissionStore
	Waitlist     WaitlistStore
}
