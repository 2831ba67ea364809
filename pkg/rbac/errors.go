package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden indicates the subject may not perform the action
	ErrForbidden = errors.New("forbidden")

	// ErrUnknownAction indicates the action is not declared in the action table
	ErrUnknownAction = errors.New("unknown action")
)

// AuthzError describes a denied authorization
type AuthzError struct {
	Err     error
	Action  Action
	Subject Subject
	Reason  string
}

// Error returns the error message
func (e *AuthzError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s denied for user %d: %s", e.Action, e.Subject.UserID, e.Reason)
	}
	return fmt.Sprintf("%s denied for user %d", e.Action, e.Subject.UserID)
}

// Unwrap returns the underlying error
func (e *AuthzError) Unwrap() error {
	return e.Err
}

// NewForbiddenError creates an AuthzError wrapping ErrForbidden
func NewForbiddenError(subject Subject, action Action, reason string) *AuthzError {
	return &AuthzError{
		Err:     ErrForbidden,
		Action:  action,
		Subject: subject,
		Reason:  reason,
	}
}
