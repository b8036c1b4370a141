package models

import "fmt"

// ValidationError covers locally-detectable bad input: invalid or expired
// invite codes, duplicate joins, malformed stored documents. Terminal for
// the call, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports a missing entity by resource kind and id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// RemoteIOError wraps a failed store or notification-dispatch call. Surfaced
// to the caller with no automatic retry.
type RemoteIOError struct {
	Op  string
	Err error
}

func (e *RemoteIOError) Error() string {
	return fmt.Sprintf("remote operation %q failed: %v", e.Op, e.Err)
}

func (e *RemoteIOError) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidInviteCode = &ValidationError{Reason: "invalid invite code"}
	ErrInviteExpired     = &ValidationError{Reason: "invite code has expired"}
	ErrAlreadyMember     = &ValidationError{Reason: "user is already a member of this group"}
	ErrSelfFindRequest   = &ValidationError{Reason: "cannot create a find request targeting yourself"}
	ErrNotPending        = &ValidationError{Reason: "find request is not pending"}
)
