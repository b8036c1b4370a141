package models

import "time"

const (
	FindStatusPending  = "pending"
	FindStatusApproved = "approved"
	FindStatusDenied   = "denied"
	FindStatusExpired  = "expired"
)

// FindRequest asks one member (the target) to share their position with
// another (the requester). Pending is the only non-terminal state; expiry is
// detected lazily by whoever reads a pending request past its deadline.
type FindRequest struct {
	RequestID   string `dynamodbav:"requestId" json:"requestId"` // PK
	GroupID     string `dynamodbav:"groupId" json:"groupId"`
	RequesterID string `dynamodbav:"requesterId" json:"requesterId"` // GSI PK (RequesterIndex)
	TargetID    string `dynamodbav:"targetId" json:"targetId"`       // GSI PK (TargetIndex)
	Status      string `dynamodbav:"status" json:"status"`
	CreatedAt   string `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt   string `dynamodbav:"expiresAt" json:"expiresAt"`
	ApprovedAt  string `dynamodbav:"approvedAt,omitempty" json:"approvedAt,omitempty"`
}

const (
	FindRequestsTable         = "FindRequests"
	FindRequestTargetIndex    = "TargetIndex"
	FindRequestRequesterIndex = "RequesterIndex"
)

// IsExpired reports whether the request deadline has passed. The stored
// status may still say pending until a reader observes this and writes the
// expired transition.
func (r *FindRequest) IsExpired(now time.Time) bool {
	expiresAt, err := time.Parse(time.RFC3339Nano, r.ExpiresAt)
	if err != nil {
		return true
	}
	return now.After(expiresAt)
}

// Validate checks the required fields of a decoded find-request document.
func (r *FindRequest) Validate() error {
	if r.RequestID == "" || r.RequesterID == "" || r.TargetID == "" {
		return &ValidationError{Reason: "find request document missing required ids"}
	}
	if r.RequesterID == r.TargetID {
		return ErrSelfFindRequest
	}
	return nil
}
