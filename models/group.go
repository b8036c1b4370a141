package models

import "time"

// GroupSettings holds group-wide toggles. FreeRoamMode auto-approves all
// find requests for the group.
type GroupSettings struct {
	FreeRoamMode bool   `dynamodbav:"freeRoamMode" json:"freeRoamMode"`
	EnabledBy    string `dynamodbav:"enabledBy,omitempty" json:"enabledBy,omitempty"`
	EnabledAt    string `dynamodbav:"enabledAt,omitempty" json:"enabledAt,omitempty"`
}

// Group represents a coordination group stored in DynamoDB. Members live in
// their own table (GroupMembers) keyed by groupId.
type Group struct {
	GroupID         string        `dynamodbav:"groupId" json:"groupId"` // PK
	Name            string        `dynamodbav:"name" json:"name"`
	LeaderID        string        `dynamodbav:"leaderId" json:"leaderId"`
	CreatedAt       string        `dynamodbav:"createdAt" json:"createdAt"`
	InviteCode      string        `dynamodbav:"inviteCode" json:"inviteCode"` // GSI PK (InviteCodeIndex)
	InviteExpiresAt string        `dynamodbav:"inviteExpiresAt" json:"inviteExpiresAt"`
	IsActive        bool          `dynamodbav:"isActive" json:"isActive"`
	Settings        GroupSettings `dynamodbav:"settings" json:"settings"`
}

const (
	GroupsTable          = "Groups"
	GroupInviteCodeIndex = "InviteCodeIndex"
)

// Validate checks the required fields of a decoded group document. A stored
// document missing any of them fails closed rather than producing a partial
// entity.
func (g *Group) Validate() error {
	if g.GroupID == "" {
		return &ValidationError{Reason: "group document missing groupId"}
	}
	if g.Name == "" {
		return &ValidationError{Reason: "group document missing name"}
	}
	if g.LeaderID == "" {
		return &ValidationError{Reason: "group document missing leaderId"}
	}
	if g.CreatedAt == "" {
		return &ValidationError{Reason: "group document missing createdAt"}
	}
	return nil
}

// InviteExpired reports whether the current invite code is past its expiry.
// An unparsable expiry counts as expired.
func (g *Group) InviteExpired(now time.Time) bool {
	expiresAt, err := time.Parse(time.RFC3339, g.InviteExpiresAt)
	if err != nil {
		return true
	}
	return now.After(expiresAt)
}
