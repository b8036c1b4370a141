package models

const (
	RoleLeader   = "leader"
	RoleFollower = "follower"
)

const (
	StatusNormal   = "normal"
	StatusGathered = "gathered"
	StatusDeviated = "deviated"
	StatusResting  = "resting"
	StatusHelp     = "help"
)

// Member represents one participant of a group.
type Member struct {
	GroupID            string  `dynamodbav:"groupId" json:"groupId"` // PK
	UserID             string  `dynamodbav:"userId" json:"userId"`   // SK
	DisplayName        string  `dynamodbav:"displayName" json:"displayName"`
	Nickname           string  `dynamodbav:"nickname,omitempty" json:"nickname,omitempty"`
	AvatarEmoji        string  `dynamodbav:"avatarEmoji,omitempty" json:"avatarEmoji,omitempty"`
	Role               string  `dynamodbav:"role" json:"role"`
	Status             string  `dynamodbav:"status" json:"status"`
	JoinedAt           string  `dynamodbav:"joinedAt" json:"joinedAt"`
	Latitude           float64 `dynamodbav:"latitude" json:"latitude"`
	Longitude          float64 `dynamodbav:"longitude" json:"longitude"`
	LastLocationUpdate string  `dynamodbav:"lastLocationUpdate,omitempty" json:"lastLocationUpdate,omitempty"`
}

const MembersTable = "GroupMembers"

// EffectiveName returns the nickname override when set, otherwise the
// display name.
func (m *Member) EffectiveName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.DisplayName
}

// Validate checks the required fields of a decoded member document.
func (m *Member) Validate() error {
	if m.GroupID == "" || m.UserID == "" {
		return &ValidationError{Reason: "member document missing groupId or userId"}
	}
	if m.Role != RoleLeader && m.Role != RoleFollower {
		return &ValidationError{Reason: "member document has invalid role: " + m.Role}
	}
	return nil
}

// ValidMemberStatus reports whether s is one of the supported member
// statuses.
func ValidMemberStatus(s string) bool {
	switch s {
	case StatusNormal, StatusGathered, StatusDeviated, StatusResting, StatusHelp:
		return true
	}
	return false
}
