package models

const (
	CommandTypeGather    = "gather"
	CommandTypeRest      = "rest"
	CommandTypeDepart    = "depart"
	CommandTypeHeadcount = "headcount"
	CommandTypeSOS       = "sos"
	CommandTypeCustom    = "custom"
)

// Command is a short broadcast from one member to the rest of the group.
// Commands are append-only and immutable once written.
type Command struct {
	GroupID    string `dynamodbav:"groupId" json:"groupId"`     // PK
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"` // SK (RFC3339Nano timestamp)
	CommandID  string `dynamodbav:"commandId" json:"commandId"`
	SenderID   string `dynamodbav:"senderId" json:"senderId"`
	SenderName string `dynamodbav:"senderName" json:"senderName"`
	Type       string `dynamodbav:"commandType" json:"commandType"`
	Message    string `dynamodbav:"message" json:"message"`
}

const CommandsTable = "GroupCommands"

// RecentCommandLimit bounds the live command view. Older commands stay in
// storage but are excluded from the window.
const RecentCommandLimit = 50

// ValidCommandType reports whether t is a supported command type.
func ValidCommandType(t string) bool {
	switch t {
	case CommandTypeGather, CommandTypeRest, CommandTypeDepart,
		CommandTypeHeadcount, CommandTypeSOS, CommandTypeCustom:
		return true
	}
	return false
}

// DefaultCommandMessage returns the canned message text for a command type.
// Custom commands carry their own text.
func DefaultCommandMessage(t string) string {
	switch t {
	case CommandTypeGather:
		return "Gather at the leader's position"
	case CommandTypeRest:
		return "Taking a break, rest here"
	case CommandTypeDepart:
		return "Departing now, let's move"
	case CommandTypeHeadcount:
		return "Headcount! Check in please"
	case CommandTypeSOS:
		return "Emergency! Need help now"
	}
	return ""
}
