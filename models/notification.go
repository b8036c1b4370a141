package models

// Notification is a per-recipient record produced by command fan-out and
// find-request transitions. The notification id is derived deterministically
// from its source so repeated delivery attempts never duplicate an entry.
type Notification struct {
	RecipientID    string `dynamodbav:"recipientId" json:"recipientId"`       // PK
	NotificationID string `dynamodbav:"notificationId" json:"notificationId"` // SK
	GroupID        string `dynamodbav:"groupId" json:"groupId"`
	Title          string `dynamodbav:"title" json:"title"`
	Message        string `dynamodbav:"message" json:"message"`
	Type           string `dynamodbav:"notificationType" json:"notificationType"`
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`
	IsRead         bool   `dynamodbav:"isRead" json:"isRead"`
}

const NotificationsTable = "MemberNotifications"

const (
	NotificationTypeCommand     = "command"
	NotificationTypeFindRequest = "findRequest"
	NotificationTypeFindResult  = "findResult"
)
