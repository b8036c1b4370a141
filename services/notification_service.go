package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"caravan_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// NotificationService is the local notification dispatcher: it persists
// per-recipient notification records and pushes them over the realtime
// channel so they fire even while the app is foregrounded.
type NotificationService struct {
	Dynamo    DynamoAPI
	Publisher *ChangePublisher
}

// CommandNotificationID derives a stable notification id from the command
// and recipient, so repeated fan-out attempts never duplicate an entry.
func CommandNotificationID(commandID, recipientID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(commandID+":"+recipientID)).String()
}

// FindRequestNotificationID derives a stable notification id from a find
// request transition.
func FindRequestNotificationID(requestID, event string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(requestID+":"+event)).String()
}

// Schedule writes a notification record and pushes it to the recipient's
// room. Scheduling an id that already exists is a no-op, so a retried
// fan-out cannot reset a notification the recipient already read.
func (s *NotificationService) Schedule(ctx context.Context, n models.Notification) error {
	if n.RecipientID == "" || n.NotificationID == "" {
		return &models.ValidationError{Reason: "notification missing recipientId or notificationId"}
	}

	key := map[string]types.AttributeValue{
		"recipientId":    &types.AttributeValueMemberS{Value: n.RecipientID},
		"notificationId": &types.AttributeValueMemberS{Value: n.NotificationID},
	}
	existing, err := s.Dynamo.GetItem(ctx, models.NotificationsTable, key)
	if err != nil {
		return fmt.Errorf("failed to check existing notification: %w", err)
	}
	if existing != nil {
		log.Printf("🔁 Notification %s already scheduled for %s, skipping", n.NotificationID, n.RecipientID)
		return nil
	}

	if n.CreatedAt == "" {
		n.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := s.Dynamo.PutItem(ctx, models.NotificationsTable, n); err != nil {
		return &models.RemoteIOError{Op: "schedule notification", Err: err}
	}

	s.Publisher.PublishUser(n.RecipientID, "notification", n)
	return nil
}

// DispatchDirect pushes a notification straight to the recipient's room
// without persisting it. Fallback path when the per-recipient store write
// fails during fan-out.
func (s *NotificationService) DispatchDirect(n models.Notification) {
	log.Printf("📣 Direct-dispatching notification %s to %s", n.NotificationID, n.RecipientID)
	s.Publisher.PublishUser(n.RecipientID, "notification", n)
}

// Cancel removes a scheduled notification by id.
func (s *NotificationService) Cancel(ctx context.Context, recipientID, notificationID string) error {
	key := map[string]types.AttributeValue{
		"recipientId":    &types.AttributeValueMemberS{Value: recipientID},
		"notificationId": &types.AttributeValueMemberS{Value: notificationID},
	}
	if err := s.Dynamo.DeleteItem(ctx, models.NotificationsTable, key); err != nil {
		return &models.RemoteIOError{Op: "cancel notification", Err: err}
	}
	return nil
}

// GetForRecipient returns a recipient's notification feed, newest first.
func (s *NotificationService) GetForRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	keyCondition := "recipientId = :recipientId"
	expressionValues := map[string]types.AttributeValue{
		":recipientId": &types.AttributeValueMemberS{Value: recipientID},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.NotificationsTable, keyCondition, expressionValues, nil, 200)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch notifications", Err: err}
	}

	var notifications []models.Notification
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, fmt.Errorf("failed to parse notifications: %w", err)
	}

	// Sort key is the notification id, so order by timestamp here.
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt > notifications[j].CreatedAt
	})
	return notifications, nil
}

// MarkRead transitions a notification unread→read. One-way: there is no
// batch variant and no undo.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	key := map[string]types.AttributeValue{
		"recipientId":    &types.AttributeValueMemberS{Value: recipientID},
		"notificationId": &types.AttributeValueMemberS{Value: notificationID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.NotificationsTable, key)
	if err != nil {
		return &models.RemoteIOError{Op: "fetch notification", Err: err}
	}
	if item == nil {
		return &models.NotFoundError{Resource: "notification", ID: notificationID}
	}

	updateExpression := "SET isRead = :true"
	expressionValues := map[string]types.AttributeValue{
		":true": &types.AttributeValueMemberBOOL{Value: true},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.NotificationsTable, updateExpression, key, expressionValues, nil); err != nil {
		return &models.RemoteIOError{Op: "mark notification read", Err: err}
	}
	return nil
}
