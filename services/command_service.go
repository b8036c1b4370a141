package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"caravan_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// CommandService appends broadcast commands and fans out per-recipient
// notifications to every member except the sender.
type CommandService struct {
	Dynamo        DynamoAPI
	Groups        *GroupService
	Notifications *NotificationService
	Publisher     *ChangePublisher
}

// SendCommand appends a command and fans out notifications. The command
// write is the only step that can fail the call: a per-recipient fan-out
// failure degrades to a direct dispatch for that recipient, and a total
// fan-out failure still leaves the command sent.
func (s *CommandService) SendCommand(ctx context.Context, groupID, senderID, senderName, cmdType, message string) (*models.Command, error) {
	if !models.ValidCommandType(cmdType) {
		return nil, &models.ValidationError{Reason: "invalid command type: " + cmdType}
	}
	if message == "" {
		message = models.DefaultCommandMessage(cmdType)
	}
	if message == "" {
		return nil, &models.ValidationError{Reason: "custom commands require a message"}
	}

	command := models.Command{
		GroupID:    groupID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		CommandID:  uuid.New().String(),
		SenderID:   senderID,
		SenderName: senderName,
		Type:       cmdType,
		Message:    message,
	}

	log.Printf("📩 Broadcasting '%s' command from %s to group %s", cmdType, senderID, groupID)
	if err := s.Dynamo.PutItem(ctx, models.CommandsTable, command); err != nil {
		return nil, &models.RemoteIOError{Op: "store command", Err: err}
	}

	s.fanOut(ctx, command)
	s.Publisher.PublishGroup(groupID, "newCommand", command)
	return &command, nil
}

// fanOut writes one notification record per recipient (everyone but the
// sender). Notification ids are derived from (commandId, recipientId) so a
// retried fan-out never duplicates an entry.
func (s *CommandService) fanOut(ctx context.Context, command models.Command) {
	members, err := s.Groups.GetMembers(ctx, command.GroupID)
	if err != nil {
		log.Printf("⚠️ Fan-out skipped, could not load members of group %s: %v", command.GroupID, err)
		return
	}

	for _, member := range members {
		if member.UserID == command.SenderID {
			continue
		}
		notification := models.Notification{
			RecipientID:    member.UserID,
			NotificationID: CommandNotificationID(command.CommandID, member.UserID),
			GroupID:        command.GroupID,
			Title:          fmt.Sprintf("%s: %s", command.SenderName, command.Type),
			Message:        command.Message,
			Type:           models.NotificationTypeCommand,
			CreatedAt:      command.CreatedAt,
			IsRead:         false,
		}
		if err := s.Notifications.Schedule(ctx, notification); err != nil {
			// Degrade to a direct push for this recipient only.
			log.Printf("⚠️ Failed to store notification for %s, falling back to direct dispatch: %v", member.UserID, err)
			s.Notifications.DispatchDirect(notification)
		}
	}
}

// GetRecentCommands returns the live command window: the most recent 50
// commands, newest first. Older commands stay in storage but never reach
// this view.
func (s *CommandService) GetRecentCommands(ctx context.Context, groupID string) ([]models.Command, error) {
	keyCondition := "groupId = :groupId"
	expressionValues := map[string]types.AttributeValue{
		":groupId": &types.AttributeValueMemberS{Value: groupID},
	}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.CommandsTable, keyCondition, expressionValues, nil, models.RecentCommandLimit, true)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch commands", Err: err}
	}

	var commands []models.Command
	if err := attributevalue.UnmarshalListOfMaps(items, &commands); err != nil {
		return nil, fmt.Errorf("failed to parse commands: %w", err)
	}
	return commands, nil
}
