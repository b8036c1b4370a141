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

// DefaultFindRequestTTL is how long a find request stays approvable. The
// value is deliberately configurable; thirty minutes is the default, not a
// protocol constant.
const DefaultFindRequestTTL = 30 * time.Minute

// FindRequestService runs the find-permission workflow between two members:
// pending → approved/denied/expired, with free-roam auto-approval and lazy
// expiry on read.
type FindRequestService struct {
	Dynamo        DynamoAPI
	Groups        *GroupService
	Notifications *NotificationService
	Publisher     *ChangePublisher
	TTL           time.Duration
}

// NewFindRequestService builds a FindRequestService. A zero ttl falls back
// to DefaultFindRequestTTL.
func NewFindRequestService(dynamo DynamoAPI, groups *GroupService, notifications *NotificationService, publisher *ChangePublisher, ttl time.Duration) *FindRequestService {
	if ttl <= 0 {
		ttl = DefaultFindRequestTTL
	}
	return &FindRequestService{
		Dynamo:        dynamo,
		Groups:        groups,
		Notifications: notifications,
		Publisher:     publisher,
		TTL:           ttl,
	}
}

// CreateFindRequest opens a request from requester to target. In a
// free-roam group the request is written already approved and only the
// requester is notified; the target never sees a pending state.
func (s *FindRequestService) CreateFindRequest(ctx context.Context, groupID, requesterID, targetID string) (*models.FindRequest, error) {
	if requesterID == targetID {
		return nil, models.ErrSelfFindRequest
	}

	group, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	requester, err := s.Groups.GetMember(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Groups.GetMember(ctx, groupID, targetID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := models.FindRequest{
		RequestID:   uuid.New().String(),
		GroupID:     groupID,
		RequesterID: requesterID,
		TargetID:    targetID,
		Status:      models.FindStatusPending,
		CreatedAt:   now.Format(time.RFC3339Nano),
		ExpiresAt:   now.Add(s.TTL).Format(time.RFC3339Nano),
	}

	if group.Settings.FreeRoamMode {
		request.Status = models.FindStatusApproved
		request.ApprovedAt = request.CreatedAt
	}

	if err := s.Dynamo.PutItem(ctx, models.FindRequestsTable, request); err != nil {
		return nil, &models.RemoteIOError{Op: "create find request", Err: err}
	}

	if group.Settings.FreeRoamMode {
		log.Printf("🔓 Free roam: find request %s auto-approved", request.RequestID)
		s.notify(ctx, requesterID, request, models.NotificationTypeFindResult,
			"Find request approved", "Free roam is on, location access granted")
	} else {
		log.Printf("🔍 Find request %s: %s wants to find %s", request.RequestID, requesterID, targetID)
		s.notify(ctx, targetID, request, models.NotificationTypeFindRequest,
			"Find request", fmt.Sprintf("%s wants to see your location", requester.EffectiveName()))
	}

	s.Publisher.PublishGroup(groupID, "findRequest", request)
	return &request, nil
}

// ApproveFindRequest transitions pending → approved, stamps approvedAt, and
// notifies the requester. Invalid from any other state; a request past its
// deadline expires instead.
func (s *FindRequestService) ApproveFindRequest(ctx context.Context, requestID string) (*models.FindRequest, error) {
	return s.resolve(ctx, requestID, models.FindStatusApproved)
}

// DenyFindRequest transitions pending → denied. Invalid from any other
// state.
func (s *FindRequestService) DenyFindRequest(ctx context.Context, requestID string) (*models.FindRequest, error) {
	return s.resolve(ctx, requestID, models.FindStatusDenied)
}

func (s *FindRequestService) resolve(ctx context.Context, requestID, status string) (*models.FindRequest, error) {
	request, err := s.getRaw(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.FindStatusPending {
		return nil, models.ErrNotPending
	}

	now := time.Now().UTC()
	if request.IsExpired(now) {
		// Lazy expiry: the read that observed the stale pending state
		// writes the terminal transition.
		if err := s.writeStatus(ctx, request, models.FindStatusExpired, ""); err != nil {
			return nil, err
		}
		return nil, models.ErrNotPending
	}

	approvedAt := ""
	if status == models.FindStatusApproved {
		approvedAt = now.Format(time.RFC3339Nano)
	}
	if err := s.writeStatus(ctx, request, status, approvedAt); err != nil {
		return nil, err
	}
	request.Status = status
	request.ApprovedAt = approvedAt

	if status == models.FindStatusApproved {
		log.Printf("✅ Find request %s approved", requestID)
		s.notify(ctx, request.RequesterID, *request, models.NotificationTypeFindResult,
			"Find request approved", "Location access granted")
	} else {
		log.Printf("🚫 Find request %s denied", requestID)
	}

	s.Publisher.PublishGroup(request.GroupID, "findRequest", *request)
	return request, nil
}

// GetRequest fetches one request, applying lazy expiry if its deadline has
// passed while still pending.
func (s *FindRequestService) GetRequest(ctx context.Context, requestID string) (*models.FindRequest, error) {
	request, err := s.getRaw(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.expireIfDue(ctx, request)
}

// GetRequestsForTarget returns the requests aimed at one member. Reading is
// what expires overdue pending requests; an unobserved request can sit
// pending in storage indefinitely.
func (s *FindRequestService) GetRequestsForTarget(ctx context.Context, targetID string) ([]models.FindRequest, error) {
	return s.queryIndex(ctx, models.FindRequestTargetIndex, "targetId", targetID)
}

// GetRequestsByRequester returns the requests one member has opened.
func (s *FindRequestService) GetRequestsByRequester(ctx context.Context, requesterID string) ([]models.FindRequest, error) {
	return s.queryIndex(ctx, models.FindRequestRequesterIndex, "requesterId", requesterID)
}

func (s *FindRequestService) queryIndex(ctx context.Context, indexName, field, value string) ([]models.FindRequest, error) {
	keyCondition := field + " = :v"
	expressionValues := map[string]types.AttributeValue{
		":v": &types.AttributeValueMemberS{Value: value},
	}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.FindRequestsTable, indexName, keyCondition, expressionValues, nil, 100)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch find requests", Err: err}
	}

	var requests []models.FindRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &requests); err != nil {
		return nil, fmt.Errorf("failed to parse find requests: %w", err)
	}

	for i := range requests {
		updated, err := s.expireIfDue(ctx, &requests[i])
		if err != nil {
			return nil, err
		}
		requests[i] = *updated
	}
	return requests, nil
}

func (s *FindRequestService) getRaw(ctx context.Context, requestID string) (*models.FindRequest, error) {
	key := map[string]types.AttributeValue{
		"requestId": &types.AttributeValueMemberS{Value: requestID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.FindRequestsTable, key)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch find request", Err: err}
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "find request", ID: requestID}
	}

	var request models.FindRequest
	if err := attributevalue.UnmarshalMap(item, &request); err != nil {
		return nil, fmt.Errorf("failed to parse find request: %w", err)
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *FindRequestService) expireIfDue(ctx context.Context, request *models.FindRequest) (*models.FindRequest, error) {
	if request.Status == models.FindStatusPending && request.IsExpired(time.Now().UTC()) {
		if err := s.writeStatus(ctx, request, models.FindStatusExpired, ""); err != nil {
			return nil, err
		}
		request.Status = models.FindStatusExpired
		log.Printf("⌛ Find request %s expired on read", request.RequestID)
	}
	return request, nil
}

func (s *FindRequestService) writeStatus(ctx context.Context, request *models.FindRequest, status, approvedAt string) error {
	updateExpression := "SET #s = :status"
	key := map[string]types.AttributeValue{
		"requestId": &types.AttributeValueMemberS{Value: request.RequestID},
	}
	expressionValues := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
	}
	expressionNames := map[string]string{
		"#s": "status",
	}
	if approvedAt != "" {
		updateExpression = "SET #s = :status, approvedAt = :approvedAt"
		expressionValues[":approvedAt"] = &types.AttributeValueMemberS{Value: approvedAt}
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.FindRequestsTable, updateExpression, key, expressionValues, expressionNames); err != nil {
		return &models.RemoteIOError{Op: "update find request status", Err: err}
	}
	return nil
}

func (s *FindRequestService) notify(ctx context.Context, recipientID string, request models.FindRequest, notifType, title, message string) {
	notification := models.Notification{
		RecipientID:    recipientID,
		NotificationID: FindRequestNotificationID(request.RequestID, notifType),
		GroupID:        request.GroupID,
		Title:          title,
		Message:        message,
		Type:           notifType,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
		IsRead:         false,
	}
	if err := s.Notifications.Schedule(ctx, notification); err != nil {
		log.Printf("⚠️ Failed to store find-request notification for %s, falling back to direct dispatch: %v", recipientID, err)
		s.Notifications.DispatchDirect(notification)
	}
}
