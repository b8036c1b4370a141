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

// WaypointService manages a group's shared itinerary.
type WaypointService struct {
	Dynamo    DynamoAPI
	S3        *S3Service
	Publisher *ChangePublisher
}

// AddWaypoint appends a stop to the group's itinerary.
func (s *WaypointService) AddWaypoint(ctx context.Context, groupID, name string, lat, lng float64, addedBy string) (*models.Waypoint, error) {
	if name == "" {
		return nil, &models.ValidationError{Reason: "waypoint name is required"}
	}

	waypoint := models.Waypoint{
		GroupID:    groupID,
		WaypointID: uuid.New().String(),
		Name:       name,
		Latitude:   lat,
		Longitude:  lng,
		AddedBy:    addedBy,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Dynamo.PutItem(ctx, models.WaypointsTable, waypoint); err != nil {
		return nil, &models.RemoteIOError{Op: "add waypoint", Err: err}
	}

	log.Printf("📍 Waypoint '%s' added to group %s by %s", name, groupID, addedBy)
	s.publishItinerary(ctx, groupID)
	return &waypoint, nil
}

// ListWaypoints returns the group's itinerary in creation order.
func (s *WaypointService) ListWaypoints(ctx context.Context, groupID string) ([]models.Waypoint, error) {
	keyCondition := "groupId = :groupId"
	expressionValues := map[string]types.AttributeValue{
		":groupId": &types.AttributeValueMemberS{Value: groupID},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.WaypointsTable, keyCondition, expressionValues, nil, 100)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch waypoints", Err: err}
	}

	var waypoints []models.Waypoint
	if err := attributevalue.UnmarshalListOfMaps(items, &waypoints); err != nil {
		return nil, fmt.Errorf("failed to parse waypoints: %w", err)
	}

	sort.SliceStable(waypoints, func(i, j int) bool {
		if waypoints[i].CreatedAt != waypoints[j].CreatedAt {
			return waypoints[i].CreatedAt < waypoints[j].CreatedAt
		}
		return waypoints[i].WaypointID < waypoints[j].WaypointID
	})
	return waypoints, nil
}

// GetWaypoint fetches one itinerary stop.
func (s *WaypointService) GetWaypoint(ctx context.Context, groupID, waypointID string) (*models.Waypoint, error) {
	key := map[string]types.AttributeValue{
		"groupId":    &types.AttributeValueMemberS{Value: groupID},
		"waypointId": &types.AttributeValueMemberS{Value: waypointID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.WaypointsTable, key)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch waypoint", Err: err}
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "waypoint", ID: waypointID}
	}

	var waypoint models.Waypoint
	if err := attributevalue.UnmarshalMap(item, &waypoint); err != nil {
		return nil, fmt.Errorf("failed to parse waypoint: %w", err)
	}
	return &waypoint, nil
}

// RemoveWaypoint deletes an itinerary stop.
func (s *WaypointService) RemoveWaypoint(ctx context.Context, groupID, waypointID string) error {
	if _, err := s.GetWaypoint(ctx, groupID, waypointID); err != nil {
		return err
	}

	key := map[string]types.AttributeValue{
		"groupId":    &types.AttributeValueMemberS{Value: groupID},
		"waypointId": &types.AttributeValueMemberS{Value: waypointID},
	}
	if err := s.Dynamo.DeleteItem(ctx, models.WaypointsTable, key); err != nil {
		return &models.RemoteIOError{Op: "remove waypoint", Err: err}
	}

	log.Printf("🗑️ Waypoint %s removed from group %s", waypointID, groupID)
	s.publishItinerary(ctx, groupID)
	return nil
}

// PhotoUploadURL presigns an S3 upload for a waypoint photo and records the
// object key on the waypoint.
func (s *WaypointService) PhotoUploadURL(ctx context.Context, groupID, waypointID, fileName, fileType string) (string, error) {
	if _, err := s.GetWaypoint(ctx, groupID, waypointID); err != nil {
		return "", err
	}

	uploadURL, photoKey, err := s.S3.GenerateUploadURL(ctx, fileName, fileType)
	if err != nil {
		return "", &models.RemoteIOError{Op: "presign waypoint photo upload", Err: err}
	}

	updateExpression := "SET photoKey = :photoKey"
	key := map[string]types.AttributeValue{
		"groupId":    &types.AttributeValueMemberS{Value: groupID},
		"waypointId": &types.AttributeValueMemberS{Value: waypointID},
	}
	expressionValues := map[string]types.AttributeValue{
		":photoKey": &types.AttributeValueMemberS{Value: photoKey},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.WaypointsTable, updateExpression, key, expressionValues, nil); err != nil {
		return "", &models.RemoteIOError{Op: "record waypoint photo key", Err: err}
	}

	s.publishItinerary(ctx, groupID)
	return uploadURL, nil
}

// PhotoReadURL presigns a read for a waypoint's photo.
func (s *WaypointService) PhotoReadURL(ctx context.Context, groupID, waypointID string) (string, error) {
	waypoint, err := s.GetWaypoint(ctx, groupID, waypointID)
	if err != nil {
		return "", err
	}
	if waypoint.PhotoKey == "" {
		return "", &models.NotFoundError{Resource: "waypoint photo", ID: waypointID}
	}

	readURL, err := s.S3.GenerateReadURL(ctx, waypoint.PhotoKey)
	if err != nil {
		return "", &models.RemoteIOError{Op: "presign waypoint photo read", Err: err}
	}
	return readURL, nil
}

func (s *WaypointService) publishItinerary(ctx context.Context, groupID string) {
	waypoints, err := s.ListWaypoints(ctx, groupID)
	if err != nil {
		log.Printf("⚠️ Could not build itinerary snapshot for group %s: %v", groupID, err)
		return
	}
	s.Publisher.PublishGroup(groupID, "itinerarySnapshot", waypoints)
}
