package models

// Waypoint is one stop on a group's shared itinerary. Waypoint coordinates
// are the usual targets for distance monitoring.
type Waypoint struct {
	GroupID    string  `dynamodbav:"groupId" json:"groupId"`       // PK
	WaypointID string  `dynamodbav:"waypointId" json:"waypointId"` // SK
	Name       string  `dynamodbav:"name" json:"name"`
	Latitude   float64 `dynamodbav:"latitude" json:"latitude"`
	Longitude  float64 `dynamodbav:"longitude" json:"longitude"`
	AddedBy    string  `dynamodbav:"addedBy" json:"addedBy"`
	CreatedAt  string  `dynamodbav:"createdAt" json:"createdAt"`
	PhotoKey   string  `dynamodbav:"photoKey,omitempty" json:"photoKey,omitempty"`
}

const WaypointsTable = "GroupWaypoints"
