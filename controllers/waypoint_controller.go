package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"caravan_server/services"

	"github.com/gorilla/mux"
)

// WaypointController handles HTTP requests for the shared itinerary
type WaypointController struct {
	WaypointService *services.WaypointService
}

// NewWaypointController initializes the waypoint controller
func NewWaypointController(service *services.WaypointService) *WaypointController {
	return &WaypointController{WaypointService: service}
}

// HandleAddWaypoint - appends a stop to the itinerary
func (c *WaypointController) HandleAddWaypoint(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID   string  `json:"groupId"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		AddedBy   string  `json:"addedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.GroupID == "" || request.Name == "" {
		http.Error(w, `{"error": "Missing required fields: groupId or name"}`, http.StatusBadRequest)
		return
	}

	waypoint, err := c.WaypointService.AddWaypoint(context.Background(), request.GroupID, request.Name, request.Latitude, request.Longitude, request.AddedBy)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, waypoint)
}

// HandleListWaypoints - returns the group's itinerary
func (c *WaypointController) HandleListWaypoints(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	waypoints, err := c.WaypointService.ListWaypoints(context.Background(), groupID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, waypoints)
}

// HandleRemoveWaypoint - deletes an itinerary stop
func (c *WaypointController) HandleRemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := c.WaypointService.RemoveWaypoint(context.Background(), vars["groupId"], vars["waypointId"]); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandlePhotoUploadURL - presigns an S3 upload for a waypoint photo
func (c *WaypointController) HandlePhotoUploadURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var request struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	uploadURL, err := c.WaypointService.PhotoUploadURL(context.Background(), vars["groupId"], vars["waypointId"], request.FileName, request.FileType)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"uploadUrl": uploadURL})
}

// HandlePhotoReadURL - presigns a read for a waypoint photo
func (c *WaypointController) HandlePhotoReadURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	readURL, err := c.WaypointService.PhotoReadURL(context.Background(), vars["groupId"], vars["waypointId"])
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"readUrl": readURL})
}
