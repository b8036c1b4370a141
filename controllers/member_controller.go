package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"caravan_server/services"
)

// MemberController handles HTTP requests for member-level updates
type MemberController struct {
	GroupService *services.GroupService
}

// NewMemberController initializes the member controller
func NewMemberController(service *services.GroupService) *MemberController {
	return &MemberController{GroupService: service}
}

// HandleUpdateLocation - stamps a member's last known position
func (c *MemberController) HandleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID   string  `json:"groupId"`
		UserID    string  `json:"userId"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.GroupID == "" || request.UserID == "" {
		http.Error(w, `{"error": "Missing required fields: groupId or userId"}`, http.StatusBadRequest)
		return
	}

	if err := c.GroupService.UpdateMemberLocation(context.Background(), request.GroupID, request.UserID, request.Latitude, request.Longitude); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleUpdateStatus - sets a member's status flag
func (c *MemberController) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID string `json:"groupId"`
		UserID  string `json:"userId"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.GroupService.UpdateMemberStatus(context.Background(), request.GroupID, request.UserID, request.Status); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleUpdateProfile - sets nickname and avatar overrides
func (c *MemberController) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID     string `json:"groupId"`
		UserID      string `json:"userId"`
		Nickname    string `json:"nickname"`
		AvatarEmoji string `json:"avatarEmoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.GroupService.UpdateMemberProfile(context.Background(), request.GroupID, request.UserID, request.Nickname, request.AvatarEmoji); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}
