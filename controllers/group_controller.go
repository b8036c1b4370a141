package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"caravan_server/services"

	"github.com/gorilla/mux"
)

// GroupController handles HTTP requests for group lifecycle actions
type GroupController struct {
	GroupService *services.GroupService
}

// NewGroupController initializes the group controller
func NewGroupController(service *services.GroupService) *GroupController {
	return &GroupController{GroupService: service}
}

// HandleCreateGroup - creates a new group with the caller as leader
func (c *GroupController) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name       string `json:"name"`
		LeaderID   string `json:"leaderId"`
		LeaderName string `json:"leaderName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.Name == "" || request.LeaderID == "" {
		http.Error(w, `{"error": "Missing required fields: name or leaderId"}`, http.StatusBadRequest)
		return
	}

	group, err := c.GroupService.CreateGroup(context.Background(), request.Name, request.LeaderID, request.LeaderName)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, group)
}

// HandleGetGroup - fetches a group document
func (c *GroupController) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	group, err := c.GroupService.GetGroup(context.Background(), groupID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, group)
}

// HandleGetMembers - fetches the full membership snapshot
func (c *GroupController) HandleGetMembers(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	members, err := c.GroupService.GetMembers(context.Background(), groupID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, members)
}

// HandleJoinGroup - joins a group via invite code
func (c *GroupController) HandleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var request struct {
		InviteCode string `json:"inviteCode"`
		UserID     string `json:"userId"`
		UserName   string `json:"userName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.InviteCode == "" || request.UserID == "" {
		http.Error(w, `{"error": "Missing required fields: inviteCode or userId"}`, http.StatusBadRequest)
		return
	}

	member, err := c.GroupService.JoinGroup(context.Background(), request.InviteCode, request.UserID, request.UserName)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, member)
}

// HandleLeaveGroup - removes a member, electing a new leader when needed
func (c *GroupController) HandleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID string `json:"groupId"`
		UserID  string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.GroupService.LeaveGroup(context.Background(), request.GroupID, request.UserID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandlePromoteMember - transfers leadership to another member
func (c *GroupController) HandlePromoteMember(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID string `json:"groupId"`
		UserID  string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.GroupService.PromoteMember(context.Background(), request.GroupID, request.UserID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleRegenerateInvite - issues a fresh invite code
func (c *GroupController) HandleRegenerateInvite(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	group, err := c.GroupService.RegenerateInviteCode(context.Background(), groupID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{
		"inviteCode":      group.InviteCode,
		"inviteExpiresAt": group.InviteExpiresAt,
	})
}

// HandleUpdateSettings - toggles free-roam mode
func (c *GroupController) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	var request struct {
		FreeRoamMode bool   `json:"freeRoamMode"`
		EnabledBy    string `json:"enabledBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.GroupService.UpdateGroupSettings(context.Background(), groupID, request.FreeRoamMode, request.EnabledBy); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}
