package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"caravan_server/services"

	"github.com/gorilla/mux"
)

// CommandController handles HTTP requests for command broadcast and the
// per-recipient notification feed
type CommandController struct {
	CommandService      *services.CommandService
	NotificationService *services.NotificationService
}

// NewCommandController initializes the command controller
func NewCommandController(commands *services.CommandService, notifications *services.NotificationService) *CommandController {
	return &CommandController{CommandService: commands, NotificationService: notifications}
}

// HandleSendCommand - broadcasts a command to the group
func (c *CommandController) HandleSendCommand(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID    string `json:"groupId"`
		SenderID   string `json:"senderId"`
		SenderName string `json:"senderName"`
		Type       string `json:"type"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.GroupID == "" || request.SenderID == "" || request.Type == "" {
		http.Error(w, `{"error": "Missing required fields: groupId, senderId, or type"}`, http.StatusBadRequest)
		return
	}

	command, err := c.CommandService.SendCommand(context.Background(), request.GroupID, request.SenderID, request.SenderName, request.Type, request.Message)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, command)
}

// HandleGetRecentCommands - returns the live command window, newest first
func (c *CommandController) HandleGetRecentCommands(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	commands, err := c.CommandService.GetRecentCommands(context.Background(), groupID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, commands)
}

// HandleGetNotifications - returns a recipient's notification feed
func (c *CommandController) HandleGetNotifications(w http.ResponseWriter, r *http.Request) {
	recipientID := mux.Vars(r)["recipientId"]
	notifications, err := c.NotificationService.GetForRecipient(context.Background(), recipientID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, notifications)
}

// HandleMarkNotificationRead - one-way unread→read transition
func (c *CommandController) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RecipientID    string `json:"recipientId"`
		NotificationID string `json:"notificationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.NotificationService.MarkRead(context.Background(), request.RecipientID, request.NotificationID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "success"})
}
