package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"caravan_server/services"

	"github.com/gorilla/mux"
)

// FindRequestController handles HTTP requests for the find-permission
// workflow
type FindRequestController struct {
	FindRequestService *services.FindRequestService
}

// NewFindRequestController initializes the find request controller
func NewFindRequestController(service *services.FindRequestService) *FindRequestController {
	return &FindRequestController{FindRequestService: service}
}

// HandleCreateFindRequest - opens a request from requester to target
func (c *FindRequestController) HandleCreateFindRequest(w http.ResponseWriter, r *http.Request) {
	var request struct {
		GroupID     string `json:"groupId"`
		RequesterID string `json:"requesterId"`
		TargetID    string `json:"targetId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.GroupID == "" || request.RequesterID == "" || request.TargetID == "" {
		http.Error(w, `{"error": "Missing required fields: groupId, requesterId, or targetId"}`, http.StatusBadRequest)
		return
	}

	findRequest, err := c.FindRequestService.CreateFindRequest(context.Background(), request.GroupID, request.RequesterID, request.TargetID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, findRequest)
}

// HandleApproveFindRequest - pending → approved
func (c *FindRequestController) HandleApproveFindRequest(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]
	findRequest, err := c.FindRequestService.ApproveFindRequest(context.Background(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, findRequest)
}

// HandleDenyFindRequest - pending → denied
func (c *FindRequestController) HandleDenyFindRequest(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]
	findRequest, err := c.FindRequestService.DenyFindRequest(context.Background(), requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, findRequest)
}

// HandleGetRequestsForTarget - requests aimed at one member. Queries are
// scoped to the target's own identifier; that scoping is the authorization
// boundary.
func (c *FindRequestController) HandleGetRequestsForTarget(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["targetId"]
	requests, err := c.FindRequestService.GetRequestsForTarget(context.Background(), targetID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, requests)
}

// HandleGetRequestsByRequester - requests one member has opened
func (c *FindRequestController) HandleGetRequestsByRequester(w http.ResponseWriter, r *http.Request) {
	requesterID := mux.Vars(r)["requesterId"]
	requests, err := c.FindRequestService.GetRequestsByRequester(context.Background(), requesterID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, requests)
}
