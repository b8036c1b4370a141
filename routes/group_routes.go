package routes

import (
	"caravan_server/controllers"
	"caravan_server/services"

	"github.com/gorilla/mux"
)

// RegisterGroupRoutes registers group lifecycle and member update routes
func RegisterGroupRoutes(r *mux.Router, groupService *services.GroupService) {
	groupController := controllers.NewGroupController(groupService)
	memberController := controllers.NewMemberController(groupService)

	groupRouter := r.PathPrefix("/api/groups").Subrouter()
	groupRouter.HandleFunc("", groupController.HandleCreateGroup).Methods("POST")
	groupRouter.HandleFunc("/join", groupController.HandleJoinGroup).Methods("POST")
	groupRouter.HandleFunc("/leave", groupController.HandleLeaveGroup).Methods("POST")
	groupRouter.HandleFunc("/promote", groupController.HandlePromoteMember).Methods("POST")
	groupRouter.HandleFunc("/{groupId}", groupController.HandleGetGroup).Methods("GET")
	groupRouter.HandleFunc("/{groupId}/members", groupController.HandleGetMembers).Methods("GET")
	groupRouter.HandleFunc("/{groupId}/invite", groupController.HandleRegenerateInvite).Methods("POST")
	groupRouter.HandleFunc("/{groupId}/settings", groupController.HandleUpdateSettings).Methods("PATCH")

	memberRouter := r.PathPrefix("/api/members").Subrouter()
	memberRouter.HandleFunc("/location", memberController.HandleUpdateLocation).Methods("PUT")
	memberRouter.HandleFunc("/status", memberController.HandleUpdateStatus).Methods("PUT")
	memberRouter.HandleFunc("/profile", memberController.HandleUpdateProfile).Methods("PUT")
}
