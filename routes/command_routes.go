package routes

import (
	"caravan_server/controllers"
	"caravan_server/services"

	"github.com/gorilla/mux"
)

// RegisterCommandRoutes registers command broadcast and notification routes
func RegisterCommandRoutes(r *mux.Router, commandService *services.CommandService, notificationService *services.NotificationService) {
	controller := controllers.NewCommandController(commandService, notificationService)

	commandRouter := r.PathPrefix("/api/commands").Subrouter()
	commandRouter.HandleFunc("", controller.HandleSendCommand).Methods("POST")
	commandRouter.HandleFunc("/{groupId}", controller.HandleGetRecentCommands).Methods("GET")

	notificationRouter := r.PathPrefix("/api/notifications").Subrouter()
	notificationRouter.HandleFunc("/read", controller.HandleMarkNotificationRead).Methods("POST")
	notificationRouter.HandleFunc("/{recipientId}", controller.HandleGetNotifications).Methods("GET")
}
