package routes

import (
	"caravan_server/controllers"
	"caravan_server/services"

	"github.com/gorilla/mux"
)

// RegisterWaypointRoutes registers itinerary routes
func RegisterWaypointRoutes(r *mux.Router, waypointService *services.WaypointService) {
	controller := controllers.NewWaypointController(waypointService)

	waypointRouter := r.PathPrefix("/api/waypoints").Subrouter()
	waypointRouter.HandleFunc("", controller.HandleAddWaypoint).Methods("POST")
	waypointRouter.HandleFunc("/{groupId}", controller.HandleListWaypoints).Methods("GET")
	waypointRouter.HandleFunc("/{groupId}/{waypointId}", controller.HandleRemoveWaypoint).Methods("DELETE")
	waypointRouter.HandleFunc("/{groupId}/{waypointId}/photo-upload-url", controller.HandlePhotoUploadURL).Methods("POST")
	waypointRouter.HandleFunc("/{groupId}/{waypointId}/photo-read-url", controller.HandlePhotoReadURL).Methods("GET")
}
