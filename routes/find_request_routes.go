package routes

import (
	"caravan_server/controllers"
	"caravan_server/services"

	"github.com/gorilla/mux"
)

// RegisterFindRequestRoutes registers find-permission workflow routes
func RegisterFindRequestRoutes(r *mux.Router, findRequestService *services.FindRequestService) {
	controller := controllers.NewFindRequestController(findRequestService)

	findRouter := r.PathPrefix("/api/find-requests").Subrouter()
	findRouter.HandleFunc("", controller.HandleCreateFindRequest).Methods("POST")
	findRouter.HandleFunc("/{requestId}/approve", controller.HandleApproveFindRequest).Methods("POST")
	findRouter.HandleFunc("/{requestId}/deny", controller.HandleDenyFindRequest).Methods("POST")
	findRouter.HandleFunc("/target/{targetId}", controller.HandleGetRequestsForTarget).Methods("GET")
	findRouter.HandleFunc("/requester/{requesterId}", controller.HandleGetRequestsByRequester).Methods("GET")
}
