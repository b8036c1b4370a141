package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"caravan_server/routes"
	"caravan_server/services"
	"caravan_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func envDuration(name string, unit, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("⚠️ Ignoring invalid %s=%q, using default", name, raw)
		return fallback
	}
	return time.Duration(n) * unit
}

func main() {
	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Initialize the Socket.IO server for realtime resnapshots
	socketServer := socket.NewSocketServer()
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Fatalf("Socket server failed: %v", err)
		}
	}()
	defer socketServer.Close()

	publisher := &services.ChangePublisher{
		Hub:    services.NewSubscriptionHub(),
		Socket: &socket.Broadcaster{Server: socketServer},
	}

	// Configurable TTLs and debounce window
	inviteTTL := envDuration("INVITE_TTL_HOURS", time.Hour, services.DefaultInviteTTL)
	findTTL := envDuration("FIND_REQUEST_TTL_MINUTES", time.Minute, services.DefaultFindRequestTTL)
	debounce := envDuration("DISTANCE_DEBOUNCE_SECONDS", time.Second, services.DefaultDistanceDebounce)

	// Initialize Services
	groupService := services.NewGroupService(dynamoService, publisher, inviteTTL)
	notificationService := &services.NotificationService{Dynamo: dynamoService, Publisher: publisher}
	commandService := &services.CommandService{
		Dynamo:        dynamoService,
		Groups:        groupService,
		Notifications: notificationService,
		Publisher:     publisher,
	}
	findRequestService := services.NewFindRequestService(dynamoService, groupService, notificationService, publisher, findTTL)
	s3Service := &services.S3Service{Client: services.InitializeS3Client(), Bucket: os.Getenv("S3_BUCKET_NAME")}
	waypointService := &services.WaypointService{Dynamo: dynamoService, S3: s3Service, Publisher: publisher}

	distanceService := services.NewDistanceService(debounce)
	defer distanceService.Close()
	socket.RegisterDistanceEvents(socketServer, distanceService)

	// Set up the server port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()
	r.Handle("/socket.io/", socketServer)

	// Register routes
	routes.RegisterRoutes(r)
	routes.RegisterGroupRoutes(r, groupService)
	routes.RegisterCommandRoutes(r, commandService, notificationService)
	routes.RegisterFindRequestRoutes(r, findRequestService)
	routes.RegisterWaypointRoutes(r, waypointService)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
