package socket

import (
	"log"

	"caravan_server/services"

	socketio "github.com/googollee/go-socket.io"
)

// RegisterDistanceEvents wires the distance scheduler to the realtime
// channel. Results come back asynchronously as "distanceUpdate" events on
// the requesting connection; a target unwatched before its tick fires is
// silently dropped.
func RegisterDistanceEvents(server *socketio.Server, distances *services.DistanceService) {
	server.OnEvent("/", "watchDistance", func(c socketio.Conn, data map[string]interface{}) {
		targetID, _ := data["targetId"].(string)
		lat, _ := data["latitude"].(float64)
		lng, _ := data["longitude"].(float64)
		if targetID == "" {
			log.Println("❌ Invalid targetId in watchDistance request")
			return
		}
		distances.StartMonitoring(targetID, lat, lng, func(id string, meters float64) {
			c.Emit("distanceUpdate", map[string]interface{}{"targetId": id, "meters": meters})
		})
	})

	server.OnEvent("/", "unwatchDistance", func(c socketio.Conn, data map[string]interface{}) {
		targetID, _ := data["targetId"].(string)
		if targetID == "" {
			return
		}
		distances.StopMonitoring(targetID)
	})

	server.OnEvent("/", "requestDistance", func(c socketio.Conn, data map[string]interface{}) {
		targetID, _ := data["targetId"].(string)
		observerLat, _ := data["observerLatitude"].(float64)
		observerLng, _ := data["observerLongitude"].(float64)
		targetLat, _ := data["targetLatitude"].(float64)
		targetLng, _ := data["targetLongitude"].(float64)
		if targetID == "" {
			log.Println("❌ Invalid targetId in requestDistance request")
			return
		}
		distances.RequestCalculation(targetID, observerLat, observerLng, targetLat, targetLng, func(id string, meters float64) {
			c.Emit("distanceUpdate", map[string]interface{}{"targetId": id, "meters": meters})
		})
	})
}
