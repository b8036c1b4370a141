package socket

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// NewSocketServer initializes and returns a new Socket.IO server. Clients
// join one room per group for membership/command/itinerary resnapshots and a
// personal room for their notification feed.
func NewSocketServer() *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(c socketio.Conn) error {
		log.Println("✅ Socket connected:", c.ID())
		return nil
	})

	server.OnEvent("/", "joinGroup", func(c socketio.Conn, data map[string]string) {
		groupID := data["groupId"]
		if groupID == "" {
			log.Println("❌ Invalid groupId in joinGroup request")
			return
		}
		log.Printf("👥 Socket %s joined group room %s\n", c.ID(), groupID)
		c.Join("group:" + groupID)
	})

	server.OnEvent("/", "leaveGroup", func(c socketio.Conn, data map[string]string) {
		groupID := data["groupId"]
		if groupID == "" {
			return
		}
		log.Printf("👋 Socket %s left group room %s\n", c.ID(), groupID)
		c.Leave("group:" + groupID)
	})

	server.OnEvent("/", "joinUser", func(c socketio.Conn, data map[string]string) {
		userID := data["userId"]
		if userID == "" {
			log.Println("❌ Invalid userId in joinUser request")
			return
		}
		log.Printf("🔔 Socket %s listening for user %s notifications\n", c.ID(), userID)
		c.Join("user:" + userID)
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", c.ID(), reason)
	})

	return server
}

// Broadcaster adapts the socket.io server to the services' broadcast
// interface.
type Broadcaster struct {
	Server *socketio.Server
}

// BroadcastToRoom pushes an event to every connection in a room.
func (b *Broadcaster) BroadcastToRoom(room, event string, payload interface{}) {
	b.Server.BroadcastToRoom("/", room, event, payload)
}
