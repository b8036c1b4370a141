package services

import (
	"log"
	"sync"
)

// Update is one change delivered to a subscription. Payload is always a full
// resnapshot of the topic's current state, never an incremental diff.
type Update struct {
	Topic   string      `json:"topic"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Subscription is an explicit handle to a topic's update stream. The caller
// owns disposal: a handle that is never closed keeps receiving updates
// indefinitely.
type Subscription struct {
	topic string
	ch    chan Update
	hub   *SubscriptionHub

	once sync.Once
}

// Updates returns the receive side of the subscription's channel.
func (s *Subscription) Updates() <-chan Update {
	return s.ch
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.ch)
	})
}

// SubscriptionHub fans out updates to in-process subscribers. Publishing
// never blocks: a subscriber that falls behind its buffer drops updates (the
// next resnapshot supersedes anything missed).
type SubscriptionHub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewSubscriptionHub() *SubscriptionHub {
	return &SubscriptionHub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new subscription on a topic.
func (h *SubscriptionHub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan Update, 16),
		hub:   h,
	}
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *SubscriptionHub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.topic)
		}
	}
}

// Publish delivers an update to every subscriber of a topic.
func (h *SubscriptionHub) Publish(topic, event string, payload interface{}) {
	update := Update{Topic: topic, Event: event, Payload: payload}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- update:
		default:
			log.Printf("⚠️ Subscriber on topic '%s' is slow, dropping update '%s'", topic, event)
		}
	}
}

// Broadcaster pushes an event to a named realtime room. The socket.io server
// satisfies this; services stay decoupled from the transport.
type Broadcaster interface {
	BroadcastToRoom(room, event string, payload interface{})
}

// ChangePublisher republishes store mutations to in-process subscribers and
// to the realtime channel. Either side may be nil.
type ChangePublisher struct {
	Hub    *SubscriptionHub
	Socket Broadcaster
}

// GroupTopic names the per-group change topic / socket room.
func GroupTopic(groupID string) string {
	return "group:" + groupID
}

// UserTopic names the per-user notification topic / socket room.
func UserTopic(userID string) string {
	return "user:" + userID
}

// PublishGroup delivers a group-scoped resnapshot.
func (p *ChangePublisher) PublishGroup(groupID, event string, payload interface{}) {
	if p == nil {
		return
	}
	topic := GroupTopic(groupID)
	if p.Hub != nil {
		p.Hub.Publish(topic, event, payload)
	}
	if p.Socket != nil {
		p.Socket.BroadcastToRoom(topic, event, payload)
	}
}

// PublishUser delivers a user-scoped update.
func (p *ChangePublisher) PublishUser(userID, event string, payload interface{}) {
	if p == nil {
		return
	}
	topic := UserTopic(userID)
	if p.Hub != nil {
		p.Hub.Publish(topic, event, payload)
	}
	if p.Socket != nil {
		p.Socket.BroadcastToRoom(topic, event, payload)
	}
}
