// internal/game/fanout.go
package game

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// sendQueueSize bounds each subscriber's outbound queue. A subscriber that
// falls this many events behind is dropped rather than stalling publishers.
const sendQueueSize = 64

// Subscriber is one connected session's receiving end. Events arrive on Ch
// pre-marshaled, in publish order; Ch is closed when the subscriber is
// dropped or the hub shuts down the game.
type Subscriber struct {
	PlayerID uuid.UUID
	ch       chan []byte

	mu     sync.Mutex
	closed bool
}

// Ch returns the subscriber's event channel.
func (s *Subscriber) Ch() <-chan []byte { return s.ch }

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// trySend enqueues data without blocking. Reports false when the queue is
// full, meaning the consumer is too slow to keep.
func (s *Subscriber) trySend(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- data:
		return true
	default:
		return false
	}
}

// gameHub holds one game's subscriber set. Each game has its own hub and
// its own lock, so publishing to one game never contends with another.
type gameHub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// Fanout pushes events to every session subscribed to a game. Delivery is
// at-least-once, best-effort, and order-preserving per game: events are
// enqueued to all of a game's subscribers under that game's lock, in
// publish order, and each subscriber drains its own queue independently so
// one slow consumer cannot block the publisher or its peers.
type Fanout struct {
	mu   sync.RWMutex
	hubs map[uuid.UUID]*gameHub
}

// NewFanout returns an empty fanout.
func NewFanout() *Fanout {
	return &Fanout{hubs: make(map[uuid.UUID]*gameHub)}
}

func (f *Fanout) hub(gameID uuid.UUID, create bool) *gameHub {
	f.mu.RLock()
	h, ok := f.hubs[gameID]
	f.mu.RUnlock()
	if ok || !create {
		return h
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok = f.hubs[gameID]; ok {
		return h
	}
	h = &gameHub{subs: make(map[*Subscriber]struct{})}
	f.hubs[gameID] = h
	return h
}

// Subscribe registers a new session for the game's events.
func (f *Fanout) Subscribe(gameID, playerID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		PlayerID: playerID,
		ch:       make(chan []byte, sendQueueSize),
	}
	h := f.hub(gameID, true)
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the session and closes its channel.
func (f *Fanout) Unsubscribe(gameID uuid.UUID, sub *Subscriber) {
	h := f.hub(gameID, false)
	if h == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Publish delivers ev to every current subscriber of the game. Cost is
// proportional only to that game's subscriber count. Subscribers whose
// queue is full are dropped.
func (f *Fanout) Publish(gameID uuid.UUID, ev Event) {
	h := f.hub(gameID, false)
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to marshal %s event for game %s: %v", ev.Type, gameID, err)
		return
	}

	var dropped []*Subscriber
	h.mu.Lock()
	for sub := range h.subs {
		if !sub.trySend(data) {
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range dropped {
		log.Printf("dropping slow subscriber %s from game %s", sub.PlayerID, gameID)
		sub.close()
	}
}

// PublishTo delivers ev only to the given player's sessions.
func (f *Fanout) PublishTo(gameID, playerID uuid.UUID, ev Event) {
	h := f.hub(gameID, false)
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to marshal %s event for player %s: %v", ev.Type, playerID, err)
		return
	}

	h.mu.Lock()
	for sub := range h.subs {
		if sub.PlayerID == playerID {
			sub.trySend(data)
		}
	}
	h.mu.Unlock()
}

// CloseGame drops every subscriber of a finished game.
func (f *Fanout) CloseGame(gameID uuid.UUID) {
	f.mu.Lock()
	h, ok := f.hubs[gameID]
	delete(f.hubs, gameID)
	f.mu.Unlock()
	if !ok {
		return
	}
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}
