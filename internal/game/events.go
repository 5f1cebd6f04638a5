// internal/game/events.go
package game

import (
	"github.com/google/uuid"
)

// EventType is an enum-like type for events fanned out to connected
// sessions.
type EventType string

const (
	EventPlayerJoined    EventType = "player_joined"     // Public: a player joined the lobby
	EventGameStarted     EventType = "game_started"      // Public: LOBBY -> ACTIVE
	EventNumberCalled    EventType = "number_called"     // Public: number + 1-based position
	EventWinnerAnnounced EventType = "winner_announced"  // Public: category awarded
	EventGameCompleted   EventType = "game_completed"    // Public: ACTIVE -> COMPLETED
	EventClaimAvailable  EventType = "claim_available"   // Private: player now satisfies categories
	EventStateSync       EventType = "state_sync"        // Private: full snapshot on (re)connect
)

// Event is the single broadcast envelope. Fields are pointers or omitempty
// so each event type serializes only its own payload.
type Event struct {
	Type EventType `json:"type"`

	// number_called
	Number   int `json:"number,omitempty"`
	Position int `json:"position,omitempty"`

	// winner_announced
	Winner *Winner `json:"winner,omitempty"`

	// player_joined
	PlayerID    uuid.UUID `json:"player_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`

	// claim_available
	Categories []Category `json:"categories,omitempty"`

	// state_sync
	State *StateSnapshot `json:"state,omitempty"`

	// Miscellaneous fields (e.g. completion reason).
	Payload map[string]interface{} `json:"payload,omitempty"`
}
