// internal/game/snapshot.go
package game

import (
	"context"

	"github.com/google/uuid"
)

// StateSnapshot is the full recovery payload sent to a (re)connecting
// player: everything needed to rebuild the exact game view.
type StateSnapshot struct {
	GameID        uuid.UUID  `json:"game_id"`
	Status        GameStatus `json:"status"`
	CalledNumbers []int      `json:"called_numbers"`
	CurrentNumber int        `json:"current_number"`
	MarkedNumbers []int      `json:"marked_numbers"`
	Ticket        Ticket     `json:"ticket"`
	Winners       []Winner   `json:"winners"`
}

// ReconnectionCoordinator assembles state snapshots. It only reads; it
// never mutates game state.
type ReconnectionCoordinator struct {
	store Store
}

// NewReconnectionCoordinator returns a coordinator over the given store.
func NewReconnectionCoordinator(store Store) *ReconnectionCoordinator {
	return &ReconnectionCoordinator{store: store}
}

// Snapshot returns the player's full game view, or ErrPlayerNotFound if the
// player never joined. Any subordinate read failing fails the whole
// snapshot; partial state is never returned.
//
// The marked set is read before the call sequence. Marks are only ever
// written after their number is durably in the sequence, and the sequence
// only grows, so a later read of the calls is always a superset of the
// calls that justified the marks: no number can appear marked without also
// appearing called.
func (rc *ReconnectionCoordinator) Snapshot(ctx context.Context, gameID, playerID uuid.UUID) (StateSnapshot, error) {
	ticket, err := rc.store.TicketOf(ctx, gameID, playerID)
	if err != nil {
		return StateSnapshot{}, err
	}
	marks, err := rc.store.Marks(ctx, gameID, playerID)
	if err != nil {
		return StateSnapshot{}, err
	}
	calls, err := rc.store.Calls(ctx, gameID)
	if err != nil {
		return StateSnapshot{}, err
	}
	winners, err := rc.store.Winners(ctx, gameID)
	if err != nil {
		return StateSnapshot{}, err
	}
	status, err := rc.store.Status(ctx, gameID)
	if err != nil {
		return StateSnapshot{}, err
	}

	snap := StateSnapshot{
		GameID:        gameID,
		Status:        status,
		CalledNumbers: calls,
		MarkedNumbers: sortedMarks(calls, marks),
		Ticket:        ticket,
		Winners:       winners,
	}
	if len(calls) > 0 {
		snap.CurrentNumber = calls[len(calls)-1]
	}
	return snap, nil
}

// sortedMarks orders the marked set by call order so clients replay marks
// deterministically.
func sortedMarks(calls []int, marks map[int]struct{}) []int {
	out := make([]int, 0, len(marks))
	for _, n := range calls {
		if _, ok := marks[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
