// internal/game/tickets.go
package game

import (
	"context"

	"github.com/google/uuid"
)

// TicketStore tracks each player's ticket grid and running marked set, and
// maintains the number index (called number -> holding players) so a call
// never needs to scan every player in the game.
type TicketStore struct {
	store Store
}

// NewTicketStore returns a ticket store over the given state store.
func NewTicketStore(store Store) *TicketStore {
	return &TicketStore{store: store}
}

// AssignTicket records the grid for a player and indexes every non-zero
// cell. A second assignment for the same player fails with
// ErrAlreadyAssigned; the index is built once and read-only afterward.
func (ts *TicketStore) AssignTicket(ctx context.Context, gameID, playerID uuid.UUID, t Ticket) error {
	if err := ts.store.PutTicket(ctx, gameID, playerID, t); err != nil {
		return err
	}
	for _, n := range t.Numbers() {
		if err := ts.store.IndexAdd(ctx, gameID, n, playerID); err != nil {
			return err
		}
	}
	return nil
}

// MarkNumber adds number to the player's marked set. It enforces the mark
// invariant: the number must be on the player's ticket (ErrNotOnTicket) and
// must already appear in the call sequence (ErrNotCalledYet). Marking an
// already-marked number is a no-op success, which makes the explicit client
// path and AutoMarkOnCall commutative.
func (ts *TicketStore) MarkNumber(ctx context.Context, gameID, playerID uuid.UUID, number int) error {
	t, err := ts.store.TicketOf(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if !t.Contains(number) {
		return ErrNotOnTicket
	}
	called, err := ts.store.IsCalled(ctx, gameID, number)
	if err != nil {
		return err
	}
	if !called {
		return ErrNotCalledYet
	}
	return ts.store.AddMark(ctx, gameID, playerID, number)
}

// AutoMarkOnCall marks number for every player whose ticket holds it. Only
// invoked after the sequencer has durably recorded the call, so the mark
// invariant holds by construction. Returns the affected player IDs.
func (ts *TicketStore) AutoMarkOnCall(ctx context.Context, gameID uuid.UUID, number int) ([]uuid.UUID, error) {
	holders, err := ts.store.Holders(ctx, gameID, number)
	if err != nil {
		return nil, err
	}
	for _, pid := range holders {
		if err := ts.store.AddMark(ctx, gameID, pid, number); err != nil {
			return nil, err
		}
	}
	return holders, nil
}

// Marks returns the player's current marked set.
func (ts *TicketStore) Marks(ctx context.Context, gameID, playerID uuid.UUID) (map[int]struct{}, error) {
	return ts.store.Marks(ctx, gameID, playerID)
}

// TicketOf returns the player's ticket.
func (ts *TicketStore) TicketOf(ctx context.Context, gameID, playerID uuid.UUID) (Ticket, error) {
	return ts.store.TicketOf(ctx, gameID, playerID)
}
