// internal/game/sequencer.go
package game

import (
	"context"

	"github.com/google/uuid"
)

// CallSequencer owns the single authoritative, strictly ordered log of
// called numbers per game. The engine serializes CallNumber per game
// (single writer); reads may happen concurrently and always observe a
// prefix of the true order.
type CallSequencer struct {
	store Store
}

// NewCallSequencer returns a sequencer over the given store.
func NewCallSequencer(store Store) *CallSequencer {
	return &CallSequencer{store: store}
}

// CallNumber appends number to the game's call sequence and returns its
// 1-based position, which becomes the new current number. Fails with
// ErrOutOfRange, ErrInvalidState for non-ACTIVE games, or ErrDuplicateCall.
func (s *CallSequencer) CallNumber(ctx context.Context, gameID uuid.UUID, number int) (int, error) {
	if number < 1 || number > 90 {
		return 0, ErrOutOfRange
	}
	status, err := s.store.Status(ctx, gameID)
	if err != nil {
		return 0, err
	}
	if status != StatusActive {
		return 0, ErrInvalidState
	}
	return s.store.AppendCall(ctx, gameID, number)
}

// Calls returns the called-number sequence so far, in call order.
func (s *CallSequencer) Calls(ctx context.Context, gameID uuid.UUID) ([]int, error) {
	return s.store.Calls(ctx, gameID)
}

// Current returns the most recently called number and its position, or
// (0, 0) if nothing has been called.
func (s *CallSequencer) Current(ctx context.Context, gameID uuid.UUID) (int, int, error) {
	calls, err := s.store.Calls(ctx, gameID)
	if err != nil {
		return 0, 0, err
	}
	if len(calls) == 0 {
		return 0, 0, nil
	}
	return calls[len(calls)-1], len(calls), nil
}
