// internal/game/sequencer_test.go
package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveGame(t *testing.T) (*CallSequencer, *MemoryStore, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	gameID := uuid.New()
	require.NoError(t, store.CreateGame(ctx, gameID))
	require.NoError(t, store.SetStatus(ctx, gameID, StatusActive))
	return NewCallSequencer(store), store, gameID
}

func TestSequencerPositions(t *testing.T) {
	seq, _, gameID := newActiveGame(t)
	ctx := context.Background()

	for i, n := range []int{17, 90, 1, 44} {
		pos, err := seq.CallNumber(ctx, gameID, n)
		require.NoError(t, err)
		assert.Equal(t, i+1, pos)
	}

	calls, err := seq.Calls(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, []int{17, 90, 1, 44}, calls)

	n, pos, err := seq.Current(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, 44, n)
	assert.Equal(t, 4, pos)
}

func TestSequencerCurrentEmpty(t *testing.T) {
	seq, _, gameID := newActiveGame(t)

	n, pos, err := seq.Current(context.Background(), gameID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, pos)
}

func TestSequencerRejectsDuplicate(t *testing.T) {
	seq, _, gameID := newActiveGame(t)
	ctx := context.Background()

	_, err := seq.CallNumber(ctx, gameID, 29)
	require.NoError(t, err)
	_, err = seq.CallNumber(ctx, gameID, 29)
	assert.ErrorIs(t, err, ErrDuplicateCall)
}

func TestSequencerStatusGate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gameID := uuid.New()
	require.NoError(t, store.CreateGame(ctx, gameID))
	seq := NewCallSequencer(store)

	_, err := seq.CallNumber(ctx, gameID, 5)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = seq.CallNumber(ctx, uuid.New(), 5)
	assert.ErrorIs(t, err, ErrGameNotFound)
}
