// internal/game/engine_test.go
package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// winnerLog collects durable winner writes in place of Postgres.
type winnerLog struct {
	mu      sync.Mutex
	winners []Winner
}

func (wl *winnerLog) RecordWinner(ctx context.Context, w Winner) error {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	wl.winners = append(wl.winners, w)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	e := NewEngine(uuid.New(), store, NewMemoryLocker(), NewFanout(), nil)
	require.NoError(t, e.Create(context.Background()))
	return e, store
}

// addPlayerWithTicket registers a player with a crafted ticket, bypassing
// random generation so tests control the grid exactly.
func addPlayerWithTicket(t *testing.T, e *Engine, store *MemoryStore, name string, tk Ticket) PlayerInfo {
	t.Helper()
	ctx := context.Background()
	p := PlayerInfo{ID: uuid.New(), AccountID: uuid.New(), DisplayName: name}
	require.NoError(t, store.PutPlayer(ctx, e.ID, p))
	require.NoError(t, NewTicketStore(store).AssignTicket(ctx, e.ID, p.ID, tk))
	return p
}

func callAll(t *testing.T, e *Engine, numbers ...int) {
	t.Helper()
	for i, n := range numbers {
		pos, err := e.Call(context.Background(), n)
		require.NoError(t, err, "call %d", n)
		require.Equal(t, i+1, pos, "position of call %d", n)
	}
}

var ticketA = Ticket{
	{1, 0, 0, 14, 0, 0, 0, 61, 0},
	{0, 11, 22, 0, 45, 0, 0, 0, 82},
	{5, 0, 0, 0, 0, 55, 66, 77, 0},
}

// ticketB shares A's top-line numbers on its own top row.
var ticketB = Ticket{
	{1, 0, 0, 14, 0, 0, 0, 61, 0},
	{0, 13, 24, 0, 47, 0, 0, 0, 85},
	{7, 0, 0, 0, 0, 57, 68, 79, 0},
}

func TestJoinAssignsTicketOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	accountID := uuid.New()
	p1, t1, err := e.Join(ctx, accountID, "alice")
	require.NoError(t, err)
	require.Len(t, t1.Numbers(), 15)

	// Rejoin: same player, identical ticket, never regenerated.
	p2, t2, err := e.Join(ctx, accountID, "alice")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, t1, t2)

	// A different account gets its own player and ticket.
	p3, _, err := e.Join(ctx, uuid.New(), "bob")
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID, p3.ID)
}

func TestAssignTicketTwiceFails(t *testing.T) {
	e, store := newTestEngine(t)
	p := addPlayerWithTicket(t, e, store, "alice", ticketA)

	err := NewTicketStore(store).AssignTicket(context.Background(), e.ID, p.ID, ticketB)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestCallRequiresActiveGame(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Call(ctx, 7)
	assert.ErrorIs(t, err, ErrInvalidState, "calling in LOBBY must fail")

	require.NoError(t, e.Start(ctx))
	pos, err := e.Call(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	require.NoError(t, e.Complete(ctx, "test"))
	_, err = e.Call(ctx, 8)
	assert.ErrorIs(t, err, ErrInvalidState, "calling after COMPLETED must fail")
}

func TestDuplicateCallRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	pos, err := e.Call(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, err = e.Call(ctx, 42)
	assert.ErrorIs(t, err, ErrDuplicateCall)

	// The sequence is unchanged by the rejected call.
	calls, err := NewCallSequencer(e.store).Calls(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, calls)
}

func TestCallOutOfRange(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	_, err := e.Call(ctx, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = e.Call(ctx, 91)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMarkInvariants(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	p := addPlayerWithTicket(t, e, store, "alice", ticketA)
	require.NoError(t, e.Start(ctx))

	// Not called yet.
	err := e.Mark(ctx, p.ID, 14)
	assert.ErrorIs(t, err, ErrNotCalledYet)

	callAll(t, e, 14, 30)

	// 30 was called but is not on the ticket.
	err = e.Mark(ctx, p.ID, 30)
	assert.ErrorIs(t, err, ErrNotOnTicket)

	// Valid mark; marking again is a no-op success.
	require.NoError(t, e.Mark(ctx, p.ID, 14))
	require.NoError(t, e.Mark(ctx, p.ID, 14))

	marks, err := store.Marks(ctx, e.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, marks, 1)
	assert.Contains(t, marks, 14)

	// Unknown players cannot mark.
	err = e.Mark(ctx, uuid.New(), 14)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestAutoMarkOnCall(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	pa := addPlayerWithTicket(t, e, store, "alice", ticketA)
	pb := addPlayerWithTicket(t, e, store, "bob", ticketB)
	require.NoError(t, e.Start(ctx))

	callAll(t, e, 1, 45, 30)

	marksA, err := store.Marks(ctx, e.ID, pa.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}, 45: {}}, marksA, "alice holds 1 and 45")

	marksB, err := store.Marks(ctx, e.ID, pb.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}}, marksB, "bob holds only 1; 30 is on nobody's ticket")
}

func TestSnapshotFidelity(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	p := addPlayerWithTicket(t, e, store, "alice", ticketA)
	require.NoError(t, e.Start(ctx))

	callAll(t, e, 14, 30, 61)

	snap, err := e.Snapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{14, 30, 61}, snap.CalledNumbers, "full call sequence in order")
	assert.Equal(t, 61, snap.CurrentNumber)
	assert.Equal(t, []int{14, 61}, snap.MarkedNumbers, "auto-marked ticket numbers only")
	assert.Equal(t, ticketA, snap.Ticket)
	assert.Empty(t, snap.Winners)
	assert.Equal(t, StatusActive, snap.Status)

	// More numbers called while the player is "disconnected" show up in
	// the call sequence; marks stay exact.
	callAll2 := []int{88, 11}
	for _, n := range callAll2 {
		_, err := e.Call(ctx, n)
		require.NoError(t, err)
	}
	snap, err = e.Snapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{14, 30, 61, 88, 11}, snap.CalledNumbers)
	assert.Equal(t, []int{14, 61, 11}, snap.MarkedNumbers)
}

func TestSnapshotUnknownPlayer(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Snapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

// TestTopLineClaimScenario is the end-to-end line-win flow: auto-marked
// top row, first claim wins, a second identical claim is rejected.
func TestTopLineClaimScenario(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	pa := addPlayerWithTicket(t, e, store, "alice", ticketA)
	pb := addPlayerWithTicket(t, e, store, "bob", ticketB)
	require.NoError(t, e.Start(ctx))

	callAll(t, e, 1, 14, 61)

	w, err := e.Claim(ctx, pa.ID, CategoryTopLine)
	require.NoError(t, err)
	assert.Equal(t, CategoryTopLine, w.Category)
	assert.Equal(t, pa.ID, w.PlayerID)
	assert.Equal(t, "alice", w.DisplayName)
	assert.False(t, w.Timestamp.IsZero())

	// Bob completes the same pattern but the category is gone.
	_, err = e.Claim(ctx, pb.ID, CategoryTopLine)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	// Both players see the one winner in their snapshots.
	for _, pid := range []uuid.UUID{pa.ID, pb.ID} {
		snap, err := e.Snapshot(ctx, pid)
		require.NoError(t, err)
		require.Len(t, snap.Winners, 1)
		assert.Equal(t, CategoryTopLine, snap.Winners[0].Category)
		assert.Equal(t, pa.ID, snap.Winners[0].PlayerID)
	}
}

func TestClaimNotEligible(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	p := addPlayerWithTicket(t, e, store, "alice", ticketA)
	require.NoError(t, e.Start(ctx))

	callAll(t, e, 1, 14)

	_, err := e.Claim(ctx, p.ID, CategoryTopLine)
	assert.ErrorIs(t, err, ErrNotEligible, "top line needs 61 as well")

	_, err = e.Claim(ctx, p.ID, CategoryEarlyFive)
	assert.ErrorIs(t, err, ErrNotEligible, "only two marks so far")

	_, err = e.Claim(ctx, uuid.New(), CategoryTopLine)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = e.Claim(ctx, p.ID, Category("SNAKES"))
	assert.ErrorIs(t, err, ErrNotEligible)
}

// TestConcurrentEarlyFiveClaims races five eligible players for the same
// category: exactly one wins, the rest get ErrAlreadyClaimed, and every
// snapshot agrees on the single winner.
func TestConcurrentEarlyFiveClaims(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	wl := &winnerLog{}
	e = NewEngine(e.ID, store, NewMemoryLocker(), NewFanout(), wl)

	tickets := []Ticket{
		{{1, 0, 0, 14, 0, 0, 0, 61, 0}, {0, 11, 22, 0, 45, 0, 0, 0, 82}, {5, 0, 0, 0, 0, 55, 66, 77, 0}},
		{{2, 0, 0, 14, 0, 0, 0, 61, 0}, {0, 13, 24, 0, 45, 0, 0, 0, 83}, {6, 0, 0, 0, 0, 55, 67, 78, 0}},
		{{3, 0, 0, 14, 0, 0, 0, 61, 0}, {0, 15, 26, 0, 45, 0, 0, 0, 84}, {7, 0, 0, 0, 0, 55, 68, 79, 0}},
		{{4, 0, 0, 14, 0, 0, 0, 61, 0}, {0, 16, 27, 0, 45, 0, 0, 0, 85}, {8, 0, 0, 0, 0, 55, 69, 71, 0}},
		{{1, 0, 0, 14, 0, 0, 0, 61, 0}, {0, 17, 28, 0, 45, 0, 0, 0, 86}, {9, 0, 0, 0, 0, 55, 63, 72, 0}},
	}
	players := make([]PlayerInfo, len(tickets))
	for i, tk := range tickets {
		players[i] = addPlayerWithTicket(t, e, store, "p"+string(rune('a'+i)), tk)
	}
	require.NoError(t, e.Start(ctx))

	// Every ticket holds these five numbers spread across its rows.
	callAll(t, e, 14, 61, 45, 55, 1)
	// Top up each player to five marks via their private numbers.
	for _, n := range []int{2, 3, 4, 5, 6, 7, 8, 9} {
		_, err := e.Call(ctx, n)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]error, len(players))
	for i, p := range players {
		wg.Add(1)
		go func(i int, pid uuid.UUID) {
			defer wg.Done()
			_, err := e.Claim(ctx, pid, CategoryEarlyFive)
			results[i] = err
		}(i, p.ID)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyClaimed)
		}
	}
	assert.Equal(t, 1, successes, "exactly one claim must win")

	winners, err := store.Winners(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, CategoryEarlyFive, winners[0].Category)

	// Losers' snapshots show the same single winner.
	for _, p := range players {
		snap, err := e.Snapshot(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, snap.Winners, 1)
		assert.Equal(t, winners[0].PlayerID, snap.Winners[0].PlayerID)
	}
}

func TestFullHouseCompletesGame(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	p := addPlayerWithTicket(t, e, store, "alice", fullTicket)
	require.NoError(t, e.Start(ctx))

	for _, n := range fullTicket.Numbers() {
		_, err := e.Call(ctx, n)
		require.NoError(t, err)
	}

	w, err := e.Claim(ctx, p.ID, CategoryFullHouse)
	require.NoError(t, err)
	assert.Equal(t, CategoryFullHouse, w.Category)

	status, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestClaimPrizeFromConfig(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	e.Prizes = PrizeConfig{CategoryTopLine: 500}
	p := addPlayerWithTicket(t, e, store, "alice", ticketA)
	require.NoError(t, e.Start(ctx))
	callAll(t, e, 1, 14, 61)

	w, err := e.Claim(ctx, p.ID, CategoryTopLine)
	require.NoError(t, err)
	assert.Equal(t, 500, w.Prize)
}

func TestDrawCallsUncalledNumbers(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	seen := make(map[int]struct{})
	for i := 0; i < 90; i++ {
		n, pos, err := e.Draw(ctx)
		require.NoError(t, err)
		assert.Equal(t, i+1, pos)
		_, dup := seen[n]
		require.False(t, dup, "draw repeated %d", n)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, 90)
		seen[n] = struct{}{}
	}

	_, _, err := e.Draw(ctx)
	assert.ErrorIs(t, err, ErrAllNumbersCalled)
}

// TestCallBroadcasts verifies the number_called and winner_announced
// events reach a subscriber in publish order.
func TestCallBroadcasts(t *testing.T) {
	store := NewMemoryStore()
	fanout := NewFanout()
	e := NewEngine(uuid.New(), store, NewMemoryLocker(), fanout, nil)
	ctx := context.Background()
	require.NoError(t, e.Create(ctx))
	p := addPlayerWithTicket(t, e, store, "alice", ticketA)
	require.NoError(t, e.Start(ctx))

	sub := fanout.Subscribe(e.ID, p.ID)
	defer fanout.Unsubscribe(e.ID, sub)

	callAll(t, e, 1, 14, 61)
	_, err := e.Claim(ctx, p.ID, CategoryTopLine)
	require.NoError(t, err)

	// Calling 61 completes alice's top row, so a private claim_available
	// lands between the last number_called and the winner announcement.
	var types []EventType
	var numbers []int
	for i := 0; i < 5; i++ {
		var ev Event
		require.NoError(t, json.Unmarshal(<-sub.Ch(), &ev))
		types = append(types, ev.Type)
		if ev.Type == EventNumberCalled {
			numbers = append(numbers, ev.Number)
		}
	}
	assert.Equal(t, []EventType{
		EventNumberCalled, EventNumberCalled, EventNumberCalled,
		EventClaimAvailable, EventWinnerAnnounced,
	}, types)
	assert.Equal(t, []int{1, 14, 61}, numbers)
}
