// internal/game/engine.go
package game

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention bounds how long a completed game's ephemeral state
// (calls, marks, index) stays readable before it is purged. Winner records
// outlive it in durable storage.
const DefaultRetention = 2 * time.Hour

// Engine coordinates one game: it funnels every mutation for the game
// through its serialization points while leaving reads and other games
// untouched. All engine components share the injected Store, so several
// backend processes can serve the same game as long as they share the
// store and locker.
type Engine struct {
	ID uuid.UUID

	// HostAccountID identifies the organizer; the transport layer uses it
	// to gate start/call operations.
	HostAccountID uuid.UUID

	// mu serializes the call path (single writer per game). Marks, claims
	// and snapshots deliberately do not take it.
	mu sync.Mutex

	store     Store
	fanout    *Fanout
	sequencer *CallSequencer
	tickets   *TicketStore
	arbiter   *ClaimArbiter
	recon     *ReconnectionCoordinator

	Prizes    PrizeConfig
	Retention time.Duration

	// OnStatusChange, when set, is invoked after each lifecycle transition
	// so the caller can persist it durably. It must not block.
	OnStatusChange func(ctx context.Context, status GameStatus)

	rng *rand.Rand
}

// NewEngine builds an engine for gameID over the shared store, locker and
// fanout. recorder may be nil (no durable winner sink).
func NewEngine(gameID uuid.UUID, store Store, locker Locker, fanout *Fanout, recorder WinnerRecorder) *Engine {
	return &Engine{
		ID:        gameID,
		store:     store,
		fanout:    fanout,
		sequencer: NewCallSequencer(store),
		tickets:   NewTicketStore(store),
		arbiter:   NewClaimArbiter(store, locker, recorder),
		recon:     NewReconnectionCoordinator(store),
		Prizes:    PrizeConfig{},
		Retention: DefaultRetention,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create initializes the game's key space in LOBBY status.
func (e *Engine) Create(ctx context.Context) error {
	return e.store.CreateGame(ctx, e.ID)
}

// Join registers the account's player in this game, assigning a fresh
// ticket on first join. A rejoin returns the existing player and ticket
// unchanged; the ticket is generated once and never regenerated.
func (e *Engine) Join(ctx context.Context, accountID uuid.UUID, displayName string) (PlayerInfo, Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok, err := e.store.PlayerByAccount(ctx, e.ID, accountID); err != nil {
		return PlayerInfo{}, Ticket{}, err
	} else if ok {
		t, err := e.store.TicketOf(ctx, e.ID, existing.ID)
		if err != nil {
			return PlayerInfo{}, Ticket{}, err
		}
		return existing, t, nil
	}

	status, err := e.store.Status(ctx, e.ID)
	if err != nil {
		return PlayerInfo{}, Ticket{}, err
	}
	if status == StatusCompleted {
		return PlayerInfo{}, Ticket{}, ErrInvalidState
	}

	p := PlayerInfo{
		ID:          uuid.New(),
		AccountID:   accountID,
		DisplayName: displayName,
	}
	if err := e.store.PutPlayer(ctx, e.ID, p); err != nil {
		return PlayerInfo{}, Ticket{}, err
	}
	t := generateTicket(e.rng)
	if err := e.tickets.AssignTicket(ctx, e.ID, p.ID, t); err != nil {
		return PlayerInfo{}, Ticket{}, err
	}

	e.fanout.Publish(e.ID, Event{
		Type:        EventPlayerJoined,
		PlayerID:    p.ID,
		DisplayName: p.DisplayName,
	})
	return p, t, nil
}

// Start transitions LOBBY -> ACTIVE. Organizer-only at the transport layer.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.store.Status(ctx, e.ID)
	if err != nil {
		return err
	}
	if status != StatusLobby {
		return ErrInvalidState
	}
	if err := e.store.SetStatus(ctx, e.ID, StatusActive); err != nil {
		return err
	}
	if e.OnStatusChange != nil {
		e.OnStatusChange(ctx, StatusActive)
	}
	e.fanout.Publish(e.ID, Event{Type: EventGameStarted})
	return nil
}

// Call appends number to the call sequence, auto-marks it for every holder,
// broadcasts number_called, and privately notifies players newly eligible
// for a claim. Returns the 1-based position.
func (e *Engine) Call(ctx context.Context, number int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callLocked(ctx, number)
}

// Draw calls a random not-yet-called number, as organizers usually prefer
// over typing numbers. Returns the number and its position.
func (e *Engine) Draw(ctx context.Context) (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	calls, err := e.store.Calls(ctx, e.ID)
	if err != nil {
		return 0, 0, err
	}
	if len(calls) >= 90 {
		return 0, 0, ErrAllNumbersCalled
	}
	called := make(map[int]struct{}, len(calls))
	for _, n := range calls {
		called[n] = struct{}{}
	}
	remaining := make([]int, 0, 90-len(calls))
	for n := 1; n <= 90; n++ {
		if _, ok := called[n]; !ok {
			remaining = append(remaining, n)
		}
	}
	number := remaining[e.rng.Intn(len(remaining))]
	pos, err := e.callLocked(ctx, number)
	if err != nil {
		return 0, 0, err
	}
	return number, pos, nil
}

func (e *Engine) callLocked(ctx context.Context, number int) (int, error) {
	pos, err := e.sequencer.CallNumber(ctx, e.ID, number)
	if err != nil {
		return 0, err
	}

	e.fanout.Publish(e.ID, Event{
		Type:     EventNumberCalled,
		Number:   number,
		Position: pos,
	})

	affected, err := e.tickets.AutoMarkOnCall(ctx, e.ID, number)
	if err != nil {
		// The call itself is durable; auto-mark is reconstructible from the
		// sequence, so surface the error without unwinding the call.
		return pos, err
	}
	e.notifyEligible(ctx, affected)
	return pos, nil
}

// notifyEligible evaluates each affected player and privately pushes the
// categories they could now claim.
func (e *Engine) notifyEligible(ctx context.Context, players []uuid.UUID) {
	if len(players) == 0 {
		return
	}
	winners, err := e.store.Winners(ctx, e.ID)
	if err != nil {
		log.Printf("skipping eligibility notify for game %s: %v", e.ID, err)
		return
	}
	awarded := make(map[Category]struct{}, len(winners))
	for _, w := range winners {
		awarded[w.Category] = struct{}{}
	}

	for _, pid := range players {
		ticket, err := e.store.TicketOf(ctx, e.ID, pid)
		if err != nil {
			continue
		}
		marks, err := e.store.Marks(ctx, e.ID, pid)
		if err != nil {
			continue
		}
		if cats := Evaluate(ticket, marks, awarded); len(cats) > 0 {
			e.fanout.PublishTo(e.ID, pid, Event{
				Type:       EventClaimAvailable,
				Categories: cats,
			})
		}
	}
}

// Mark records an explicit client-issued mark. Safe to race with the
// auto-mark path: both reduce to an idempotent set union.
func (e *Engine) Mark(ctx context.Context, playerID uuid.UUID, number int) error {
	return e.tickets.MarkNumber(ctx, e.ID, playerID, number)
}

// Claim submits a win claim. On success the winner is broadcast and, for
// FULL_HOUSE, the game completes.
func (e *Engine) Claim(ctx context.Context, playerID uuid.UUID, category Category) (Winner, error) {
	w, err := e.arbiter.Claim(ctx, e.ID, playerID, category, e.Prizes[category])
	if err != nil {
		return Winner{}, err
	}

	e.fanout.Publish(e.ID, Event{
		Type:   EventWinnerAnnounced,
		Winner: &w,
	})

	if category == CategoryFullHouse {
		if err := e.Complete(ctx, "full_house_awarded"); err != nil {
			log.Printf("failed to complete game %s after full house: %v", e.ID, err)
		}
	}
	return w, nil
}

// Snapshot assembles the full recovery view for a (re)connecting player.
func (e *Engine) Snapshot(ctx context.Context, playerID uuid.UUID) (StateSnapshot, error) {
	return e.recon.Snapshot(ctx, e.ID, playerID)
}

// Complete transitions ACTIVE -> COMPLETED, arms the ephemeral retention
// TTL, and broadcasts game_completed. Idempotent for an already-completed
// game.
func (e *Engine) Complete(ctx context.Context, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.store.Status(ctx, e.ID)
	if err != nil {
		return err
	}
	if status == StatusCompleted {
		return nil
	}
	if err := e.store.SetStatus(ctx, e.ID, StatusCompleted); err != nil {
		return err
	}
	if e.OnStatusChange != nil {
		e.OnStatusChange(ctx, StatusCompleted)
	}
	if err := e.store.ExpireGame(ctx, e.ID, e.Retention); err != nil {
		log.Printf("failed to arm retention TTL for game %s: %v", e.ID, err)
	}
	e.fanout.Publish(e.ID, Event{
		Type:    EventGameCompleted,
		Payload: map[string]interface{}{"reason": reason},
	})
	return nil
}

// Status returns the game's lifecycle status.
func (e *Engine) Status(ctx context.Context) (GameStatus, error) {
	return e.store.Status(ctx, e.ID)
}
