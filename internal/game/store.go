// internal/game/store.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlayerInfo is the per-game player record held in the state store. The
// player ID is stable across reconnects and distinct from the underlying
// account identity.
type PlayerInfo struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	DisplayName string    `json:"display_name"`
}

// Store is the shared game state backing every engine component. The engine
// is single-writer per game for the call sequence; everything else must be
// safe for concurrent use. Implementations exist for Redis (internal/cache)
// and in-process memory (MemoryStore).
//
// Infrastructure failures must be reported wrapped in ErrStoreUnavailable so
// callers can tell them apart from validation rejections.
type Store interface {
	// CreateGame initializes the per-game key space in LOBBY status.
	CreateGame(ctx context.Context, gameID uuid.UUID) error
	// Status returns the game's lifecycle status, or ErrGameNotFound.
	Status(ctx context.Context, gameID uuid.UUID) (GameStatus, error)
	// SetStatus records a lifecycle transition.
	SetStatus(ctx context.Context, gameID uuid.UUID, status GameStatus) error
	// ExpireGame bounds the game's ephemeral state by the retention TTL.
	// Winner durability beyond the TTL is the durable store's concern.
	ExpireGame(ctx context.Context, gameID uuid.UUID, ttl time.Duration) error

	// PutPlayer records a player's membership and account mapping.
	PutPlayer(ctx context.Context, gameID uuid.UUID, p PlayerInfo) error
	// PlayerByAccount resolves the existing player for an account, if any.
	PlayerByAccount(ctx context.Context, gameID, accountID uuid.UUID) (PlayerInfo, bool, error)
	// Player returns a joined player's record, or ErrPlayerNotFound.
	Player(ctx context.Context, gameID, playerID uuid.UUID) (PlayerInfo, error)

	// AppendCall atomically appends number to the call sequence and returns
	// its 1-based position, or ErrDuplicateCall.
	AppendCall(ctx context.Context, gameID uuid.UUID, number int) (int, error)
	// Calls returns the full called-number sequence in call order. Reads are
	// prefix-consistent with concurrent appends.
	Calls(ctx context.Context, gameID uuid.UUID) ([]int, error)
	// IsCalled reports whether number already appears in the sequence.
	IsCalled(ctx context.Context, gameID uuid.UUID, number int) (bool, error)

	// PutTicket stores a player's ticket, or ErrAlreadyAssigned.
	PutTicket(ctx context.Context, gameID, playerID uuid.UUID, t Ticket) error
	// TicketOf returns the player's ticket, or ErrPlayerNotFound.
	TicketOf(ctx context.Context, gameID, playerID uuid.UUID) (Ticket, error)

	// AddMark adds number to the player's marked set. Idempotent.
	AddMark(ctx context.Context, gameID, playerID uuid.UUID, number int) error
	// Marks returns the player's marked set.
	Marks(ctx context.Context, gameID, playerID uuid.UUID) (map[int]struct{}, error)

	// IndexAdd records that playerID's ticket holds number.
	IndexAdd(ctx context.Context, gameID uuid.UUID, number int, playerID uuid.UUID) error
	// Holders returns every player whose ticket holds number.
	Holders(ctx context.Context, gameID uuid.UUID, number int) ([]uuid.UUID, error)

	// AppendWinner appends a winner record. The claim arbiter only calls
	// this while holding the per-(game, category) lock.
	AppendWinner(ctx context.Context, gameID uuid.UUID, w Winner) error
	// Winners returns all winner records for the game in award order.
	Winners(ctx context.Context, gameID uuid.UUID) ([]Winner, error)
}

// Locker provides the per-(game, category) mutual exclusion the claim
// arbiter serializes on. Acquire blocks until the lock is held and returns
// its release function; contention is resolved internally, never surfaced
// to the claimant. Backed by an in-process mutex (MemoryLocker) or a Redis
// lease with a short TTL (internal/cache).
type Locker interface {
	Acquire(ctx context.Context, gameID uuid.UUID, category Category) (release func(), err error)
}

// WinnerRecorder persists winner records durably, outliving the ephemeral
// store's retention TTL. Implemented by internal/database.
type WinnerRecorder interface {
	RecordWinner(ctx context.Context, w Winner) error
}
