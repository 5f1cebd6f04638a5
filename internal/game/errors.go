// internal/game/errors.go
package game

import "errors"

// Validation and state errors surfaced synchronously to the caller. The
// transport layer maps these onto user-visible messages; the engine never
// retries them on its own.
var (
	// ErrInvalidState is returned when an operation is attempted while the
	// game is not in the required lifecycle status (e.g. calling a number
	// before the game is started).
	ErrInvalidState = errors.New("game is not in a valid state for this operation")

	// ErrDuplicateCall is returned when a number already present in the call
	// sequence is called again.
	ErrDuplicateCall = errors.New("number has already been called")

	// ErrOutOfRange is returned for a called or marked number outside 1..90.
	ErrOutOfRange = errors.New("number is outside the valid 1-90 range")

	// ErrAlreadyAssigned is returned when a ticket is assigned twice to the
	// same player.
	ErrAlreadyAssigned = errors.New("player already has a ticket assigned")

	// ErrNotOnTicket is returned when a player marks a number their ticket
	// does not contain.
	ErrNotOnTicket = errors.New("number is not on the player's ticket")

	// ErrNotCalledYet is returned when a player marks a number before it has
	// appeared in the call sequence. Clients may legitimately retry after the
	// next number_called event.
	ErrNotCalledYet = errors.New("number has not been called yet")

	// ErrAlreadyClaimed is returned when the claimed category has already
	// been awarded for this game.
	ErrAlreadyClaimed = errors.New("category has already been claimed")

	// ErrNotEligible is returned when the claimant's marked numbers do not
	// satisfy the claimed category.
	ErrNotEligible = errors.New("player is not eligible for this category")

	// ErrPlayerNotFound is returned when the player never joined the game.
	// Reconnection must not silently fabricate a fresh player.
	ErrPlayerNotFound = errors.New("player not found in game")

	// ErrGameNotFound is returned when no game exists for the given ID.
	ErrGameNotFound = errors.New("game not found")

	// ErrAllNumbersCalled is returned by Draw once every number 1..90 has
	// been called.
	ErrAllNumbersCalled = errors.New("all numbers have been called")
)

// ErrStoreUnavailable wraps infrastructure failures from the backing store
// so the transport layer can distinguish "retry later" from validation
// rejections. Match with errors.Is.
var ErrStoreUnavailable = errors.New("state store unavailable")
