// internal/game/arbiter.go
package game

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// ClaimArbiter serializes concurrent win claims so each category is awarded
// to exactly one player per game. Claims for different categories never
// block each other; claims for the same category queue on the per-(game,
// category) lock, and whichever claim is serialized first wins. A claimant
// that was first in wall-clock submission order but lost the race for the
// lock gets ErrAlreadyClaimed; that is the defined tie-break, not an error.
type ClaimArbiter struct {
	store    Store
	locker   Locker
	recorder WinnerRecorder // optional durable sink
}

// NewClaimArbiter returns an arbiter. recorder may be nil, in which case
// winners live only in the state store.
func NewClaimArbiter(store Store, locker Locker, recorder WinnerRecorder) *ClaimArbiter {
	return &ClaimArbiter{store: store, locker: locker, recorder: recorder}
}

// Claim validates and records a win claim. Under the lock it re-validates
// both exclusivity (category not yet awarded, else ErrAlreadyClaimed) and
// eligibility (the player's current marks satisfy the category, else
// ErrNotEligible). The critical section performs only store reads and the
// winner append; durable persistence happens after release.
func (a *ClaimArbiter) Claim(ctx context.Context, gameID, playerID uuid.UUID, category Category, prize int) (Winner, error) {
	if !category.Valid() {
		return Winner{}, ErrNotEligible
	}

	// Everything the lock protects reads from the store, so fetch the
	// player's identity first; an unknown player never needs the lock.
	info, err := a.store.Player(ctx, gameID, playerID)
	if err != nil {
		return Winner{}, err
	}

	release, err := a.locker.Acquire(ctx, gameID, category)
	if err != nil {
		return Winner{}, err
	}
	defer release()

	awarded, err := a.awardedSet(ctx, gameID)
	if err != nil {
		return Winner{}, err
	}
	if _, taken := awarded[category]; taken {
		return Winner{}, ErrAlreadyClaimed
	}

	ticket, err := a.store.TicketOf(ctx, gameID, playerID)
	if err != nil {
		return Winner{}, err
	}
	marks, err := a.store.Marks(ctx, gameID, playerID)
	if err != nil {
		return Winner{}, err
	}
	if !categoryIn(Evaluate(ticket, marks, awarded), category) {
		return Winner{}, ErrNotEligible
	}

	w := Winner{
		GameID:      gameID,
		Category:    category,
		PlayerID:    playerID,
		DisplayName: info.DisplayName,
		Prize:       prize,
		Timestamp:   time.Now().UTC(),
	}
	if err := a.store.AppendWinner(ctx, gameID, w); err != nil {
		return Winner{}, err
	}

	if a.recorder != nil {
		// Durable write happens outside the lock; the state store copy is
		// already authoritative for exclusivity.
		go func(w Winner) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.recorder.RecordWinner(ctx, w); err != nil {
				log.Printf("failed to persist winner %s/%s for game %s: %v", w.Category, w.PlayerID, w.GameID, err)
			}
		}(w)
	}
	return w, nil
}

func (a *ClaimArbiter) awardedSet(ctx context.Context, gameID uuid.UUID) (map[Category]struct{}, error) {
	winners, err := a.store.Winners(ctx, gameID)
	if err != nil {
		return nil, err
	}
	set := make(map[Category]struct{}, len(winners))
	for _, w := range winners {
		set[w.Category] = struct{}{}
	}
	return set, nil
}

func categoryIn(cats []Category, c Category) bool {
	for _, v := range cats {
		if v == c {
			return true
		}
	}
	return false
}
