// internal/database/winner.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tambola-hq/tambola/internal/game"
)

// WinnerStore persists winner records durably; it implements
// game.WinnerRecorder. Winner rows are written once per (game, category)
// and never updated, so prize settlement can audit them long after the
// ephemeral game state has expired.
type WinnerStore struct{}

// NewWinnerStore returns a WinnerStore over the global pool.
func NewWinnerStore() *WinnerStore {
	return &WinnerStore{}
}

// RecordWinner inserts a winner row. The (game_id, category) unique
// constraint backs up the arbiter's exclusivity: a conflicting insert is a
// bug upstream and is surfaced, not silently merged.
func (ws *WinnerStore) RecordWinner(ctx context.Context, w game.Winner) error {
	q := `
		INSERT INTO winners (game_id, category, player_id, display_name, prize, won_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, w.GameID, w.Category, w.PlayerID, w.DisplayName, w.Prize, w.Timestamp)
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to insert winner: %w", err)
	}
	return nil
}

// ListWinners returns the durable winner records for a game in award order.
func (ws *WinnerStore) ListWinners(ctx context.Context, gameID uuid.UUID) ([]game.Winner, error) {
	q := `
		SELECT game_id, category, player_id, display_name, prize, won_at
		FROM winners
		WHERE game_id = $1
		ORDER BY won_at
	`
	rows, err := DB.Query(ctx, q, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Winner
	for rows.Next() {
		var w game.Winner
		if err := rows.Scan(&w.GameID, &w.Category, &w.PlayerID, &w.DisplayName, &w.Prize, &w.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
