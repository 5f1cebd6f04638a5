// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tambola-hq/tambola/internal/game"
	"github.com/tambola-hq/tambola/internal/models"
)

// InsertGame creates the durable game row in LOBBY status.
func InsertGame(ctx context.Context, rec *models.GameRecord) error {
	prizes, err := json.Marshal(rec.Prizes)
	if err != nil {
		return fmt.Errorf("failed to marshal prize config: %w", err)
	}
	q := `
		INSERT INTO games (id, host_user_id, status, prize_config, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, rec.ID, rec.HostUserID, rec.Status, prizes)
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

// GetGame fetches a game's durable metadata.
func GetGame(ctx context.Context, gameID uuid.UUID) (*models.GameRecord, error) {
	var rec models.GameRecord
	var prizes []byte
	q := `
		SELECT id, host_user_id, status, prize_config, created_at
		FROM games
		WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, gameID).Scan(
		&rec.ID, &rec.HostUserID, &rec.Status, &prizes, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(prizes) > 0 {
		if err := json.Unmarshal(prizes, &rec.Prizes); err != nil {
			return nil, fmt.Errorf("corrupt prize config for game %s: %w", gameID, err)
		}
	}
	return &rec, nil
}

// UpdateGameStatus records a lifecycle transition on the durable row.
func UpdateGameStatus(ctx context.Context, gameID uuid.UUID, status game.GameStatus) error {
	q := `UPDATE games SET status = $1 WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, status, gameID)
		return e
	})
}
