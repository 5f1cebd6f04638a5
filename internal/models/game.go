package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tambola-hq/tambola/internal/game"
)

// GameRecord is the durable game metadata row. Ephemeral play state (calls,
// marks, number index) lives in the cache under a retention TTL; this row
// and its winner records have none.
type GameRecord struct {
	ID         uuid.UUID        `json:"id"`
	HostUserID uuid.UUID        `json:"host_user_id"`
	Status     game.GameStatus  `json:"status"`
	Prizes     game.PrizeConfig `json:"prizes"`
	CreatedAt  time.Time        `json:"created_at"`
}
