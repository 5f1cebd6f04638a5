// internal/game/category.go
package game

import (
	"time"

	"github.com/google/uuid"
)

// Category identifies one exclusive win category. Each category is awarded
// at most once per game.
type Category string

const (
	CategoryEarlyFive  Category = "EARLY_FIVE"
	CategoryTopLine    Category = "TOP_LINE"
	CategoryMiddleLine Category = "MIDDLE_LINE"
	CategoryBottomLine Category = "BOTTOM_LINE"
	CategoryFullHouse  Category = "FULL_HOUSE"
)

// Categories lists every claimable category in announcement order.
var Categories = []Category{
	CategoryEarlyFive,
	CategoryTopLine,
	CategoryMiddleLine,
	CategoryBottomLine,
	CategoryFullHouse,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEarlyFive, CategoryTopLine, CategoryMiddleLine, CategoryBottomLine, CategoryFullHouse:
		return true
	}
	return false
}

// PrizeConfig maps each category to its prize amount for one game. Zero or
// missing entries mean the category carries no prize but is still claimable.
type PrizeConfig map[Category]int

// Winner records a successful claim. Created exactly once per category per
// game, immutable afterward, and persisted durably beyond the ephemeral
// game state's retention window.
type Winner struct {
	GameID      uuid.UUID `json:"game_id"`
	Category    Category  `json:"category"`
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Prize       int       `json:"prize,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// GameStatus is the one-way game lifecycle: LOBBY -> ACTIVE -> COMPLETED.
type GameStatus string

const (
	StatusLobby     GameStatus = "LOBBY"
	StatusActive    GameStatus = "ACTIVE"
	StatusCompleted GameStatus = "COMPLETED"
)
