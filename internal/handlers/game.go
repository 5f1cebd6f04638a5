// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tambola-hq/tambola/internal/database"
	"github.com/tambola-hq/tambola/internal/game"
)

type createGameRequest struct {
	Prizes game.PrizeConfig `json:"prizes,omitempty"`
}

// CreateGameHandler handles POST /game/create. The authenticated caller
// becomes the organizer; the optional body sets per-category prize amounts.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hostID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		var req createGameRequest
		if r.Body != nil {
			// An empty body means default (zero) prizes.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		for cat := range req.Prizes {
			if !cat.Valid() {
				http.Error(w, "unknown prize category: "+string(cat), http.StatusBadRequest)
				return
			}
		}

		e, err := gs.CreateGame(r.Context(), hostID, req.Prizes)
		if err != nil {
			gs.Logf("failed to create game: %v", err)
			http.Error(w, "failed to create game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"game_id": e.ID,
		})
	}
}

// GameWinnersHandler handles GET /game/winners/{game_id}. It reads the
// durable winner records, which outlive the ephemeral game state's
// retention window, falling back to the live state store when no durable
// store is configured.
func GameWinnersHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/game/winners/")
		gameID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid game_id", http.StatusBadRequest)
			return
		}

		var winners []game.Winner
		if database.DB != nil {
			winners, err = database.NewWinnerStore().ListWinners(r.Context(), gameID)
		} else {
			winners, err = gs.Store.Winners(r.Context(), gameID)
		}
		if err != nil {
			gs.Logf("failed to list winners for game %s: %v", gameID, err)
			http.Error(w, "failed to list winners", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"game_id": gameID,
			"winners": winners,
		})
	}
}
