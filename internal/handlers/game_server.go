// internal/handlers/game_server.go
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tambola-hq/tambola/internal/database"
	"github.com/tambola-hq/tambola/internal/game"
	"github.com/tambola-hq/tambola/internal/models"
)

// GameServer holds the shared engine store and the dependencies every
// engine is built from: the state store, the claim locker, the fanout and
// the durable winner sink.
type GameServer struct {
	Engines  *game.EngineStore
	Store    game.Store
	Locker   game.Locker
	Fanout   *game.Fanout
	Recorder game.WinnerRecorder
	Logf     func(f string, v ...interface{})
}

// NewGameServer wires a GameServer. recorder may be nil when running
// without a durable store (tests, local development).
func NewGameServer(store game.Store, locker game.Locker, recorder game.WinnerRecorder) *GameServer {
	return &GameServer{
		Engines:  game.NewEngineStore(),
		Store:    store,
		Locker:   locker,
		Fanout:   game.NewFanout(),
		Recorder: recorder,
		Logf:     log.Printf,
	}
}

// CreateGame builds a new engine for a fresh game hosted by hostAccountID,
// initializes its state, records the durable row, and registers it.
func (gs *GameServer) CreateGame(ctx context.Context, hostAccountID uuid.UUID, prizes game.PrizeConfig) (*game.Engine, error) {
	e := gs.newEngine(uuid.New(), hostAccountID, prizes)
	if err := e.Create(ctx); err != nil {
		return nil, err
	}

	if database.DB != nil {
		rec := &models.GameRecord{
			ID:         e.ID,
			HostUserID: hostAccountID,
			Status:     game.StatusLobby,
			Prizes:     e.Prizes,
		}
		if err := database.InsertGame(ctx, rec); err != nil {
			gs.Logf("failed to persist game %s metadata: %v", e.ID, err)
		}
	}

	gs.Engines.Add(e)
	return e, nil
}

// ResumeGame returns the live engine for gameID, rehydrating it from the
// durable row when this process does not hold one yet (another backend
// created the game, or the process restarted). The shared store and locker
// keep game state and claim arbitration consistent across processes.
func (gs *GameServer) ResumeGame(ctx context.Context, gameID uuid.UUID) (*game.Engine, error) {
	if e, ok := gs.Engines.Get(gameID); ok {
		return e, nil
	}
	if database.DB == nil {
		return nil, game.ErrGameNotFound
	}
	rec, err := database.GetGame(ctx, gameID)
	if err != nil {
		return nil, game.ErrGameNotFound
	}

	e := gs.newEngine(rec.ID, rec.HostUserID, rec.Prizes)
	gs.Engines.Add(e)
	return e, nil
}

func (gs *GameServer) newEngine(gameID, hostAccountID uuid.UUID, prizes game.PrizeConfig) *game.Engine {
	e := game.NewEngine(gameID, gs.Store, gs.Locker, gs.Fanout, gs.Recorder)
	e.HostAccountID = hostAccountID
	if prizes != nil {
		e.Prizes = prizes
	}
	e.OnStatusChange = func(ctx context.Context, status game.GameStatus) {
		if database.DB != nil {
			if err := database.UpdateGameStatus(ctx, gameID, status); err != nil {
				gs.Logf("failed to persist status %s for game %s: %v", status, gameID, err)
			}
		}
		if status == game.StatusCompleted {
			// Evict the live engine and its subscribers when the ephemeral
			// state's retention window closes.
			time.AfterFunc(e.Retention, func() {
				gs.Engines.Delete(gameID)
				gs.Fanout.CloseGame(gameID)
			})
		}
	}
	return e
}
