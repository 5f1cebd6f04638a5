// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tambola-hq/tambola/internal/game"
	"github.com/tambola-hq/tambola/internal/middleware"
)

// GameMessage is the incoming WebSocket message shape. Type selects the
// operation; the remaining fields are that operation's payload.
type GameMessage struct {
	Type string `json:"type"`

	// Number for call_number and mark_number.
	Number int `json:"number,omitempty"`

	// Category for claim_win.
	Category game.Category `json:"category,omitempty"`

	// DisplayName optionally overrides the account username at join time.
	DisplayName string `json:"display_name,omitempty"`
}

// GameWSHandler upgrades the connection for a game session: it
// authenticates the account, joins (or rejoins) the player into the game,
// subscribes the session to the game's fanout, pushes the initial state
// snapshot, and then serves the read loop.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// URL path: /game/ws/{game_id}
		gameIDStr := strings.TrimPrefix(r.URL.Path, "/game/ws/")
		if i := strings.Index(gameIDStr, "/"); i >= 0 {
			gameIDStr = gameIDStr[:i]
		}
		if gameIDStr == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(gameIDStr)
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		e, err := gs.ResumeGame(r.Context(), gameID)
		if err != nil {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"tambola"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "tambola" {
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'tambola' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		accountID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("Authentication failed for game %s: %v", gameID, err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}

		displayName := r.URL.Query().Get("name")
		if displayName == "" {
			displayName = "Guest"
		}
		player, _, err := e.Join(r.Context(), accountID, displayName)
		if err != nil {
			logger.Warnf("Join failed for account %s in game %s: %v", accountID, gameID, err)
			c.Close(websocket.StatusPolicyViolation, "Unable to join this game.")
			return
		}
		logger.Infof("Player %s (account %s) connected to game %s", player.ID, accountID, gameID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Subscribe before the initial snapshot write so no event between
		// snapshot assembly and subscription is lost; the client dedupes by
		// call position.
		sub := gs.Fanout.Subscribe(gameID, player.ID)
		defer gs.Fanout.Unsubscribe(gameID, sub)
		go writeEvents(ctx, c, sub)

		// Initial state sync, the same payload a state_sync request gets.
		if snap, err := e.Snapshot(ctx, player.ID); err != nil {
			logger.Warnf("Initial snapshot failed for player %s in game %s: %v", player.ID, gameID, err)
		} else {
			sendWsMessage(ctx, c, game.Event{Type: game.EventStateSync, State: &snap})
		}

		readGameMessages(ctx, c, e, player.ID, accountID, logger)

		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// writeEvents pumps the subscriber's queue to the socket. Exits when the
// subscriber is dropped or the connection context ends.
func writeEvents(ctx context.Context, c *websocket.Conn, sub *game.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-sub.Ch():
			if !ok {
				c.Close(websocket.StatusTryAgainLater, "Event queue overflow, reconnect to resync.")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// readGameMessages serves the connection's request loop until error or
// cancellation. Organizer-only operations check the account against the
// game's host.
func readGameMessages(ctx context.Context, c *websocket.Conn, e *game.Engine, playerID, accountID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in game %s.", playerID, e.ID)
			} else if !errors.Is(err, context.Canceled) {
				logger.Warnf("Error reading from WebSocket for player %s in game %s: %v", playerID, e.ID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "invalid_json", "Invalid JSON format.")
			continue
		}
		logger.Debugf("Received '%s' from player %s in game %s.", msg.Type, playerID, e.ID)

		switch msg.Type {
		case "start_game":
			if accountID != e.HostAccountID {
				sendWsError(ctx, c, "not_organizer", "Only the organizer can start the game.")
				continue
			}
			if err := e.Start(ctx); err != nil {
				sendEngineError(ctx, c, err)
			}

		case "call_number":
			if accountID != e.HostAccountID {
				sendWsError(ctx, c, "not_organizer", "Only the organizer can call numbers.")
				continue
			}
			if _, err := e.Call(ctx, msg.Number); err != nil {
				sendEngineError(ctx, c, err)
			}

		case "draw_number":
			if accountID != e.HostAccountID {
				sendWsError(ctx, c, "not_organizer", "Only the organizer can draw numbers.")
				continue
			}
			if _, _, err := e.Draw(ctx); err != nil {
				sendEngineError(ctx, c, err)
			}

		case "mark_number":
			if err := e.Mark(ctx, playerID, msg.Number); err != nil {
				sendEngineError(ctx, c, err)
			}

		case "claim_win":
			if _, err := e.Claim(ctx, playerID, msg.Category); err != nil {
				sendEngineError(ctx, c, err)
			}
			// Success needs no direct reply: the claimant sees the same
			// winner_announced broadcast as everyone else.

		case "state_sync":
			snap, err := e.Snapshot(ctx, playerID)
			if err != nil {
				sendEngineError(ctx, c, err)
				continue
			}
			sendWsMessage(ctx, c, game.Event{Type: game.EventStateSync, State: &snap})

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			sendWsError(ctx, c, "unknown_type", fmt.Sprintf("Unknown message type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// wsReason maps engine errors onto stable client-facing codes. Validation
// rejections are final; store failures are flagged retryable so the client
// can back off and resend.
func wsReason(err error) (code string, retryable bool) {
	switch {
	case errors.Is(err, game.ErrDuplicateCall):
		return "duplicate_call", false
	case errors.Is(err, game.ErrInvalidState):
		return "invalid_state", false
	case errors.Is(err, game.ErrOutOfRange):
		return "out_of_range", false
	case errors.Is(err, game.ErrNotOnTicket):
		return "not_on_ticket", false
	case errors.Is(err, game.ErrNotCalledYet):
		return "not_called_yet", false
	case errors.Is(err, game.ErrAlreadyClaimed):
		return "already_claimed", false
	case errors.Is(err, game.ErrNotEligible):
		return "not_eligible", false
	case errors.Is(err, game.ErrPlayerNotFound):
		return "player_not_found", false
	case errors.Is(err, game.ErrAllNumbersCalled):
		return "all_numbers_called", false
	case errors.Is(err, game.ErrStoreUnavailable):
		return "store_unavailable", true
	}
	return "internal_error", false
}

func sendEngineError(ctx context.Context, c *websocket.Conn, err error) {
	code, retryable := wsReason(err)
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":      "error",
		"code":      code,
		"message":   err.Error(),
		"retryable": retryable,
	})
}

// sendWsMessage marshals a message and sends it with a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error with a stable code.
func sendWsError(ctx context.Context, c *websocket.Conn, code, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": errorMsg,
	})
}
