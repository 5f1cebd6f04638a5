// internal/game/memory.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Store implementation, used for tests and
// single-node deployments where the game is owned by one process.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[uuid.UUID]*memoryGame
}

type memoryGame struct {
	status    GameStatus
	players   map[uuid.UUID]PlayerInfo
	byAccount map[uuid.UUID]uuid.UUID
	calls     []int
	called    map[int]struct{}
	tickets   map[uuid.UUID]Ticket
	marks     map[uuid.UUID]map[int]struct{}
	index     map[int][]uuid.UUID
	winners   []Winner
	expiry    *time.Timer
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[uuid.UUID]*memoryGame)}
}

func (s *MemoryStore) game(gameID uuid.UUID) (*memoryGame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	return g, ok
}

func (s *MemoryStore) CreateGame(ctx context.Context, gameID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[gameID]; exists {
		return nil
	}
	s.games[gameID] = &memoryGame{
		status:    StatusLobby,
		players:   make(map[uuid.UUID]PlayerInfo),
		byAccount: make(map[uuid.UUID]uuid.UUID),
		called:    make(map[int]struct{}),
		tickets:   make(map[uuid.UUID]Ticket),
		marks:     make(map[uuid.UUID]map[int]struct{}),
		index:     make(map[int][]uuid.UUID),
	}
	return nil
}

func (s *MemoryStore) Status(ctx context.Context, gameID uuid.UUID) (GameStatus, error) {
	g, ok := s.game(gameID)
	if !ok {
		return "", ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return g.status, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, gameID uuid.UUID, status GameStatus) error {
	g, ok := s.game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.status = status
	return nil
}

func (s *MemoryStore) ExpireGame(ctx context.Context, gameID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if g.expiry != nil {
		g.expiry.Stop()
	}
	g.expiry = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		delete(s.games, gameID)
		s.mu.Unlock()
	})
	return nil
}

func (s *MemoryStore) PutPlayer(ctx context.Context, gameID uuid.UUID, p PlayerInfo) error {
	g, ok := s.game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.players[p.ID] = p
	g.byAccount[p.AccountID] = p.ID
	return nil
}

func (s *MemoryStore) PlayerByAccount(ctx context.Context, gameID, accountID uuid.UUID) (PlayerInfo, bool, error) {
	g, ok := s.game(gameID)
	if !ok {
		return PlayerInfo{}, false, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := g.byAccount[accountID]
	if !ok {
		return PlayerInfo{}, false, nil
	}
	return g.players[pid], true, nil
}

func (s *MemoryStore) Player(ctx context.Context, gameID, playerID uuid.UUID) (PlayerInfo, error) {
	g, ok := s.game(gameID)
	if !ok {
		return PlayerInfo{}, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := g.players[playerID]
	if !ok {
		return PlayerInfo{}, ErrPlayerNotFound
	}
	return p, nil
}

func (s *MemoryStore) AppendCall(ctx context.Context, gameID uuid.UUID, number int) (int, error) {
	g, ok := s.game(gameID)
	if !ok {
		return 0, ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := g.called[number]; dup {
		return 0, ErrDuplicateCall
	}
	g.called[number] = struct{}{}
	g.calls = append(g.calls, number)
	return len(g.calls), nil
}

func (s *MemoryStore) Calls(ctx context.Context, gameID uuid.UUID) ([]int, error) {
	g, ok := s.game(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(g.calls))
	copy(out, g.calls)
	return out, nil
}

func (s *MemoryStore) IsCalled(ctx context.Context, gameID uuid.UUID, number int) (bool, error) {
	g, ok := s.game(gameID)
	if !ok {
		return false, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, called := g.called[number]
	return called, nil
}

func (s *MemoryStore) PutTicket(ctx context.Context, gameID, playerID uuid.UUID, t Ticket) error {
	g, ok := s.game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := g.tickets[playerID]; exists {
		return ErrAlreadyAssigned
	}
	g.tickets[playerID] = t
	return nil
}

func (s *MemoryStore) TicketOf(ctx context.Context, gameID, playerID uuid.UUID) (Ticket, error) {
	g, ok := s.game(gameID)
	if !ok {
		return Ticket{}, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := g.tickets[playerID]
	if !ok {
		return Ticket{}, ErrPlayerNotFound
	}
	return t, nil
}

func (s *MemoryStore) AddMark(ctx context.Context, gameID, playerID uuid.UUID, number int) error {
	g, ok := s.game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := g.marks[playerID]
	if !ok {
		set = make(map[int]struct{})
		g.marks[playerID] = set
	}
	set[number] = struct{}{}
	return nil
}

func (s *MemoryStore) Marks(ctx context.Context, gameID, playerID uuid.UUID) (map[int]struct{}, error) {
	g, ok := s.game(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]struct{}, len(g.marks[playerID]))
	for n := range g.marks[playerID] {
		out[n] = struct{}{}
	}
	return out, nil
}

func (s *MemoryStore) IndexAdd(ctx context.Context, gameID uuid.UUID, number int, playerID uuid.UUID) error {
	g, ok := s.game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.index[number] = append(g.index[number], playerID)
	return nil
}

func (s *MemoryStore) Holders(ctx context.Context, gameID uuid.UUID, number int) ([]uuid.UUID, error) {
	g, ok := s.game(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uuid.UUID, len(g.index[number]))
	copy(out, g.index[number])
	return out, nil
}

func (s *MemoryStore) AppendWinner(ctx context.Context, gameID uuid.UUID, w Winner) error {
	g, ok := s.game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.winners = append(g.winners, w)
	return nil
}

func (s *MemoryStore) Winners(ctx context.Context, gameID uuid.UUID) ([]Winner, error) {
	g, ok := s.game(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Winner, len(g.winners))
	copy(out, g.winners)
	return out, nil
}

// MemoryLocker serializes claims with plain in-process mutexes, one per
// (game, category) pair. Suitable when a game is owned by a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, gameID uuid.UUID, category Category) (func(), error) {
	key := gameID.String() + ":" + string(category)
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
