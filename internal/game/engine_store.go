// internal/game/engine_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// EngineStore holds the live engines this process is serving, keyed by
// game ID.
type EngineStore struct {
	mu      sync.Mutex
	engines map[uuid.UUID]*Engine
}

func NewEngineStore() *EngineStore {
	return &EngineStore{
		engines: make(map[uuid.UUID]*Engine),
	}
}

func (s *EngineStore) Add(e *Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[e.ID] = e
}

func (s *EngineStore) Get(id uuid.UUID) (*Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.engines[id]
	return e, exists
}

func (s *EngineStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, id)
}
