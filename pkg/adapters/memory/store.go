package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aretw0/stageflow/pkg/domain"
)

// ErrNilState is returned when Save is handed a nil state.
var ErrNilState = errors.New("memory: nil session state")

// Store keeps session states in a process-local map.
// Values are cloned on the way in and out, so a caller holding a *domain.State
// never aliases what the store holds. Safe for concurrent use.
//
// Every method fails fast with ctx.Err() once the context is done.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.State
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*domain.State)}
}

func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return ErrNilState
	}
	snapshot := state.Clone()

	s.mu.Lock()
	s.sessions[sessionID] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Delete is idempotent: removing an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// List returns the stored session ids sorted lexically, so repeated calls
// over the same contents yield the same slice. It never returns nil.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

// Len reports how many sessions are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
