package middleware_test

import (
	"context"
	"sync"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/ports"
)

// MockStore is a map-based store that can be told to fail.
type MockStore struct {
	mu    sync.Mutex
	data  map[string]*domain.State
	calls []string
	Err   error
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.State),
	}
}

func (s *MockStore) record(op string) error {
	s.calls = append(s.calls, op)
	return s.Err
}

func (s *MockStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *MockStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("save"); err != nil {
		return err
	}
	s.data[sessionID] = state.Clone()
	return nil
}

func (s *MockStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("load"); err != nil {
		return nil, err
	}
	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (s *MockStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("delete"); err != nil {
		return err
	}
	delete(s.data, sessionID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("list"); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.StateStore = (*MockStore)(nil)
