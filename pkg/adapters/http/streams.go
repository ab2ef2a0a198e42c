package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/session"
)

// ErrNoSubscribers reports that no view is attached to the session, so navigation had no effect.
var ErrNoSubscribers = errors.New("no event stream subscribed to session")

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// StreamManager handles active SSE connections.
// It doubles as the engine's navigator: a committed transition is pushed to every
// stream of the session as a navigate event.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Event]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a stream for the session. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of open streams for the session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast delivers the event to every stream of the session and returns how many received it.
// Slow clients whose buffer is full miss the event.
func (sm *StreamManager) Broadcast(sessionID string, evt Event) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	delivered := 0
	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- evt:
			delivered++
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID, "event", evt.Name)
		}
	}
	sm.logger.Debug("SSE: Broadcast", "session_id", sessionID, "event", evt.Name, "delivered", delivered)
	return delivered
}

// BroadcastJSON marshals v as the event data.
func (sm *StreamManager) BroadcastJSON(sessionID, name string, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal %s event: %w", name, err)
	}
	return sm.Broadcast(sessionID, Event{Name: name, Data: string(data)}), nil
}

// Navigate implements ports.Navigator. The session comes from the context.
func (sm *StreamManager) Navigate(ctx context.Context, target string) error {
	sessionID, ok := session.IDFromContext(ctx)
	if !ok {
		return errors.New("navigate: no session id in context")
	}
	n, err := sm.BroadcastJSON(sessionID, EventNavigate, NavigatePayload{SessionID: sessionID, Target: target})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSubscribers
	}
	return nil
}
