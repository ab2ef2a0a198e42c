package http

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/stageflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamManager_BroadcastIsolation(t *testing.T) {
	sm := NewStreamManager(nil)
	a, cancelA := sm.Subscribe("a")
	defer cancelA()
	b, cancelB := sm.Subscribe("b")
	defer cancelB()

	assert.Equal(t, 1, sm.Broadcast("a", Event{Name: EventDiff, Data: "{}"}))

	select {
	case evt := <-a:
		assert.Equal(t, EventDiff, evt.Name)
	default:
		t.Fatal("expected event on session a")
	}
	select {
	case evt := <-b:
		t.Fatalf("session b received %v", evt)
	default:
	}
}

func TestStreamManager_UnsubscribeClosesChannel(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	require.Equal(t, 1, sm.Subscribers("s1"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, sm.Subscribers("s1"))
	assert.Equal(t, 0, sm.Broadcast("s1", Event{Name: EventPing}))
}

func TestStreamManager_DropsWhenBufferFull(t *testing.T) {
	sm := NewStreamManager(nil)
	_, cancel := sm.Subscribe("s1")
	defer cancel()

	delivered := 0
	for i := 0; i < 100; i++ {
		delivered += sm.Broadcast("s1", Event{Name: EventPing})
	}
	assert.Less(t, delivered, 100)
	assert.Greater(t, delivered, 0)
}

func TestStreamManager_Navigate(t *testing.T) {
	sm := NewStreamManager(nil)
	ctx := session.ContextWithID(context.Background(), "s1")

	err := sm.Navigate(ctx, "/review")
	assert.ErrorIs(t, err, ErrNoSubscribers)

	ch, cancel := sm.Subscribe("s1")
	defer cancel()
	require.NoError(t, sm.Navigate(ctx, "/review"))

	evt := <-ch
	assert.Equal(t, EventNavigate, evt.Name)
	var payload NavigatePayload
	require.NoError(t, json.Unmarshal([]byte(evt.Data), &payload))
	assert.Equal(t, "/review", payload.Target)
	assert.Equal(t, "s1", payload.SessionID)
}

func TestStreamManager_NavigateWithoutSession(t *testing.T) {
	sm := NewStreamManager(nil)
	assert.Error(t, sm.Navigate(context.Background(), "/x"))
}

func TestStreamManager_ConcurrentSubscribeBroadcast(t *testing.T) {
	sm := NewStreamManager(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancel := sm.Subscribe("s1")
			cancel()
		}()
		go func() {
			defer wg.Done()
			sm.Broadcast("s1", Event{Name: EventPing})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, sm.Subscribers("s1"))
}
