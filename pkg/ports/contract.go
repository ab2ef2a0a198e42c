package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "setup")
		state.Completed["setup"] = true
		state.CurrentStageID = "reports"
		state.History = append(state.History, "reports")

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, "reports", loaded.CurrentStageID)
		assert.True(t, loaded.IsCompleted("setup"))
		assert.Equal(t, []string{"setup", "reports"}, loaded.History)
	})

	t.Run("Load Returns Isolated Copy", func(t *testing.T) {
		state := domain.NewState(sessionID, "setup")
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.Completed["leaked"] = true

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, loaded.IsCompleted("leaked"), "store must not alias the caller's state")

		loaded.Completed["leaked-too"] = true
		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, again.IsCompleted("leaked-too"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "setup"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "setup"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "setup"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
