package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/stageflow/pkg/adapters/memory"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	for _, id := range []string{"charlie", "alpha", "bravo", "Zulu"} {
		require.NoError(t, store.Save(ctx, id, domain.NewState(id, "draft")))
	}
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zulu", "alpha", "bravo", "charlie"}, ids)
	assert.Equal(t, 4, store.Len())

	require.NoError(t, store.Delete(ctx, "bravo"))
	require.NoError(t, store.Delete(ctx, "bravo"), "delete is idempotent")
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zulu", "alpha", "charlie"}, ids)
	assert.Equal(t, 3, store.Len())
}

func TestMemoryStore_RejectsNilState(t *testing.T) {
	store := memory.NewStore()
	err := store.Save(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, memory.ErrNilState)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_SaveIsolatesCaller(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	state := domain.NewState("s1", "draft")
	require.NoError(t, store.Save(ctx, "s1", state))
	state.CurrentStageID = "publish"
	state.History = append(state.History, "publish")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "draft", loaded.CurrentStageID)
	assert.Equal(t, []string{"draft"}, loaded.History)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), "s1", domain.NewState("s1", "draft")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, "s2", domain.NewState("s2", "draft")), context.Canceled)
	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Delete(ctx, "s1"), context.Canceled)
	_, err = store.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.Len(), "nothing changed under a cancelled context")
}
