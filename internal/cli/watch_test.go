package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Default pipeline", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Validate(ctx, "", &out))
		assert.Contains(t, out.String(), "default pipeline: 7 stages OK")
		assert.Contains(t, out.String(), "project-setup")
	})

	t.Run("Registry file", func(t *testing.T) {
		var out bytes.Buffer
		path := testutils.WriteRegistryFile(t, t.TempDir(), twoStages)
		require.NoError(t, Validate(ctx, path, &out))
		assert.Contains(t, out.String(), "2 stages OK")
		assert.Contains(t, out.String(), "/review")
	})

	t.Run("Duplicate ids", func(t *testing.T) {
		var out bytes.Buffer
		path := testutils.WriteRegistryFile(t, t.TempDir(), "stages:\n  - id: a\n  - id: a\n")
		assert.Error(t, Validate(ctx, path, &out))
	})

	t.Run("Loam directory", func(t *testing.T) {
		var out bytes.Buffer
		dir, _ := testutils.SetupTestRepo(t)
		testutils.WriteFiles(t, dir, map[string]string{
			"01-draft.md": "---\nid: draft\ntarget: /draft\n---\n",
		})
		require.NoError(t, Validate(ctx, dir, &out))
		assert.Contains(t, out.String(), "1 stages OK")
	})
}

func TestWatchValidate_RequiresDirectory(t *testing.T) {
	path := testutils.WriteRegistryFile(t, t.TempDir(), twoStages)
	err := WatchValidate(context.Background(), path, &bytes.Buffer{}, logging.NewNop())
	assert.ErrorContains(t, err, "stage directory")
}

// syncBuffer guards a buffer shared with the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchValidate_StopsOnCancel(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, map[string]string{
		"01-draft.md": "---\nid: draft\ntarget: /draft\n---\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- WatchValidate(ctx, dir, out, logging.NewNop()) }()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Waiting for changes"))
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "1 stages OK")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
