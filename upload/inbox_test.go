package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runInbox(t *testing.T, dir string, saver *memSaver) *Tracker {
	t.Helper()
	tr := NewTracker(saver, zap.NewNop())
	in := NewInbox(dir, tr, zap.NewNop())
	in.debounce = 20 * time.Millisecond
	in.tick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return tr
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond)
}

func TestInbox_UploadsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	saver := &memSaver{}
	tr := runInbox(t, dir, saver)

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)
	path := filepath.Join(dir, "tetris.lua")
	require.NoError(t, os.WriteFile(path, []byte("tetris()"), 0o644))

	waitFor(t, func() bool { return len(saver.bodies()) == 1 })
	require.Equal(t, []string{"tetris()"}, saver.bodies())
	require.True(t, tr.PollPending())
	waitFor(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})
}

func TestInbox_PicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.lua"), []byte("early()"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# hi"), 0o644))

	saver := &memSaver{}
	runInbox(t, dir, saver)
	waitFor(t, func() bool { return len(saver.bodies()) == 1 })
	require.Equal(t, []string{"early()"}, saver.bodies())

	_, err := os.Stat(filepath.Join(dir, "readme.md"))
	require.NoError(t, err, "non-script file touched")
}

func TestInbox_RejectedFileSetAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.lua")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	saver := &memSaver{}
	tr := runInbox(t, dir, saver)
	waitFor(t, func() bool {
		_, err := os.Stat(path + RejectedSuffix)
		return err == nil
	})
	require.False(t, tr.PollPending())
}
