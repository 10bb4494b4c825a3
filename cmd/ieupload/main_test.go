package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
	"github.com/intuitionamiga/IntuitionHandheld/storage"
	"github.com/intuitionamiga/IntuitionHandheld/upload"
)

type handheld struct {
	sock    string
	store   *storage.Store
	tracker *upload.Tracker
}

func startHandheld(t *testing.T) *handheld {
	t.Helper()
	dir, err := os.MkdirTemp("", "ieu")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	ctx, cancel := context.WithCancel(context.Background())
	store, err := storage.Open(ctx, filepath.Join(dir, "scripts.db"), zap.NewNop())
	require.NoError(t, err)
	tracker := upload.NewTracker(store, zap.NewNop())
	sock := filepath.Join(dir, "ipc.sock")
	srv, err := upload.Listen(sock, tracker, zap.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		store.Close()
	})
	return &handheld{sock: sock, store: store, tracker: tracker}
}

func execute(t *testing.T, stdin string, tty bool, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(strings.NewReader(stdin), func() bool { return tty })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestUploadFile(t *testing.T) {
	hh := startHandheld(t)
	script := filepath.Join(t.TempDir(), "pong.lua")
	require.NoError(t, os.WriteFile(script, []byte("addText('PONG', 8, 7)"), 0o644))

	out, err := execute(t, "", true, "--socket", hh.sock, script)
	require.NoError(t, err)

	rec, err := hh.store.Current()
	require.NoError(t, err)
	require.Equal(t, "pong.lua", rec.Name)
	require.Equal(t, "addText('PONG', 8, 7)", rec.Body)
	require.Equal(t, "uploaded "+rec.ID+"\n", out)
	require.True(t, hh.tracker.PollPending())
}

func TestUploadStdin(t *testing.T) {
	hh := startHandheld(t)

	_, err := execute(t, "tone(440)", false, "-s", hh.sock, "-n", "beep.lua")
	require.NoError(t, err)
	rec, err := hh.store.Current()
	require.NoError(t, err)
	require.Equal(t, "beep.lua", rec.Name)
	require.Equal(t, "tone(440)", rec.Body)
}

func TestUploadStdinDefaultName(t *testing.T) {
	hh := startHandheld(t)
	_, err := execute(t, "x = 1", false, "-s", hh.sock)
	require.NoError(t, err)
	rec, err := hh.store.Current()
	require.NoError(t, err)
	require.Equal(t, stdinName, rec.Name)
}

func TestOpenSendsAbsolutePath(t *testing.T) {
	hh := startHandheld(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snake.lua"), []byte("snake()"), 0o644))
	t.Chdir(dir)

	_, err := execute(t, "", true, "-s", hh.sock, "--open", "snake.lua")
	require.NoError(t, err)
	rec, err := hh.store.Current()
	require.NoError(t, err)
	require.Equal(t, "snake()", rec.Body)
}

func TestRejectedInputs(t *testing.T) {
	hh := startHandheld(t)
	tests := []struct {
		name  string
		stdin string
		tty   bool
		args  []string
		want  string
	}{
		{"terminal without file", "", true, []string{"-s", hh.sock}, "no script given"},
		{"open without file", "", false, []string{"-s", hh.sock, "--open"}, "--open needs a file"},
		{"empty script", "", false, []string{"-s", hh.sock}, "remote error"},
		{"oversized stdin", strings.Repeat("-", storage.MaxScriptSize+1), false, []string{"-s", hh.sock}, "exceeds"},
		{"missing file", "", true, []string{"-s", hh.sock, "/no/such/file.lua"}, "no such file"},
		{"no instance", "x = 1", false, []string{"-s", filepath.Join(t.TempDir(), "none.sock")}, "cannot connect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, tt.tty, tt.args...)
			require.ErrorContains(t, err, tt.want)
		})
	}
	_, err := hh.store.Current()
	require.ErrorIs(t, err, kernel.ErrNoScript)
}
