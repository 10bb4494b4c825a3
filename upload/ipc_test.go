package upload

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/storage"
)

// shortTempDir keeps socket paths under the sun_path limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ihh")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func startServer(t *testing.T) (*Server, *Tracker, *memSaver) {
	t.Helper()
	saver := &memSaver{}
	tr := NewTracker(saver, zap.NewNop())
	sock := filepath.Join(shortTempDir(t), "ipc.sock")
	srv, err := Listen(sock, tr, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		_, err := os.Stat(sock)
		require.True(t, os.IsNotExist(err), "socket left behind")
	})
	return srv, tr, saver
}

func TestServer_Upload(t *testing.T) {
	srv, tr, saver := startServer(t)

	resp, err := SendUpload(srv.Addr(), "pong.lua", "pong()")
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "pong.lua-id", resp.ID)
	require.Equal(t, []string{"pong()"}, saver.bodies())
	require.True(t, tr.PollPending())
}

func TestServer_LargeUpload(t *testing.T) {
	srv, _, saver := startServer(t)
	script := strings.Repeat("-- padding\n", 5000)

	_, err := SendUpload(srv.Addr(), "big.lua", script)
	require.NoError(t, err)
	require.Equal(t, []string{script}, saver.bodies())
}

func TestServer_Open(t *testing.T) {
	srv, tr, saver := startServer(t)
	path := filepath.Join(t.TempDir(), "snake.lua")
	require.NoError(t, os.WriteFile(path, []byte("snake()"), 0o644))

	_, err := SendOpen(srv.Addr(), path)
	require.NoError(t, err)
	require.Equal(t, []string{"snake()"}, saver.bodies())
	require.True(t, tr.PollPending())
}

func TestServer_OpenValidation(t *testing.T) {
	srv, tr, _ := startServer(t)
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative", "game.lua", "absolute path required"},
		{"extension", txt, "unsupported extension"},
		{"missing", filepath.Join(dir, "gone.lua"), "file not found"},
		{"directory", mkdirLua(t, dir), "not a regular file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SendOpen(srv.Addr(), tt.path)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
	require.False(t, tr.PollPending())
}

func mkdirLua(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "folder.lua")
	require.NoError(t, os.Mkdir(p, 0o755))
	return p
}

func TestServer_BadRequests(t *testing.T) {
	srv, _, _ := startServer(t)

	send := func(raw string) Response {
		conn, err := net.DialTimeout("unix", srv.Addr(), time.Second)
		require.NoError(t, err)
		defer conn.Close()
		_, err = conn.Write([]byte(raw))
		require.NoError(t, err)
		var resp Response
		require.NoError(t, json.NewDecoder(conn).Decode(&resp))
		return resp
	}

	require.Equal(t, Response{Status: "err", Message: "invalid json"}, send("{nope"))
	require.Equal(t, Response{Status: "err", Message: "unknown command"}, send(`{"cmd":"format"}`))
	resp := send(`{"cmd":"upload","name":"x"}`)
	require.Equal(t, "err", resp.Status)
	require.Contains(t, resp.Message, storage.ErrEmptyScript.Error())
}

func TestListen_RefusesSecondInstance(t *testing.T) {
	srv, _, _ := startServer(t)
	_, err := Listen(srv.Addr(), NewTracker(&memSaver{}, zap.NewNop()), zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "already running")
}

func TestListen_ReplacesStaleSocket(t *testing.T) {
	sock := filepath.Join(shortTempDir(t), "stale.sock")
	require.NoError(t, os.WriteFile(sock, nil, 0o600))

	srv, err := Listen(sock, NewTracker(&memSaver{}, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Close())
}

func TestSend_NoInstance(t *testing.T) {
	_, err := SendUpload(filepath.Join(shortTempDir(t), "none.sock"), "a", "a()")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot connect")
}
