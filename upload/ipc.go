// ipc.go - Single-instance upload socket

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHandheld
License: GPLv3 or later
*/

package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/storage"
)

const (
	// MaxRequestSize caps one JSON request: a full script plus envelope.
	MaxRequestSize = storage.MaxScriptSize + 4096
	ioDeadline     = 10 * time.Second
)

// ScriptExtension is the only file type accepted by open and the inbox.
const ScriptExtension = ".lua"

// Request is one client command. "upload" carries the script inline;
// "open" names an absolute path to a script file on this host.
type Request struct {
	Cmd    string `json:"cmd"`
	Name   string `json:"name,omitempty"`
	Script string `json:"script,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Response reports the outcome of a Request.
type Response struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server accepts uploads on a Unix socket.
type Server struct {
	listener net.Listener
	tracker  *Tracker
	logger   *zap.Logger
	sockPath string

	conns sync.WaitGroup
}

// DefaultSocketPath is the per-user socket location.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "intuition-handheld.sock")
	}
	return filepath.Join(os.TempDir(), "intuition-handheld.sock")
}

// Listen binds the socket at sockPath, removing a stale socket left by a
// dead instance.
func Listen(sockPath string, tracker *Tracker, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		// Stale socket cleanup: try connecting. If peer is dead, remove and retry.
		conn, dialErr := net.DialTimeout("unix", sockPath, 2*time.Second)
		if dialErr != nil {
			os.Remove(sockPath)
			ln, err = net.Listen("unix", sockPath)
			if err != nil {
				return nil, fmt.Errorf("ipc bind failed: %w", err)
			}
		} else {
			conn.Close()
			return nil, fmt.Errorf("another instance is already running")
		}
	}
	return &Server{listener: ln, tracker: tracker, logger: logger, sockPath: sockPath}, nil
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.sockPath
}

// Serve accepts connections until ctx ends, then removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()
	s.logger.Info("upload socket listening", zap.String("path", s.sockPath))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.conns.Wait()
			os.Remove(s.sockPath)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("ipc accept: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close stops accepting connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ioDeadline))

	var req Request
	dec := json.NewDecoder(io.LimitReader(conn, MaxRequestSize))
	if err := dec.Decode(&req); err != nil {
		s.writeResponse(conn, Response{Status: "err", Message: "invalid json"})
		return
	}

	var resp Response
	switch req.Cmd {
	case "upload":
		resp = s.upload(ctx, req.Name, req.Script)
	case "open":
		resp = s.open(ctx, req.Path)
	default:
		resp = Response{Status: "err", Message: "unknown command"}
	}
	s.writeResponse(conn, resp)
}

func (s *Server) upload(ctx context.Context, name, script string) Response {
	rec, err := s.tracker.Upload(ctx, name, script)
	if err != nil {
		return Response{Status: "err", Message: err.Error()}
	}
	return Response{Status: "ok", ID: rec.ID}
}

func (s *Server) open(ctx context.Context, path string) Response {
	if err := validatePath(path); err != nil {
		return Response{Status: "err", Message: err.Error()}
	}
	body, err := readScript(path)
	if err != nil {
		return Response{Status: "err", Message: err.Error()}
	}
	return s.upload(ctx, filepath.Base(path), body)
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, _ := json.Marshal(resp)
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("ipc response not delivered", zap.Error(err))
	}
}

func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("absolute path required")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ScriptExtension {
		return fmt.Errorf("unsupported extension: %s", ext)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}

// readScript reads at most one byte past the size limit so oversized files
// are rejected by the store rather than truncated.
func readScript(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxScriptSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// SendUpload uploads script to the instance listening on sockPath.
func SendUpload(sockPath, name, script string) (Response, error) {
	return send(sockPath, Request{Cmd: "upload", Name: name, Script: script})
}

// SendOpen asks the instance on sockPath to load the file at path.
func SendOpen(sockPath, path string) (Response, error) {
	return send(sockPath, Request{Cmd: "open", Path: path})
}

func send(sockPath string, req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", sockPath, ioDeadline)
	if err != nil {
		return Response{}, fmt.Errorf("cannot connect to running instance: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ioDeadline))

	data, _ := json.Marshal(req)
	if _, err := conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("send failed: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response failed: %w", err)
	}
	if resp.Status != "ok" {
		return resp, fmt.Errorf("remote error: %s", resp.Message)
	}
	return resp, nil
}
