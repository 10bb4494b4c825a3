// store.go - SQLite script store

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

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

// MaxScriptSize is the largest script body the store accepts.
const MaxScriptSize = 64 << 10

// ErrEmptyScript rejects uploads without a body.
var ErrEmptyScript = errors.New("script body is empty")

const schema = `
CREATE TABLE IF NOT EXISTS scripts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	uploaded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scripts_uploaded ON scripts(uploaded_at);
`

// Record is one stored upload.
type Record struct {
	ID         string
	Name       string
	Body       string
	UploadedAt time.Time
}

// Store keeps every uploaded script in SQLite. The newest upload is the
// current script and is cached so the kernel can poll it every frame.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current *Record
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	rec, err := s.latest(ctx)
	switch {
	case err == nil:
		s.current = &rec
		logger.Info("stored script found", zap.String("id", rec.ID), zap.String("name", rec.Name))
	case errors.Is(err, kernel.ErrNoScript):
		logger.Info("no stored script")
	default:
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores body as the new current script.
func (s *Store) Save(ctx context.Context, name, body string) (Record, error) {
	if body == "" {
		return Record{}, ErrEmptyScript
	}
	if len(body) > MaxScriptSize {
		return Record{}, fmt.Errorf("script is %d bytes, limit is %d", len(body), MaxScriptSize)
	}
	if name == "" {
		name = "untitled"
	}
	rec := Record{
		ID:         uuid.NewString(),
		Name:       name,
		Body:       body,
		UploadedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scripts (id, name, body, uploaded_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Body, rec.UploadedAt.UnixNano())
	if err != nil {
		return Record{}, fmt.Errorf("failed to store script: %w", err)
	}

	s.mu.Lock()
	s.current = &rec
	s.mu.Unlock()
	s.logger.Info("script stored",
		zap.String("id", rec.ID),
		zap.String("name", rec.Name),
		zap.Int("bytes", len(body)))
	return rec, nil
}

// Current returns the newest script or kernel.ErrNoScript.
func (s *Store) Current() (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Record{}, kernel.ErrNoScript
	}
	return *s.current, nil
}

// ReadCurrentScript implements kernel.ScriptStore.
func (s *Store) ReadCurrentScript() (string, bool) {
	rec, err := s.Current()
	if err != nil {
		return "", false
	}
	return rec.Body, true
}

// Get loads one record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, body, uploaded_at FROM scripts WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("script %s: %w", id, kernel.ErrNoScript)
	}
	return rec, err
}

// History returns up to n records, newest first.
func (s *Store) History(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, body, uploaded_at FROM scripts ORDER BY rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) latest(ctx context.Context) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, body, uploaded_at FROM scripts ORDER BY rowid DESC LIMIT 1`)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, kernel.ErrNoScript
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var nanos int64
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Body, &nanos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan script: %w", err)
	}
	rec.UploadedAt = time.Unix(0, nanos).UTC()
	return rec, nil
}

var _ kernel.ScriptStore = (*Store)(nil)
