// inbox.go - Inbox directory watcher

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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// RejectedSuffix is appended to inbox files that could not be uploaded.
const RejectedSuffix = ".rejected"

// Inbox uploads script files dropped into a watched directory. Files are
// picked up once writes have been quiet for the debounce window, then
// removed.
type Inbox struct {
	dir      string
	tracker  *Tracker
	logger   *zap.Logger
	debounce time.Duration
	tick     time.Duration
}

// NewInbox watches dir once Run is called.
func NewInbox(dir string, tracker *Tracker, logger *zap.Logger) *Inbox {
	return &Inbox{
		dir:      dir,
		tracker:  tracker,
		logger:   logger,
		debounce: 300 * time.Millisecond, // Debounce rapid saves
		tick:     100 * time.Millisecond,
	}
}

// Run watches the inbox until ctx ends. Files already present at start are
// uploaded too.
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}
	in.logger.Info("watching upload inbox", zap.String("dir", in.dir))

	pending := make(map[string]time.Time)
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("failed to scan inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && isScriptFile(entry.Name()) {
			pending[filepath.Join(in.dir, entry.Name())] = time.Time{}
		}
	}

	ticker := time.NewTicker(in.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isScriptFile(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[event.Name] = time.Now()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("inbox watcher error", zap.Error(err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < in.debounce {
					continue
				}
				delete(pending, path)
				in.ingest(ctx, path)
			}
		}
	}
}

func (in *Inbox) ingest(ctx context.Context, path string) {
	body, err := readScript(path)
	if err != nil {
		in.logger.Warn("inbox file unreadable", zap.String("path", path), zap.Error(err))
		return
	}
	if _, err := in.tracker.Upload(ctx, filepath.Base(path), body); err != nil {
		if rerr := os.Rename(path, path+RejectedSuffix); rerr != nil {
			in.logger.Warn("failed to set aside rejected file", zap.String("path", path), zap.Error(rerr))
		}
		return
	}
	if err := os.Remove(path); err != nil {
		in.logger.Warn("failed to remove uploaded file", zap.String("path", path), zap.Error(err))
	}
}

func isScriptFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ScriptExtension)
}
