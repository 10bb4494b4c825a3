// tracker.go - Upload tracking and pending flag

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
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
	"github.com/intuitionamiga/IntuitionHandheld/storage"
)

// Saver persists an uploaded script. storage.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, name, body string) (storage.Record, error)
}

// Tracker is the single entry point for uploads from every transport. It
// stores the script and counts the upload so the kernel sees it exactly
// once through PollPending.
type Tracker struct {
	store  Saver
	logger *zap.Logger

	pending atomic.Int64
	total   atomic.Uint64
}

// NewTracker returns a tracker with nothing pending.
func NewTracker(store Saver, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Upload stores body and marks it pending. Safe for concurrent use.
func (t *Tracker) Upload(ctx context.Context, name, body string) (storage.Record, error) {
	rec, err := t.store.Save(ctx, name, body)
	if err != nil {
		t.logger.Warn("upload rejected", zap.String("name", name), zap.Error(err))
		return storage.Record{}, err
	}
	t.pending.Add(1)
	t.total.Add(1)
	t.logger.Info("upload complete", zap.String("id", rec.ID), zap.String("name", rec.Name))
	return rec, nil
}

// PollPending reports one completed upload per true result. It never
// blocks.
func (t *Tracker) PollPending() bool {
	for {
		n := t.pending.Load()
		if n <= 0 {
			return false
		}
		if t.pending.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Total returns the number of uploads accepted since start.
func (t *Tracker) Total() uint64 {
	return t.total.Load()
}

var _ kernel.UploadSource = (*Tracker)(nil)
