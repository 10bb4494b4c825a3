// watchdog_host.go - Host watchdog: immediate reset and hang timer

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

package main

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// hostWatchdog resets the handheld by replacing the running process with a
// fresh copy of itself. A non-zero Arm starts a hang timer that Feed keeps
// pushing back.
type hostWatchdog struct {
	logger *zap.Logger
	reset  func() error

	mu      sync.Mutex
	timer   *time.Timer
	timeout time.Duration
	fired   bool
}

func newHostWatchdog(logger *zap.Logger) *hostWatchdog {
	return &hostWatchdog{logger: logger, reset: reexec}
}

func (w *hostWatchdog) Arm(timeout time.Duration) {
	if timeout <= 0 {
		w.fire("immediate")
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = timeout
	if w.timer != nil {
		w.timer.Reset(timeout)
		return
	}
	w.timer = time.AfterFunc(timeout, func() { w.fire("expired") })
}

// Feed pushes the hang timer back by a full timeout. It is a no-op until
// the watchdog is armed.
func (w *hostWatchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil && !w.fired {
		w.timer.Reset(w.timeout)
	}
}

// Stop disarms the hang timer before a clean shutdown.
func (w *hostWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *hostWatchdog) fire(reason string) {
	w.mu.Lock()
	if w.fired {
		w.mu.Unlock()
		return
	}
	w.fired = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.logger.Warn("watchdog reset", zap.String("reason", reason))
	_ = w.logger.Sync()
	if err := w.reset(); err != nil {
		// The caller keeps spinning; nothing else to do on the host.
		w.logger.Error("watchdog reset failed", zap.Error(err))
	}
}
