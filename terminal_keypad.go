// terminal_keypad.go - Terminal keystrokes as a pulled-up button bank

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
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

// keyHoldTime is how long a keystroke keeps its line low. Terminals only
// report key-down, so every byte becomes a short press.
const keyHoldTime = 120 * time.Millisecond

const (
	keyCtrlC = 0x03
	keyQuit  = 'q'
	keyMute  = 'm'
)

// TerminalKeypad turns raw-mode terminal keystrokes into a pulled-up pin
// bank for headless runs.
type TerminalKeypad struct {
	logger *zap.Logger
	onQuit func()
	onMute func()
	now    func() time.Time

	// held stores, per line, the UnixNano instant the line goes high again.
	held [32]atomic.Int64

	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewTerminalKeypad(onQuit func(), logger *zap.Logger) *TerminalKeypad {
	return &TerminalKeypad{
		logger: logger,
		onQuit: onQuit,
		now:    time.Now,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin in raw mode and begins reading keys. Without a terminal
// the keypad stays released.
func (k *TerminalKeypad) Start() {
	k.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(k.fd) {
		k.logger.Info("stdin is not a terminal, keypad disabled")
		close(k.done)
		return
	}
	oldState, err := term.MakeRaw(k.fd)
	if err != nil {
		k.logger.Warn("failed to set raw mode", zap.Error(err))
		close(k.done)
		return
	}
	k.oldTermState = oldState
	k.startReader()
}

// Stop ends the reader and restores the terminal.
func (k *TerminalKeypad) Stop() {
	k.stopped.Do(func() {
		close(k.stopCh)
	})
	k.stopReader()
	if k.oldTermState != nil {
		_ = term.Restore(k.fd, k.oldTermState)
		k.oldTermState = nil
	}
}

func (k *TerminalKeypad) ReadPin(pin kernel.LineID) bool {
	if int(pin) >= len(k.held) {
		return true
	}
	return k.now().UnixNano() >= k.held[pin].Load()
}

// routeKey handles one byte from the terminal.
func (k *TerminalKeypad) routeKey(b byte) {
	if b == keyCtrlC || b == keyQuit {
		if k.onQuit != nil {
			k.onQuit()
		}
		return
	}
	if b == keyMute {
		if k.onMute != nil {
			k.onMute()
		}
		return
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	line, ok := kernel.LineForKey(rune(b))
	if !ok {
		return
	}
	k.held[line].Store(k.now().Add(keyHoldTime).UnixNano())
}

var _ kernel.PinReader = (*TerminalKeypad)(nil)
