// boot.go - Boot sequencer

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

package kernel

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSettleDelay lets the input lines stabilize after the poller starts.
const DefaultSettleDelay = 50 * time.Millisecond

// BootSequencer gates the session on a stored script and a deliberate
// keypress, so a script that never yields cannot lock the device the moment
// it is uploaded.
type BootSequencer struct {
	sup    *Supervisor
	store  ScriptStore
	upload UploadSource
	poller *Poller
	events <-chan InputEvent
	settle time.Duration
	sleep  func(time.Duration)
	logger *zap.Logger

	armed  bool
	script string
}

// NewBootSequencer wires the sequencer to its collaborators.
func NewBootSequencer(sup *Supervisor, store ScriptStore, upload UploadSource, poller *Poller, events <-chan InputEvent, settle time.Duration, logger *zap.Logger) *BootSequencer {
	return &BootSequencer{
		sup:    sup,
		store:  store,
		upload: upload,
		poller: poller,
		events: events,
		settle: settle,
		sleep:  time.Sleep,
		logger: logger,
	}
}

// Script returns the script that will run once the user starts the session.
func (b *BootSequencer) Script() string {
	return b.script
}

// Tick runs one idle iteration of state and returns the next state. It only
// handles StateNoScript and StateAwaitingStart.
func (b *BootSequencer) Tick(ctx context.Context, state State) State {
	switch state {
	case StateNoScript:
		return b.tickNoScript()
	case StateAwaitingStart:
		return b.tickAwaitingStart(ctx)
	}
	return state
}

func (b *BootSequencer) tickNoScript() State {
	uploaded := b.consumePending()
	if b.loadScript() {
		if uploaded {
			b.logger.Info("script uploaded")
		}
		return StateAwaitingStart
	}
	b.sup.Overlay().Set(uploadPrompt, ColorInfo, true)
	b.sup.Present()
	return StateNoScript
}

func (b *BootSequencer) tickAwaitingStart(ctx context.Context) State {
	if !b.armed {
		b.arm(ctx)
	}

	select {
	case ev := <-b.events:
		b.logger.Debug("start key pressed", zap.Uint8("line", uint8(ev.Line)))
		return StateRunning
	default:
	}

	b.sup.Overlay().Set(startPrompt, ColorInfo, true)
	b.sup.Present()
	if b.consumePending() {
		b.loadScript()
		b.logger.Info("script replaced while waiting for start")
	}
	return StateAwaitingStart
}

// Refresh absorbs uploads that landed before the session starts and rereads
// the stored script. Only uploads after this call force a reboot.
func (b *BootSequencer) Refresh() string {
	if b.consumePending() {
		b.logger.Info("script replaced at start")
	}
	b.loadScript()
	return b.script
}

// consumePending drains every upload reported so far. The store is written
// before an upload is counted, so a read after this sees the newest script.
func (b *BootSequencer) consumePending() bool {
	seen := false
	for b.upload.PollPending() {
		seen = true
	}
	return seen
}

// arm starts the poller on first entry and throws away the spurious edges
// the lines produce while they settle.
func (b *BootSequencer) arm(ctx context.Context) {
	b.armed = true
	if b.poller.Start(ctx) {
		b.sleep(b.settle)
	}
	drained := drainEvents(b.events)
	if drained > 0 {
		b.logger.Debug("discarded settle-time input events", zap.Int("count", drained))
	}
}

func (b *BootSequencer) loadScript() bool {
	script, ok := b.store.ReadCurrentScript()
	if !ok {
		return false
	}
	b.script = script
	return true
}

// drainEvents empties ch without blocking and returns the number dropped.
func drainEvents(ch <-chan InputEvent) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}
