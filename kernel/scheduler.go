// scheduler.go - Per-frame scheduler

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
	"time"

	"go.uber.org/zap"
)

// FrameScheduler is the main loop of a running session. Every step is
// bounded; the only way out is a fresh upload.
type FrameScheduler struct {
	engine  ScriptEngine
	harness *Harness
	audio   AudioSink
	sup     *Supervisor
	upload  UploadSource
	events  <-chan InputEvent
	clock   Clock
	logger  *zap.Logger

	last   time.Time
	frames uint64
}

// NewFrameScheduler builds a scheduler. harness and audio may be nil.
func NewFrameScheduler(engine ScriptEngine, harness *Harness, audio AudioSink, sup *Supervisor, upload UploadSource, events <-chan InputEvent, clock Clock, logger *zap.Logger) *FrameScheduler {
	return &FrameScheduler{
		engine:  engine,
		harness: harness,
		audio:   audio,
		sup:     sup,
		upload:  upload,
		events:  events,
		clock:   clock,
		logger:  logger,
	}
}

// Begin samples the baseline for the first elapsed-time computation.
func (f *FrameScheduler) Begin() {
	f.last = f.clock.Now()
}

// Frames returns the number of completed iterations.
func (f *FrameScheduler) Frames() uint64 {
	return f.frames
}

// Step runs one iteration and reports whether a new script arrived, which
// ends the session.
func (f *FrameScheduler) Step() (rebootRequired bool) {
drain:
	for {
		select {
		case ev := <-f.events:
			f.engine.DispatchPress(ev.Line)
		default:
			break drain
		}
	}

	if f.harness != nil && f.harness.Active() {
		if err := f.harness.Advance(f.clock.Now()); err != nil {
			f.sup.Fatal(err.Error())
		}
	}

	f.engine.PumpAsync()

	now := f.clock.Now()
	elapsed := elapsedMillis(f.last, now)
	f.last = now
	f.engine.DispatchFrame(elapsed)

	if f.audio != nil {
		f.audio.TryPushSamples()
	}

	f.sup.Present()
	f.frames++

	return f.upload.PollPending()
}

// Run steps until a new upload arrives.
func (f *FrameScheduler) Run() {
	f.logger.Debug("frame loop starting")
	for !f.Step() {
	}
	f.logger.Info("frame loop interrupted by upload", zap.Uint64("frames", f.frames))
}

// elapsedMillis returns the whole milliseconds from last to now, never
// negative.
func elapsedMillis(last, now time.Time) int64 {
	ms := now.Sub(last).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
