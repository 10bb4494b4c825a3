// kernel.go - Top-level kernel driver (context B)

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

// State is the runtime state of the device.
type State int

const (
	StateNoScript State = iota
	StateAwaitingStart
	StateRunning
	StateRebootRequired
)

func (s State) String() string {
	switch s {
	case StateNoScript:
		return "no-script"
	case StateAwaitingStart:
		return "awaiting-start"
	case StateRunning:
		return "running"
	case StateRebootRequired:
		return "reboot-required"
	}
	return "unknown"
}

// Config holds the tunables of the kernel.
type Config struct {
	Lines         []LineID
	PollInterval  time.Duration
	SettleDelay   time.Duration
	CaseDelay     time.Duration
	SegmentBudget int
	AudioEnabled  bool
}

// DefaultConfig returns the reference board settings.
func DefaultConfig() Config {
	return Config{
		Lines:        DefaultLines,
		PollInterval: 500 * time.Microsecond,
		SettleDelay:  DefaultSettleDelay,
		CaseDelay:    DefaultCaseDelay,
		AudioEnabled: true,
	}
}

// Deps are the collaborators the kernel drives. Audio and Clock are optional.
type Deps struct {
	Engine   ScriptEngine
	Render   RenderPipeline
	Upload   UploadSource
	Store    ScriptStore
	Watchdog Watchdog
	Pins     PinReader
	Audio    AudioSink
	Clock    Clock
	Logger   *zap.Logger
}

// Kernel is the top-level driver. Step runs exactly one tick of the current
// state, so the whole machine can be single-stepped.
type Kernel struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	state   State
	events  chan InputEvent
	poller  *Poller
	sup     *Supervisor
	boot    *BootSequencer
	sched   *FrameScheduler
	harness *Harness
}

// New assembles the kernel. It does not start anything.
func New(cfg Config, deps Deps) (*Kernel, error) {
	switch {
	case deps.Engine == nil:
		return nil, &KernelError{Operation: "kernel setup", Details: "script engine required"}
	case deps.Render == nil:
		return nil, &KernelError{Operation: "kernel setup", Details: "render pipeline required"}
	case deps.Upload == nil:
		return nil, &KernelError{Operation: "kernel setup", Details: "upload source required"}
	case deps.Store == nil:
		return nil, &KernelError{Operation: "kernel setup", Details: "script store required"}
	case deps.Watchdog == nil:
		return nil, &KernelError{Operation: "kernel setup", Details: "watchdog required"}
	case deps.Pins == nil:
		return nil, &KernelError{Operation: "kernel setup", Details: "pin reader required"}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if len(cfg.Lines) == 0 {
		cfg.Lines = DefaultLines
	}
	if cfg.CaseDelay <= 0 {
		cfg.CaseDelay = DefaultCaseDelay
	}

	events := make(chan InputEvent, EventQueueDepth)
	logger := deps.Logger
	sup := NewSupervisor(deps.Render, deps.Watchdog, logger.Named("supervisor"))
	poller := NewPoller(deps.Pins, cfg.Lines, events, cfg.PollInterval, logger.Named("input"))

	return &Kernel{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		state:  StateNoScript,
		events: events,
		poller: poller,
		sup:    sup,
		boot:   NewBootSequencer(sup, deps.Store, deps.Upload, poller, events, cfg.SettleDelay, logger.Named("boot")),
	}, nil
}

// Supervisor exposes the fatal path to collaborators.
func (k *Kernel) Supervisor() *Supervisor {
	return k.sup
}

// State returns the current runtime state.
func (k *Kernel) State() State {
	return k.state
}

// Harness returns the test harness of the session, or nil when the script
// has no test cases or the session has not started.
func (k *Kernel) Harness() *Harness {
	return k.harness
}

// Init brings up the script engine. Failure to do so is fatal.
func (k *Kernel) Init() {
	if err := k.deps.Engine.Init(); err != nil {
		k.sup.Fatal((&KernelError{Operation: "engine init", Details: "script engine", Err: err}).Error())
	}
}

// Step runs one tick of the current state.
func (k *Kernel) Step(ctx context.Context) {
	switch k.state {
	case StateNoScript, StateAwaitingStart:
		next := k.boot.Tick(ctx, k.state)
		if next == StateRunning {
			k.startSession()
		}
		k.setState(next)
	case StateRunning:
		if k.sched.Step() {
			k.setState(StateRebootRequired)
		}
	case StateRebootRequired:
		k.sup.ForceReboot()
	}
}

// Run initializes the engine and steps until ctx ends. On the device ctx
// never ends: the session is left only through the supervisor.
func (k *Kernel) Run(ctx context.Context) error {
	k.Init()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		k.Step(ctx)
	}
}

func (k *Kernel) setState(next State) {
	if next == k.state {
		return
	}
	k.logger.Info("state transition",
		zap.Stringer("from", k.state),
		zap.Stringer("to", next))
	k.state = next
}

// startSession clears the overlay, rereads the stored script and builds the
// frame scheduler. The keypress that started the session is not forwarded.
func (k *Kernel) startSession() {
	k.sup.Overlay().Clear(ColorFatal)
	k.deps.Render.ClearTextRegion()
	drainEvents(k.events)

	script := k.boot.Refresh()
	if ContainsTestCases(script) {
		cases := SplitTestCases(script, k.cfg.SegmentBudget, k.logger.Named("harness"))
		k.logger.Info("test cases found", zap.Int("count", len(cases)))
		k.harness = NewHarness(cases, k.deps.Engine, k.cfg.CaseDelay, k.logger.Named("harness"))
	} else {
		k.logger.Info("no test cases found, running entire script")
		if err := k.deps.Engine.Run(script); err != nil {
			k.sup.Fatal(err.Error())
		}
	}

	var audio AudioSink
	if k.cfg.AudioEnabled {
		audio = k.deps.Audio
	}
	k.sched = NewFrameScheduler(k.deps.Engine, k.harness, audio, k.sup, k.deps.Upload, k.events, k.deps.Clock, k.logger.Named("frame"))
	k.sched.Begin()
}
