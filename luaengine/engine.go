// engine.go - gopher-lua script engine

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

package luaengine

import (
	"math/rand/v2"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/display"
	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

// seedMix derives the second PCG word from the seed.
const seedMix = 0x9e3779b97f4a7c15

// OutOfMemory is shown when a script exhausts the interpreter's stacks.
const OutOfMemory = "OUT OF MEMORY"

// Reporter receives script failures. kernel.Supervisor satisfies it.
type Reporter interface {
	ReportError(msg string)
	Fatal(msg string)
}

// ToneSink plays square-wave tones. audio.SoundChip satisfies it.
type ToneSink interface {
	PlayTone(freq float64, ms int) bool
}

// Config sizes the interpreter. Zero values take the gopher-lua defaults.
type Config struct {
	CallStackSize   int
	RegistrySize    int
	RegistryMaxSize int
	Seed            uint64
}

// Engine runs game scripts on a gopher-lua state and exposes the handheld
// host API to them. Every method must be called from the kernel goroutine.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	script   *zap.Logger
	reporter Reporter
	sound    ToneSink

	L   *lua.LState
	pcg *rand.PCG
	rng *rand.Rand

	inputHandlers []*lua.LFunction
	frameHandlers []*lua.LFunction
	timers        timerSet
	deferred      []*lua.LFunction
	scene         display.Scene
}

// New creates an engine. Init must be called before Run.
func New(cfg Config, logger *zap.Logger) *Engine {
	pcg := rand.NewPCG(cfg.Seed, cfg.Seed^seedMix)
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		script:   logger.With(zap.String("component", "script")),
		reporter: logReporter{logger},
		pcg:      pcg,
		rng:      rand.New(pcg),
	}
}

// SetReporter routes script errors to r.
func (e *Engine) SetReporter(r Reporter) {
	e.reporter = r
}

// SetToneSink connects tone() to a sound chip. A nil sink makes tone() a
// no-op.
func (e *Engine) SetToneSink(s ToneSink) {
	e.sound = s
}

// Init creates the interpreter and installs the host API.
func (e *Engine) Init() error {
	if e.cfg.CallStackSize < 0 || e.cfg.RegistrySize < 0 || e.cfg.RegistryMaxSize < 0 {
		return &kernel.KernelError{Operation: "engine init", Details: "negative interpreter size"}
	}
	if e.L != nil {
		e.L.Close()
	}
	e.L = lua.NewState(lua.Options{
		CallStackSize:   e.cfg.CallStackSize,
		RegistrySize:    e.cfg.RegistrySize,
		RegistryMaxSize: e.cfg.RegistryMaxSize,
		SkipOpenLibs:    true,
	})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		if err := e.L.CallByParam(lua.P{Fn: e.L.NewFunction(lib.open), Protect: true}, lua.LString(lib.name)); err != nil {
			return &kernel.KernelError{Operation: "engine init", Details: "open " + lib.name, Err: err}
		}
	}
	for _, name := range []string{"dofile", "loadfile"} {
		e.L.SetGlobal(name, lua.LNil)
	}
	e.installAPI()
	e.logger.Debug("script engine ready",
		zap.Int("call_stack", e.cfg.CallStackSize),
		zap.Int("registry", e.cfg.RegistrySize))
	return nil
}

// Close releases the interpreter.
func (e *Engine) Close() {
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

// Run loads and executes source. Handlers, timers and the scene from a
// previous run are dropped first. A parse failure is returned; a runtime
// failure of the top-level chunk is reported and the session continues.
func (e *Engine) Run(source string) error {
	if e.L == nil {
		return &kernel.KernelError{Operation: "script run", Details: "engine not initialized"}
	}
	e.reset()
	fn, err := e.L.LoadString(source)
	if err != nil {
		return &kernel.KernelError{Operation: "script run", Details: "parse", Err: err}
	}
	e.call(fn)
	return nil
}

// PumpAsync runs the oldest deferred function, if any.
func (e *Engine) PumpAsync() {
	if len(e.deferred) == 0 {
		return
	}
	fn := e.deferred[0]
	e.deferred[0] = nil
	e.deferred = e.deferred[1:]
	e.call(fn)
}

// DispatchPress calls every onInput handler with the key name of line.
func (e *Engine) DispatchPress(line kernel.LineID) {
	name, ok := kernel.KeyName(line)
	if !ok {
		e.logger.Debug("press on unmapped line", zap.Uint8("line", uint8(line)))
		return
	}
	for _, fn := range e.inputHandlers {
		e.call(fn, lua.LString(name))
	}
}

// DispatchFrame advances the timers by elapsedMs and calls the onFrame
// handlers.
func (e *Engine) DispatchFrame(elapsedMs int64) {
	for _, fn := range e.timers.advance(elapsedMs) {
		e.call(fn)
	}
	for _, fn := range e.frameHandlers {
		e.call(fn, lua.LNumber(elapsedMs))
	}
}

// Scene returns a copy of the game layer built by the script.
func (e *Engine) Scene() display.Scene {
	s := e.scene
	s.Texts = append([]display.TextItem(nil), e.scene.Texts...)
	return s
}

func (e *Engine) reset() {
	e.inputHandlers = nil
	e.frameHandlers = nil
	e.deferred = nil
	e.timers.clear()
	e.scene = display.Scene{}
}

// call runs fn in protected mode and routes any error.
func (e *Engine) call(fn *lua.LFunction, args ...lua.LValue) {
	if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		e.fail(err)
	}
}

func (e *Engine) fail(err error) {
	msg := err.Error()
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != nil {
		msg = apiErr.Object.String()
	}
	if isOverflow(msg) {
		e.logger.Error("script exhausted interpreter stacks", zap.String("error", msg))
		e.reporter.Fatal(OutOfMemory)
		return
	}
	e.reporter.ReportError(msg)
}

func isOverflow(msg string) bool {
	return strings.Contains(msg, "stack overflow") ||
		strings.Contains(msg, "registry overflow") ||
		strings.Contains(msg, "callstack overflow")
}

// logReporter is used until the kernel supervisor is attached.
type logReporter struct {
	logger *zap.Logger
}

func (r logReporter) ReportError(msg string) {
	r.logger.Warn("script error", zap.String("message", msg))
}

func (r logReporter) Fatal(msg string) {
	r.logger.Error("script fatal", zap.String("message", msg))
}

var (
	_ kernel.ScriptEngine = (*Engine)(nil)
	_ display.SceneSource = (*Engine)(nil)
)
