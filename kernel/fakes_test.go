package kernel

import (
	"runtime"
	"strconv"
	"sync"
	"time"
)

type fakeEngine struct {
	calls   []string
	initErr error
	runErr  map[string]error
}

func (e *fakeEngine) Init() error {
	e.calls = append(e.calls, "init")
	return e.initErr
}

func (e *fakeEngine) Run(source string) error {
	e.calls = append(e.calls, "run:"+source)
	return e.runErr[source]
}

func (e *fakeEngine) PumpAsync() { e.calls = append(e.calls, "pump") }

func (e *fakeEngine) DispatchPress(line LineID) {
	e.calls = append(e.calls, "press:"+strconv.Itoa(int(line)))
}

func (e *fakeEngine) DispatchFrame(elapsedMs int64) {
	e.calls = append(e.calls, "frame:"+strconv.FormatInt(elapsedMs, 10))
}

func (e *fakeEngine) runs() []string {
	var out []string
	for _, c := range e.calls {
		if len(c) > 4 && c[:4] == "run:" {
			out = append(out, c[4:])
		}
	}
	return out
}

type fakeRender struct {
	frames   []OverlaySnapshot
	clears   int
	inFlight bool
}

func (r *fakeRender) BeginTransfer() error {
	r.inFlight = true
	return nil
}

func (r *fakeRender) ProduceFrame(o OverlaySnapshot) error {
	r.frames = append(r.frames, o)
	return nil
}

func (r *fakeRender) EndTransfer() error {
	r.inFlight = false
	return nil
}

func (r *fakeRender) ClearTextRegion() { r.clears++ }

func (r *fakeRender) last() OverlaySnapshot {
	if len(r.frames) == 0 {
		return OverlaySnapshot{}
	}
	return r.frames[len(r.frames)-1]
}

// fakeUpload reports one pending upload per queued value; onPoll runs on
// every true result so tests can swap the stored script.
type fakeUpload struct {
	pending int
	polls   int
	onPoll  func()
}

func (u *fakeUpload) PollPending() bool {
	u.polls++
	if u.pending == 0 {
		return false
	}
	u.pending--
	if u.onPoll != nil {
		u.onPoll()
	}
	return true
}

type fakeStore struct {
	script string
	ok     bool
}

func (s *fakeStore) ReadCurrentScript() (string, bool) { return s.script, s.ok }

func (s *fakeStore) put(script string) {
	s.script = script
	s.ok = true
}

// fakeWatchdog records arm calls. A zero timeout ends the calling goroutine
// the way a hardware reset ends the firmware.
type fakeWatchdog struct {
	mu   sync.Mutex
	arms []time.Duration
}

func (w *fakeWatchdog) Arm(timeout time.Duration) {
	w.mu.Lock()
	w.arms = append(w.arms, timeout)
	w.mu.Unlock()
	if timeout == 0 {
		runtime.Goexit()
	}
}

func (w *fakeWatchdog) armed() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.arms...)
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// fakePins is a pull-up pin bank: every line reads high until held.
type fakePins struct {
	mu   sync.Mutex
	held map[LineID]bool
}

func newFakePins() *fakePins {
	return &fakePins{held: make(map[LineID]bool)}
}

func (p *fakePins) ReadPin(pin LineID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.held[pin]
}

func (p *fakePins) hold(pin LineID, down bool) {
	p.mu.Lock()
	p.held[pin] = down
	p.mu.Unlock()
}

type fakeAudio struct {
	pushes int
}

func (a *fakeAudio) TryPushSamples() { a.pushes++ }

type fakeEntropy struct {
	noise []uint32
	temp  uint32
	reads int
}

func (e *fakeEntropy) Noise() uint32 {
	v := e.noise[e.reads%len(e.noise)]
	e.reads++
	return v
}

func (e *fakeEntropy) Temperature() uint32 { return e.temp }

// runToExit runs fn on its own goroutine and waits for it to return or call
// runtime.Goexit.
func runToExit(fn func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	<-done
}

// exitAfter returns an idle hook that ends the goroutine on its n-th call.
func exitAfter(n int) func() {
	calls := 0
	return func() {
		calls++
		if calls >= n {
			runtime.Goexit()
		}
	}
}
