// harness.go - Test-case splitter and sequencer

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
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TestDelimiter separates test cases inside a single uploaded script.
const TestDelimiter = "/* -------------------------TEST------------------- */"

// MaxTestCases caps how many cases one script can hold. Further cases are
// dropped.
const MaxTestCases = 10

// DefaultCaseDelay is how long each case runs before the next one starts.
const DefaultCaseDelay = 5000 * time.Millisecond

// TestCase is one segment of a test script.
type TestCase struct {
	Index  int
	Source string
}

// ContainsTestCases reports whether script should run under the harness.
func ContainsTestCases(script string) bool {
	return strings.Contains(script, TestDelimiter)
}

// SplitTestCases cuts script at every delimiter. Empty spans are skipped,
// the text after the last delimiter becomes the final case when non-empty,
// and at most MaxTestCases cases are returned. A span longer than budget
// bytes cannot be held and is skipped; budget <= 0 disables the limit.
func SplitTestCases(script string, budget int, logger *zap.Logger) []TestCase {
	cases := make([]TestCase, 0, MaxTestCases)
	keep := func(span string) {
		if budget > 0 && len(span) > budget {
			logger.Warn("test case exceeds segment budget, skipping",
				zap.Int("length", len(span)),
				zap.Int("budget", budget))
			return
		}
		cases = append(cases, TestCase{Index: len(cases), Source: strings.Clone(span)})
		logger.Debug("test case extracted",
			zap.Int("index", len(cases)-1),
			zap.Int("length", len(span)))
	}

	rest := script
	for len(cases) < MaxTestCases {
		end := strings.Index(rest, TestDelimiter)
		if end < 0 {
			break
		}
		if end > 0 {
			keep(rest[:end])
		}
		rest = rest[end+len(TestDelimiter):]
	}
	if rest != "" && len(cases) < MaxTestCases {
		keep(rest)
	}

	logger.Debug("test cases split", zap.Int("count", len(cases)))
	return cases
}

// HarnessState is the sequencer state of the Harness.
type HarnessState int

const (
	HarnessIdle HarnessState = iota
	HarnessRunning
)

func (s HarnessState) String() string {
	switch s {
	case HarnessIdle:
		return "idle"
	case HarnessRunning:
		return "running"
	}
	return "unknown"
}

// Harness runs test cases one after another, giving each a fixed delay.
type Harness struct {
	cases   []TestCase
	engine  ScriptEngine
	delay   time.Duration
	logger  *zap.Logger
	state   HarnessState
	index   int
	started time.Time
	dormant bool
}

// NewHarness sequences cases on engine.
func NewHarness(cases []TestCase, engine ScriptEngine, delay time.Duration, logger *zap.Logger) *Harness {
	return &Harness{
		cases:   cases,
		engine:  engine,
		delay:   delay,
		logger:  logger,
		dormant: len(cases) == 0,
	}
}

// Active reports whether Advance still has work to do.
func (h *Harness) Active() bool {
	return !h.dormant
}

// State returns the sequencer state.
func (h *Harness) State() HarnessState {
	return h.state
}

// Index returns the case currently running or next to run.
func (h *Harness) Index() int {
	return h.index
}

// Cases returns the split cases.
func (h *Harness) Cases() []TestCase {
	return h.cases
}

// Advance moves the sequencer one scheduler tick forward. The error of a
// case that fails to load is returned for the fatal path.
func (h *Harness) Advance(now time.Time) error {
	if h.dormant {
		return nil
	}
	if h.state == HarnessRunning && now.Sub(h.started) >= h.delay {
		h.logger.Info("test case completed", zap.Int("index", h.index))
		h.state = HarnessIdle
		h.index++
	}

	switch {
	case h.state == HarnessIdle && h.index < len(h.cases):
		tc := h.cases[h.index]
		h.logger.Info("running test case", zap.Int("index", tc.Index))
		h.state = HarnessRunning
		h.started = now
		if err := h.engine.Run(tc.Source); err != nil {
			return &KernelError{Operation: "test case", Details: "case " + strconv.Itoa(tc.Index), Err: err}
		}
	case h.index >= len(h.cases):
		h.logger.Info("all test cases completed", zap.Int("count", len(h.cases)))
		h.state = HarnessIdle
		h.index = 0
		h.dormant = true
	}
	return nil
}
