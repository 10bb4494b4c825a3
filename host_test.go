package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
	"github.com/intuitionamiga/IntuitionHandheld/storage"
)

func newTestWatchdog(resets *atomic.Int32) *hostWatchdog {
	w := newHostWatchdog(zap.NewNop())
	w.reset = func() error {
		resets.Add(1)
		return nil
	}
	return w
}

func TestWatchdog_ImmediateReset(t *testing.T) {
	var resets atomic.Int32
	w := newTestWatchdog(&resets)
	w.Arm(0)
	w.Arm(0)
	require.EqualValues(t, 1, resets.Load(), "a reset only happens once")
}

func TestWatchdog_ExpiresWithoutFeed(t *testing.T) {
	var resets atomic.Int32
	w := newTestWatchdog(&resets)
	w.Arm(20 * time.Millisecond)
	require.Eventually(t, func() bool { return resets.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWatchdog_FeedPostponesReset(t *testing.T) {
	var resets atomic.Int32
	w := newTestWatchdog(&resets)
	w.Arm(60 * time.Millisecond)
	for range 10 {
		time.Sleep(15 * time.Millisecond)
		w.Feed()
	}
	require.Zero(t, resets.Load())
	w.Stop()
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, resets.Load(), "stopped watchdog fired")
}

func TestWatchdog_FailedResetIsLogged(t *testing.T) {
	w := newHostWatchdog(zap.NewNop())
	w.reset = func() error { return errors.New("exec format error") }
	w.Arm(0)
	w.Feed()
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func TestTerminalKeypad_HoldsLineAfterKey(t *testing.T) {
	clk := &fixedClock{t: time.Unix(1000, 0)}
	kp := NewTerminalKeypad(nil, zap.NewNop())
	kp.now = clk.now

	line, ok := kernel.LineForKey('d')
	require.True(t, ok)
	require.True(t, kp.ReadPin(line), "released before any key")

	kp.routeKey('D')
	require.False(t, kp.ReadPin(line), "upper case maps to the same button")

	clk.t = clk.t.Add(keyHoldTime - time.Millisecond)
	require.False(t, kp.ReadPin(line))
	clk.t = clk.t.Add(time.Millisecond)
	require.True(t, kp.ReadPin(line), "line released after the hold time")

	kp.routeKey('x')
	for _, l := range kernel.DefaultLines {
		require.True(t, kp.ReadPin(l), "unmapped key pressed line %d", l)
	}
	require.True(t, kp.ReadPin(200))
}

func TestTerminalKeypad_QuitKeys(t *testing.T) {
	quits := 0
	kp := NewTerminalKeypad(func() { quits++ }, zap.NewNop())
	kp.routeKey('q')
	kp.routeKey(keyCtrlC)
	require.Equal(t, 2, quits)
}

func TestTerminalKeypad_MuteKey(t *testing.T) {
	mutes := 0
	kp := NewTerminalKeypad(nil, zap.NewNop())
	kp.onMute = func() { mutes++ }
	kp.routeKey(keyMute)
	require.Equal(t, 1, mutes)
	for _, l := range kernel.DefaultLines {
		require.True(t, kp.ReadPin(l), "mute key pressed line %d", l)
	}
}

func TestStatusLine(t *testing.T) {
	require.Equal(t, "UPLOADS 3", statusLine(3, true))
	require.Equal(t, "UPLOADS 0 MUTE", statusLine(0, false))
}

func TestHostEntropy(t *testing.T) {
	dir := t.TempDir()
	thermal := filepath.Join(dir, "temp")
	require.NoError(t, os.WriteFile(thermal, []byte("48250\n"), 0o644))

	start := time.Unix(0, 0)
	ticks := []time.Duration{0, 1_000_123 * time.Nanosecond}
	i := 0
	h := hostEntropy{
		sleep: func(time.Duration) {},
		now: func() time.Time {
			d := ticks[i%len(ticks)]
			i++
			return start.Add(d)
		},
		thermalPath: thermal,
	}
	require.EqualValues(t, 1_000_123, h.Noise())
	require.EqualValues(t, 48250, h.Temperature())

	h.thermalPath = filepath.Join(dir, "missing")
	require.EqualValues(t, uint32(os.Getpid()), h.Temperature())

	require.NotZero(t, kernel.Seed(h))
}

func TestPrintHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printHistory(&buf, []storage.Record{
		{ID: "b", Name: "pong.lua", Body: "x = 1", UploadedAt: at},
		{ID: "a", Name: "clipboard.lua", Body: "", UploadedAt: at.Add(-time.Hour)},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, lines[1], "pong.lua")
	require.Contains(t, lines[1], " 5 ")
	require.Contains(t, lines[2], "clipboard.lua")
}
