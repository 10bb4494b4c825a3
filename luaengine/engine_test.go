package luaengine

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

type fakeReporter struct {
	errors []string
	fatals []string
}

func (r *fakeReporter) ReportError(msg string) { r.errors = append(r.errors, msg) }
func (r *fakeReporter) Fatal(msg string)       { r.fatals = append(r.fatals, msg) }

type fakeTones struct {
	played [][2]float64
}

func (f *fakeTones) PlayTone(freq float64, ms int) bool {
	f.played = append(f.played, [2]float64{freq, float64(ms)})
	return true
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeReporter) {
	t.Helper()
	e := New(cfg, zap.NewNop())
	rep := &fakeReporter{}
	e.SetReporter(rep)
	require.NoError(t, e.Init())
	t.Cleanup(e.Close)
	return e, rep
}

func global(e *Engine, name string) lua.LValue {
	return e.L.GetGlobal(name)
}

func TestEngine_OnInputReceivesKeyName(t *testing.T) {
	e, rep := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`
		keys = ""
		onInput(function(key) keys = keys .. key end)
	`))

	e.DispatchPress(5)
	e.DispatchPress(12)
	e.DispatchPress(15)
	e.DispatchPress(99)

	require.Equal(t, "wil", global(e, "keys").String())
	require.Empty(t, rep.errors)
}

func TestEngine_ParseErrorIsReturned(t *testing.T) {
	e, rep := newTestEngine(t, Config{})
	err := e.Run("function (")
	require.Error(t, err)

	var kerr *kernel.KernelError
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, "script run", kerr.Operation)

	var apiErr *lua.ApiError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, lua.ApiErrorSyntax, apiErr.Type)
	require.Empty(t, rep.fatals)
}

func TestEngine_RuntimeErrorsAreReported(t *testing.T) {
	e, rep := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`
		onInput(function(key) error("bad key " .. key) end)
		error("top level boom")
	`))
	require.Len(t, rep.errors, 1)
	require.Contains(t, rep.errors[0], "top level boom")

	// Handlers registered before the failure stay live.
	e.DispatchPress(6)
	require.Len(t, rep.errors, 2)
	require.Contains(t, rep.errors[1], "bad key a")
	require.Empty(t, rep.fatals)
}

func TestEngine_StackExhaustionIsOutOfMemory(t *testing.T) {
	e, rep := newTestEngine(t, Config{CallStackSize: 64})
	require.NoError(t, e.Run(`
		local function dive(n) return 1 + dive(n + 1) end
		onFrame(function() dive(0) end)
	`))
	e.DispatchFrame(16)
	require.Equal(t, []string{OutOfMemory}, rep.fatals)
	require.Empty(t, rep.errors)
}

func TestEngine_Timers(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`
		once, ticks = 0, 0
		setTimeout(function() once = once + 1 end, 100)
		id = setInterval(function() ticks = ticks + 1 end, 50)
	`))

	e.DispatchFrame(49)
	require.Equal(t, "0", global(e, "ticks").String())
	e.DispatchFrame(1)
	require.Equal(t, "1", global(e, "ticks").String())
	e.DispatchFrame(50)
	require.Equal(t, "1", global(e, "once").String())
	require.Equal(t, "2", global(e, "ticks").String())

	e.DispatchFrame(500)
	require.Equal(t, "1", global(e, "once").String(), "timeout fired twice")
	require.Equal(t, "3", global(e, "ticks").String(), "interval fired more than once per frame")

	require.NoError(t, e.L.DoString(`clearInterval(id)`))
	e.DispatchFrame(500)
	require.Equal(t, "3", global(e, "ticks").String())
	require.Zero(t, e.timers.len())
}

func TestEngine_OnFrameGetsElapsed(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`total = 0; onFrame(function(ms) total = total + ms end)`))
	e.DispatchFrame(16)
	e.DispatchFrame(17)
	require.Equal(t, "33", global(e, "total").String())
}

func TestEngine_PumpAsyncRunsOneDeferred(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`
		order = ""
		defer(function() order = order .. "a" end)
		defer(function() order = order .. "b" end)
	`))
	e.PumpAsync()
	require.Equal(t, "a", global(e, "order").String())
	e.PumpAsync()
	e.PumpAsync()
	require.Equal(t, "ab", global(e, "order").String())
}

func TestEngine_Scene(t *testing.T) {
	e, rep := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`
		setBackground("#102030")
		addText("HELLO", 2, 3, "yellow")
		addText("WORLD", 2, 4)
	`))
	scene := e.Scene()
	require.Equal(t, color.RGBA{0x10, 0x20, 0x30, 255}, scene.Background)
	require.Len(t, scene.Texts, 2)
	require.Equal(t, "HELLO", scene.Texts[0].Text)
	require.Equal(t, namedColors["yellow"], scene.Texts[0].Color)
	require.Equal(t, defaultTextColor, scene.Texts[1].Color)

	require.NoError(t, e.L.DoString(`clearText()`))
	require.Empty(t, e.Scene().Texts)

	require.NoError(t, e.Run(`setBackground("plaid")`))
	require.Len(t, rep.errors, 1)
	require.Contains(t, rep.errors[0], "unknown color")
}

func TestEngine_RunResetsSession(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`
		hits = 0
		onInput(function() hits = hits + 1 end)
		setInterval(function() end, 10)
		addText("OLD", 0, 0)
	`))
	require.NoError(t, e.Run(`x = 1`))

	e.DispatchPress(5)
	require.Equal(t, "0", global(e, "hits").String())
	require.Zero(t, e.timers.len())
	require.Empty(t, e.Scene().Texts)
}

func TestEngine_Tone(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	require.NoError(t, e.Run(`tone(440)`), "tone without a sink")

	sink := &fakeTones{}
	e.SetToneSink(sink)
	require.NoError(t, e.Run(`tone(880, 250)`))
	require.Equal(t, [][2]float64{{880, 250}}, sink.played)
}

func TestEngine_RandomIsSeeded(t *testing.T) {
	script := `
		seq = {}
		for i = 1, 8 do seq[i] = math.random(1, 1000) end
		r = table.concat(seq, ",")
		one = math.random(3)
		f = math.random()
	`
	a, _ := newTestEngine(t, Config{Seed: 42})
	b, _ := newTestEngine(t, Config{Seed: 42})
	c, _ := newTestEngine(t, Config{Seed: 43})
	for _, e := range []*Engine{a, b, c} {
		require.NoError(t, e.Run(script))
	}
	require.Equal(t, global(a, "r").String(), global(b, "r").String())
	require.NotEqual(t, global(a, "r").String(), global(c, "r").String())

	one := float64(global(a, "one").(lua.LNumber))
	require.True(t, one >= 1 && one <= 3)
	f := float64(global(a, "f").(lua.LNumber))
	require.True(t, f >= 0 && f < 1)
}

func TestEngine_Sandbox(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	for _, name := range []string{"io", "os", "dofile", "loadfile", "debug"} {
		require.Equal(t, lua.LNil, global(e, name), name)
	}
}

func TestEngine_PrintGoesToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := New(Config{}, zap.New(core))
	require.NoError(t, e.Init())
	defer e.Close()

	require.NoError(t, e.Run(`print("score", 10)`))
	entries := logs.FilterField(zap.String("component", "script")).All()
	require.Len(t, entries, 1)
	require.Equal(t, "score\t10", entries[0].Message)
}

func TestEngine_RunBeforeInit(t *testing.T) {
	e := New(Config{}, zap.NewNop())
	err := e.Run("x = 1")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "not initialized"))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"red", namedColors["red"], true},
		{" Cyan ", namedColors["cyan"], true},
		{"#ff8000", color.RGBA{255, 128, 0, 255}, true},
		{"#ff80", color.RGBA{}, false},
		{"#zzzzzz", color.RGBA{}, false},
		{"mauve", color.RGBA{}, false},
	}
	for _, tt := range tests {
		got, ok := parseColor(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseColor(%q) = %v, %v", tt.in, got, ok)
		}
	}
}
