// api.go - Host API exposed to Lua scripts

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
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/display"
)

// maxTexts bounds the scene text list a script can build up.
const maxTexts = 256

func (e *Engine) installAPI() {
	api := map[string]lua.LGFunction{
		"onInput":       e.luaOnInput,
		"onFrame":       e.luaOnFrame,
		"setTimeout":    e.luaSetTimeout,
		"setInterval":   e.luaSetInterval,
		"clearTimeout":  e.luaClearTimer,
		"clearInterval": e.luaClearTimer,
		"defer":         e.luaDefer,
		"addText":       e.luaAddText,
		"clearText":     e.luaClearText,
		"setBackground": e.luaSetBackground,
		"tone":          e.luaTone,
		"print":         e.luaPrint,
	}
	for name, fn := range api {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}

	mathLib := e.L.GetGlobal(lua.MathLibName)
	e.L.SetField(mathLib, "random", e.L.NewFunction(e.luaRandom))
	e.L.SetField(mathLib, "randomseed", e.L.NewFunction(e.luaRandomSeed))
}

func (e *Engine) luaOnInput(L *lua.LState) int {
	e.inputHandlers = append(e.inputHandlers, L.CheckFunction(1))
	return 0
}

func (e *Engine) luaOnFrame(L *lua.LState) int {
	e.frameHandlers = append(e.frameHandlers, L.CheckFunction(1))
	return 0
}

func (e *Engine) luaSetTimeout(L *lua.LState) int {
	fn := L.CheckFunction(1)
	ms := L.OptInt(2, 0)
	L.Push(lua.LNumber(e.timers.add(fn, int64(ms), false)))
	return 1
}

func (e *Engine) luaSetInterval(L *lua.LState) int {
	fn := L.CheckFunction(1)
	ms := L.OptInt(2, 0)
	L.Push(lua.LNumber(e.timers.add(fn, int64(ms), true)))
	return 1
}

func (e *Engine) luaClearTimer(L *lua.LState) int {
	e.timers.remove(L.OptInt(1, 0))
	return 0
}

func (e *Engine) luaDefer(L *lua.LState) int {
	e.deferred = append(e.deferred, L.CheckFunction(1))
	return 0
}

func (e *Engine) luaAddText(L *lua.LState) int {
	text := L.CheckString(1)
	col := L.OptInt(2, 0)
	row := L.OptInt(3, 0)
	c := defaultTextColor
	if name := L.OptString(4, ""); name != "" {
		parsed, ok := parseColor(name)
		if !ok {
			L.ArgError(4, "unknown color")
			return 0
		}
		c = parsed
	}
	if len(e.scene.Texts) >= maxTexts {
		L.RaiseError("too many texts on screen (max %d)", maxTexts)
		return 0
	}
	e.scene.Texts = append(e.scene.Texts, display.TextItem{Text: text, Col: col, Row: row, Color: c})
	return 0
}

func (e *Engine) luaClearText(L *lua.LState) int {
	e.scene.Texts = e.scene.Texts[:0]
	return 0
}

func (e *Engine) luaSetBackground(L *lua.LState) int {
	c, ok := parseColor(L.CheckString(1))
	if !ok {
		L.ArgError(1, "unknown color")
		return 0
	}
	e.scene.Background = c
	return 0
}

func (e *Engine) luaTone(L *lua.LState) int {
	freq := float64(L.CheckNumber(1))
	ms := L.OptInt(2, 100)
	if e.sound == nil {
		return 0
	}
	L.Push(lua.LBool(e.sound.PlayTone(freq, ms)))
	return 1
}

func (e *Engine) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	e.script.Info(strings.Join(parts, "\t"))
	return 0
}

// luaRandom follows the math.random contract: no arguments gives [0,1),
// one gives [1,m], two give [m,n].
func (e *Engine) luaRandom(L *lua.LState) int {
	switch L.GetTop() {
	case 0:
		L.Push(lua.LNumber(e.rng.Float64()))
	case 1:
		m := L.CheckInt(1)
		if m < 1 {
			L.ArgError(1, "interval is empty")
			return 0
		}
		L.Push(lua.LNumber(1 + e.rng.IntN(m)))
	default:
		lo, hi := L.CheckInt(1), L.CheckInt(2)
		if lo > hi {
			L.ArgError(2, "interval is empty")
			return 0
		}
		L.Push(lua.LNumber(lo + e.rng.IntN(hi-lo+1)))
	}
	return 1
}

func (e *Engine) luaRandomSeed(L *lua.LState) int {
	seed := uint64(L.CheckInt(1))
	e.pcg.Seed(seed, seed^seedMix)
	e.logger.Debug("script reseeded rng", zap.Uint64("seed", seed))
	return 0
}
