// timers.go - Frame-driven script timers

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
	"slices"

	lua "github.com/yuin/gopher-lua"
)

// maxTimers bounds how many timers a script may hold at once.
const maxTimers = 512

type timer struct {
	fn        *lua.LFunction
	period    int64
	remaining int64
	repeat    bool
}

// timerSet holds script timers. Time only moves when advance is called, so
// timers are driven entirely by the frame loop.
type timerSet struct {
	next   int
	timers map[int]*timer
}

// add registers a timer and returns its id, or 0 when the set is full.
func (s *timerSet) add(fn *lua.LFunction, ms int64, repeat bool) int {
	if s.timers == nil {
		s.timers = make(map[int]*timer)
	}
	if len(s.timers) >= maxTimers {
		return 0
	}
	if ms < 0 {
		ms = 0
	}
	s.next++
	s.timers[s.next] = &timer{fn: fn, period: ms, remaining: ms, repeat: repeat}
	return s.next
}

func (s *timerSet) remove(id int) {
	delete(s.timers, id)
}

func (s *timerSet) clear() {
	s.timers = nil
}

func (s *timerSet) len() int {
	return len(s.timers)
}

// advance moves every timer forward by elapsed ms and returns the callbacks
// that are due, ordered by id. An interval fires at most once per advance.
// One-shot timers are removed before their callback runs.
func (s *timerSet) advance(elapsed int64) []*lua.LFunction {
	if len(s.timers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var due []*lua.LFunction
	for _, id := range ids {
		t := s.timers[id]
		t.remaining -= elapsed
		if t.remaining > 0 {
			continue
		}
		due = append(due, t.fn)
		if !t.repeat {
			delete(s.timers, id)
			continue
		}
		t.remaining += t.period
		if t.remaining <= 0 {
			t.remaining = max(t.period, 1)
		}
	}
	return due
}
