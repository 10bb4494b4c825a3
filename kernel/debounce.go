// debounce.go - Per-line debounce ring

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

import "math/bits"

// HistoryLen is the number of raw samples kept per line.
const HistoryLen = 64

// releaseThreshold is the high-sample count a line must exceed to read as
// released. Pressing is detected on a weak majority, releasing only on a
// strong one.
const releaseThreshold = HistoryLen * 5 / 6

// InputLine is one button with its packed sample history. Bit i of history
// holds sample slot i; cursor is the slot written last.
type InputLine struct {
	Pin LineID

	history  uint64
	cursor   uint8
	released bool // last published debounced state
}

// NewInputLine returns a line with a zeroed history, which reads as pressed.
func NewInputLine(pin LineID) *InputLine {
	return &InputLine{Pin: pin}
}

// Sample overwrites the oldest slot with a new raw reading.
func (l *InputLine) Sample(high bool) {
	l.cursor = (l.cursor + 1) % HistoryLen
	mask := uint64(1) << l.cursor
	if high {
		l.history |= mask
	} else {
		l.history &^= mask
	}
}

// HighCount returns how many of the last HistoryLen samples were high.
func (l *InputLine) HighCount() int {
	return bits.OnesCount64(l.history)
}

// Released reports the debounced state derived from the current window.
func (l *InputLine) Released() bool {
	return l.HighCount() > releaseThreshold
}

// Cursor returns the slot holding the most recent sample.
func (l *InputLine) Cursor() int {
	return int(l.cursor)
}

// Update records one raw reading, republishes the debounced state and
// reports whether the line just went from released to pressed.
func (l *InputLine) Update(high bool) (pressed bool) {
	l.Sample(high)
	released := l.Released()
	if released == l.released {
		return false
	}
	l.released = released
	return !released
}
