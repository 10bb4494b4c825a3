// poller.go - Input poller (context A)

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
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Poller samples every keypad line, debounces it and forwards key-down edges
// to context B. It owns the line histories; nothing else touches them.
type Poller struct {
	pins     PinReader
	lines    []*InputLine
	events   chan<- InputEvent
	interval time.Duration
	logger   *zap.Logger

	started atomic.Bool
	done    chan struct{}
}

// NewPoller configures one InputLine per pin. An interval of zero polls as
// fast as the goroutine is scheduled.
func NewPoller(pins PinReader, lines []LineID, events chan<- InputEvent, interval time.Duration, logger *zap.Logger) *Poller {
	p := &Poller{
		pins:     pins,
		lines:    make([]*InputLine, 0, len(lines)),
		events:   events,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
	for _, pin := range lines {
		p.lines = append(p.lines, NewInputLine(pin))
	}
	return p
}

// Poll runs one tick over all lines. A full channel blocks the tick until
// context B drains it or ctx ends.
func (p *Poller) Poll(ctx context.Context) {
	for _, line := range p.lines {
		if !line.Update(p.pins.ReadPin(line.Pin)) {
			continue
		}
		select {
		case p.events <- InputEvent{Line: line.Pin}:
		case <-ctx.Done():
			return
		}
	}
}

// Start launches the polling goroutine. It returns false if the poller was
// already started; the goroutine is never launched twice.
func (p *Poller) Start(ctx context.Context) bool {
	if !p.started.CompareAndSwap(false, true) {
		return false
	}
	p.logger.Debug("input poller starting",
		zap.Int("lines", len(p.lines)),
		zap.Duration("interval", p.interval))

	go func() {
		defer close(p.done)
		var tick <-chan time.Time
		if p.interval > 0 {
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else {
				if ctx.Err() != nil {
					return
				}
				runtime.Gosched()
			}
			p.Poll(ctx)
		}
	}()
	return true
}

// Started reports whether Start has launched the goroutine.
func (p *Poller) Started() bool {
	return p.started.Load()
}

// Done is closed once the polling goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}
