// supervisor.go - Fatal error and reboot supervisor

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
	"time"

	"go.uber.org/zap"
)

// framePeriod paces the terminal render loops.
const framePeriod = time.Second / 60

// Supervisor owns the overlay and the two ways out of a broken session: the
// watchdog reboot and the fatal render loop.
type Supervisor struct {
	overlay  *ErrorOverlay
	render   RenderPipeline
	watchdog Watchdog
	logger   *zap.Logger

	// idle runs once per iteration of the terminal loops.
	idle func()
}

// NewSupervisor creates the supervisor with a cyan, full-screen overlay.
func NewSupervisor(render RenderPipeline, watchdog Watchdog, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		overlay:  newErrorOverlay(),
		render:   render,
		watchdog: watchdog,
		logger:   logger,
		idle:     func() { time.Sleep(framePeriod) },
	}
}

// Overlay returns the shared overlay state.
func (s *Supervisor) Overlay() *ErrorOverlay {
	return s.overlay
}

// Present clears the text region and pushes one frame with the current
// overlay. Render failures are logged; the next frame tries again.
func (s *Supervisor) Present() {
	s.render.ClearTextRegion()
	if err := s.render.BeginTransfer(); err != nil {
		s.logger.Warn("begin transfer", zap.Error(err))
		return
	}
	if err := s.render.ProduceFrame(s.overlay.Snapshot()); err != nil {
		s.logger.Warn("produce frame", zap.Error(err))
	}
	if err := s.render.EndTransfer(); err != nil {
		s.logger.Warn("end transfer", zap.Error(err))
	}
}

// ReportError shows a script error over the running game. The session
// continues.
func (s *Supervisor) ReportError(msg string) {
	s.logger.Warn("script error", zap.String("message", msg))
	s.overlay.Set(wrapText(msg), ColorFatal, false)
}

// Fatal shows msg in red and renders it forever. No watchdog is armed: the
// engine state cannot be trusted and a human has to power-cycle.
func (s *Supervisor) Fatal(msg string) {
	s.logger.Error("fatal error, halting", zap.String("message", msg))
	s.overlay.Set(wrapText(msg), ColorFatal, true)
	for {
		s.Present()
		s.idle()
	}
}

// ForceReboot asks the user to reboot, renders that once, then fires the
// watchdog with a zero timeout. The prompt stays on screen if the reset does
// not happen.
func (s *Supervisor) ForceReboot() {
	s.logger.Info("new script uploaded mid-session, rebooting")
	s.overlay.Set(rebootPrompt, ColorReboot, true)
	s.Present()
	s.watchdog.Arm(0)
	for {
		s.idle()
	}
}
