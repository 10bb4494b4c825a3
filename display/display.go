// display.go - Render pipeline over a video backend

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

package display

import (
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

// Display is the render pipeline of the handheld. Each transfer composes
// the scene and overlay and hands the pixels to a VideoOutput.
type Display struct {
	out    VideoOutput
	scene  SceneSource
	comp   *Compositor
	vsync  bool
	logger *zap.Logger

	inTransfer bool
	frames     uint64
	onFrame    func()
}

// New configures out for the handheld frame size. scene may be nil.
func New(out VideoOutput, scene SceneSource, cfg DisplayConfig, logger *zap.Logger) (*Display, error) {
	cfg.Width = FrameWidth
	cfg.Height = FrameHeight
	cfg.Scale = ClampScale(cfg.Scale)
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = DefaultRefreshRate
	}
	if err := out.SetDisplayConfig(cfg); err != nil {
		return nil, &VideoError{Operation: "configure", Details: "set display config", Err: err}
	}
	return &Display{
		out:    out,
		scene:  scene,
		comp:   NewCompositor(),
		vsync:  cfg.VSync,
		logger: logger,
	}, nil
}

// SetFrameHook registers fn to run after every completed transfer.
func (d *Display) SetFrameHook(fn func()) {
	d.onFrame = fn
}

func (d *Display) BeginTransfer() error {
	if !d.out.IsStarted() {
		return &VideoError{Operation: "begin transfer", Details: "output not started"}
	}
	if d.inTransfer {
		return &VideoError{Operation: "begin transfer", Details: "transfer already open"}
	}
	d.inTransfer = true
	return nil
}

func (d *Display) ProduceFrame(overlay kernel.OverlaySnapshot) error {
	if !d.inTransfer {
		return &VideoError{Operation: "produce frame", Details: "no open transfer"}
	}
	var scene Scene
	if d.scene != nil {
		scene = d.scene.Scene()
	}
	d.comp.Compose(scene, overlay)
	if err := d.out.UpdateFrame(d.comp.Pixels()); err != nil {
		return &VideoError{Operation: "produce frame", Details: "update output", Err: err}
	}
	return nil
}

func (d *Display) EndTransfer() error {
	if !d.inTransfer {
		return &VideoError{Operation: "end transfer", Details: "no open transfer"}
	}
	d.inTransfer = false
	d.frames++
	if d.onFrame != nil {
		d.onFrame()
	}
	if d.vsync {
		return d.out.WaitForVSync()
	}
	return nil
}

func (d *Display) ClearTextRegion() {
	d.comp.ClearText()
}

// Frames returns the number of completed transfers.
func (d *Display) Frames() uint64 {
	return d.frames
}

var _ kernel.RenderPipeline = (*Display)(nil)
