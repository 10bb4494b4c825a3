//go:build !headless

// video_backend_ebiten.go - Ebiten window, keypad and clipboard upload for IntuitionHandheld

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

package main

import (
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"go.uber.org/zap"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/intuitionamiga/IntuitionHandheld/display"
	"github.com/intuitionamiga/IntuitionHandheld/kernel"
	"github.com/intuitionamiga/IntuitionHandheld/storage"
)

const (
	windowTitle    = "Intuition Handheld (c) 2024 - 2026 Zayn Otley"
	statusBarH     = 16
	pasteLimit     = storage.MaxScriptSize
	keypadKeyCount = 8
)

// keypad maps the window keyboard onto the handheld buttons.
var keypad = [keypadKeyCount]struct {
	key ebiten.Key
	r   rune
}{
	{ebiten.KeyW, 'w'}, {ebiten.KeyA, 'a'}, {ebiten.KeyS, 's'}, {ebiten.KeyD, 'd'},
	{ebiten.KeyI, 'i'}, {ebiten.KeyJ, 'j'}, {ebiten.KeyK, 'k'}, {ebiten.KeyL, 'l'},
}

// EbitenOutput is the desktop window of the handheld. It shows the frame,
// serves as the button bank and accepts scripts pasted from the clipboard.
type EbitenOutput struct {
	logger      *zap.Logger
	running     atomic.Bool
	window      *ebiten.Image
	width       int
	height      int
	fullscreen  bool
	scale       int
	windowedW   int
	windowedH   int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  atomic.Uint64
	refreshRate int
	vsyncChan   chan struct{}
	done        chan struct{}

	// held has bit n set while the key for line n is down.
	held atomic.Uint32

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool

	pasteHandler func(string)
	closeHandler func()
	muteHandler  func()
	statusSource func() string
}

func NewEbitenOutput(logger *zap.Logger) *EbitenOutput {
	return &EbitenOutput{
		logger:      logger,
		width:       display.FrameWidth,
		height:      display.FrameHeight,
		scale:       2,
		windowedW:   display.FrameWidth * 2,
		windowedH:   display.FrameHeight * 2,
		frameBuffer: make([]byte, display.FrameWidth*display.FrameHeight*4),
		refreshRate: display.DefaultRefreshRate,
		vsyncChan:   make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func (eo *EbitenOutput) Start() error {
	if eo.running.Load() {
		return nil
	}
	eo.bufferMutex.Lock()
	eo.done = make(chan struct{})
	done := eo.done
	eo.bufferMutex.Unlock()
	eo.running.Store(true)
	ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	startErr := make(chan error, 1)
	go func() {
		defer func() {
			eo.running.Store(false)
			close(done)
		}()
		if err := ebiten.RunGame(eo); err != nil {
			eo.logger.Error("window loop stopped", zap.Error(err))
			startErr <- err
		}
	}()

	// Wait for the first Draw so the window is up before frames arrive.
	select {
	case <-eo.vsyncChan:
		return nil
	case err := <-startErr:
		return &display.VideoError{Operation: "start", Details: "ebiten", Err: err}
	case <-done:
		return &display.VideoError{Operation: "start", Details: "window closed before first frame"}
	}
}

func (eo *EbitenOutput) Stop() error {
	eo.running.Store(false)
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) Done() <-chan struct{} {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.done
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running.Load()
}

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config display.DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	if config.Width <= 0 || config.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", config.Width, config.Height)
	}
	eo.width = config.Width
	eo.height = config.Height
	eo.scale = display.ClampScale(config.Scale)
	if config.RefreshRate > 0 {
		eo.refreshRate = config.RefreshRate
	}
	if size := eo.width * eo.height * 4; len(eo.frameBuffer) != size {
		eo.frameBuffer = make([]byte, size)
	}

	eo.windowedW = eo.width * eo.scale
	eo.windowedH = eo.height * eo.scale
	eo.fullscreen = config.Fullscreen
	ebiten.SetFullscreen(eo.fullscreen)
	if !eo.fullscreen {
		ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	}
	if eo.window != nil {
		eo.window.Dispose()
		eo.window = nil
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() display.DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return display.DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		RefreshRate: eo.refreshRate,
		VSync:       true,
		Fullscreen:  eo.fullscreen,
	}
}

// WaitForVSync blocks until the next Draw, or returns at once after the
// window has closed.
func (eo *EbitenOutput) WaitForVSync() error {
	select {
	case <-eo.vsyncChan:
	case <-eo.Done():
	}
	return nil
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) GetRefreshRate() int {
	return eo.refreshRate
}

// ReadPin reports the pulled-up line level: low while its key is held.
func (eo *EbitenOutput) ReadPin(pin kernel.LineID) bool {
	if pin >= 32 {
		return true
	}
	return eo.held.Load()&(1<<pin) == 0
}

func (eo *EbitenOutput) SetPasteHandler(fn func(string)) {
	eo.bufferMutex.Lock()
	eo.pasteHandler = fn
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetCloseHandler(fn func()) {
	eo.bufferMutex.Lock()
	eo.closeHandler = fn
	eo.bufferMutex.Unlock()
}

// SetMuteHandler registers the F10 sound toggle.
func (eo *EbitenOutput) SetMuteHandler(fn func()) {
	eo.bufferMutex.Lock()
	eo.muteHandler = fn
	eo.bufferMutex.Unlock()
}

// SetStatusSource supplies the text shown in the F12 status bar.
func (eo *EbitenOutput) SetStatusSource(fn func() string) {
	eo.bufferMutex.Lock()
	eo.statusSource = fn
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running.Load() {
		eo.bufferMutex.RLock()
		onClose := eo.closeHandler
		eo.bufferMutex.RUnlock()
		if onClose != nil {
			onClose()
		}
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
		}
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		eo.bufferMutex.RLock()
		onMute := eo.muteHandler
		eo.bufferMutex.RUnlock()
		if onMute != nil {
			onMute()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.bufferMutex.Unlock()
	}
	eo.sampleKeypad()

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste()
	}
	return nil
}

func (eo *EbitenOutput) sampleKeypad() {
	var mask uint32
	for _, k := range keypad {
		if !ebiten.IsKeyPressed(k.key) {
			continue
		}
		if line, ok := kernel.LineForKey(k.r); ok {
			mask |= 1 << line
		}
	}
	eo.held.Store(mask)
}

// normalizePasteText converts CR and CRLF line endings to LF.
func normalizePasteText(raw []byte) []byte {
	norm := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\r' {
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			norm = append(norm, '\n')
			continue
		}
		norm = append(norm, raw[i])
	}
	return norm
}

func (eo *EbitenOutput) handleClipboardPaste() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
		if !eo.clipboardOK {
			eo.logger.Warn("clipboard unavailable")
		}
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	if len(data) > pasteLimit {
		eo.logger.Warn("clipboard script too large", zap.Int("bytes", len(data)), zap.Int("limit", pasteLimit))
		return
	}
	eo.bufferMutex.RLock()
	handler := eo.pasteHandler
	eo.bufferMutex.RUnlock()
	if handler != nil {
		// Storing the script touches the database; keep it off the frame loop.
		go handler(string(normalizePasteText(data)))
	}
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}

	eo.bufferMutex.RLock()
	eo.window.WritePixels(eo.frameBuffer)
	showStatusBar := eo.showStatusBar
	status := eo.statusSource
	eo.bufferMutex.RUnlock()
	screen.DrawImage(eo.window, nil)
	if showStatusBar {
		eo.drawStatusBar(screen, status)
	}

	eo.frameCount.Add(1)
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image, status func() string) {
	if statusBarH >= eo.height {
		return
	}
	y := eo.height - statusBarH
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.width), statusBarH, color.RGBA{0, 0, 0, 180})

	line := fmt.Sprintf("FPS %.0f", ebiten.ActualFPS())
	if status != nil {
		line = status() + "  " + line
	}
	text.Draw(screen, line, basicfont.Face7x13, 4, y+12, color.RGBA{0, 220, 90, 255})
}

func newHostIO(cfg Config, hooks hostHooks, logger *zap.Logger) (*hostIO, error) {
	if cfg.Display.Headless {
		return newHeadlessIO(hooks, logger), nil
	}
	eo := NewEbitenOutput(logger.Named("window"))
	eo.SetPasteHandler(hooks.paste)
	eo.SetCloseHandler(hooks.quit)
	eo.SetMuteHandler(hooks.mute)
	eo.SetStatusSource(hooks.status)
	return &hostIO{
		video: eo,
		pins:  eo,
		stop:  func() { _ = eo.Close() },
	}, nil
}

var (
	_ display.VideoOutput = (*EbitenOutput)(nil)
	_ kernel.PinReader    = (*EbitenOutput)(nil)
)
