// interfaces.go - Collaborator interfaces

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

import "time"

// ScriptEngine runs user scripts. All methods are called from context B.
type ScriptEngine interface {
	Init() error
	// Run starts executing source. A returned error means the script could
	// not be loaded at all and is handled on the fatal path.
	Run(source string) error
	// PumpAsync advances at most one unit of deferred work.
	PumpAsync()
	DispatchPress(line LineID)
	DispatchFrame(elapsedMs int64)
}

// RenderPipeline pushes one composed frame to the panel per
// BeginTransfer/ProduceFrame/EndTransfer cycle.
type RenderPipeline interface {
	BeginTransfer() error
	ProduceFrame(overlay OverlaySnapshot) error
	EndTransfer() error
	ClearTextRegion()
}

// UploadSource reports completed script transfers. PollPending returns true
// exactly once per completed upload and never blocks.
type UploadSource interface {
	PollPending() bool
}

// ScriptStore returns the most recently stored script, if any.
type ScriptStore interface {
	ReadCurrentScript() (string, bool)
}

// Watchdog resets the device when it expires. Arming with a zero timeout
// resets immediately.
type Watchdog interface {
	Arm(timeout time.Duration)
}

// AudioSink moves synthesized samples towards the speaker. TryPushSamples
// must return in bounded time.
type AudioSink interface {
	TryPushSamples()
}

// PinReader samples the raw level of an input line. Lines are pulled up, so
// true means the button is not held.
type PinReader interface {
	ReadPin(pin LineID) bool
}

// EntropySource exposes the noisy readings used to seed the script PRNG.
type EntropySource interface {
	Noise() uint32
	Temperature() uint32
}

// Clock is the monotonic time source of context B.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock. Durations computed from its readings
// use the monotonic component.
func SystemClock() Clock { return systemClock{} }
