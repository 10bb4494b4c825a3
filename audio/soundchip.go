// soundchip.go - Square-wave tone generator and sample ring

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

package audio

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	DefaultSampleRate = 44100
	// RingSize must stay a power of two.
	RingSize = 8192
	// MaxPushPerFrame bounds the work TryPushSamples does in one call.
	MaxPushPerFrame = 2048
	// MaxQueuedTones caps the tone queue; further tones are dropped.
	MaxQueuedTones = 64
	// MaxToneMillis caps a single tone; longer requests are shortened.
	MaxToneMillis = 10_000

	toneVolume = 0.25
)

// Tone is one square-wave note.
type Tone struct {
	Freq     float32
	Duration int // samples
}

// SoundChip synthesizes queued square-wave tones into a single-producer
// single-consumer ring. The kernel pushes from context B; the audio backend
// pulls from its own goroutine.
type SoundChip struct {
	sampleRate int
	logger     *zap.Logger

	ring [RingSize]float32
	head atomic.Uint64 // next write, producer only
	tail atomic.Uint64 // next read, consumer only

	mu    sync.Mutex
	tones []Tone

	// Producer-side oscillator state.
	current   Tone
	remaining int
	phase     float32

	enabled   atomic.Bool
	underruns atomic.Uint64
}

// NewSoundChip returns an enabled chip running at sampleRate.
func NewSoundChip(sampleRate int, logger *zap.Logger) *SoundChip {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	chip := &SoundChip{sampleRate: sampleRate, logger: logger}
	chip.enabled.Store(true)
	return chip
}

// SampleRate returns the output rate in Hz.
func (chip *SoundChip) SampleRate() int {
	return chip.sampleRate
}

// PlayTone queues a square wave of freq Hz for ms milliseconds. Durations
// are capped at MaxToneMillis and frequencies at the Nyquist limit. It is
// safe to call from any goroutine.
func (chip *SoundChip) PlayTone(freq float64, ms int) bool {
	if freq <= 0 || ms <= 0 {
		return false
	}
	ms = min(ms, MaxToneMillis)
	freq = min(freq, chip.Nyquist())
	chip.mu.Lock()
	defer chip.mu.Unlock()
	if len(chip.tones) >= MaxQueuedTones {
		chip.logger.Debug("tone queue full, dropping tone", zap.Float64("freq", freq))
		return false
	}
	chip.tones = append(chip.tones, Tone{
		Freq:     float32(freq),
		Duration: chip.sampleRate * ms / 1000,
	})
	return true
}

// Nyquist is the highest frequency the chip will synthesize.
func (chip *SoundChip) Nyquist() float64 {
	return float64(chip.sampleRate) / 2
}

// Pending returns the number of queued tones not yet started.
func (chip *SoundChip) Pending() int {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	return len(chip.tones)
}

// SetEnabled mutes or unmutes the chip. A muted chip pushes silence.
func (chip *SoundChip) SetEnabled(on bool) {
	chip.enabled.Store(on)
}

// IsEnabled reports whether the chip is producing sound.
func (chip *SoundChip) IsEnabled() bool {
	return chip.enabled.Load()
}

// Buffered returns how many samples wait in the ring.
func (chip *SoundChip) Buffered() int {
	return int(chip.head.Load() - chip.tail.Load())
}

// Underruns returns how many reads found the ring empty.
func (chip *SoundChip) Underruns() uint64 {
	return chip.underruns.Load()
}

// TryPushSamples fills the free space of the ring, at most
// MaxPushPerFrame samples. It never blocks.
func (chip *SoundChip) TryPushSamples() {
	head := chip.head.Load()
	free := RingSize - int(head-chip.tail.Load())
	n := min(free, MaxPushPerFrame)
	for i := 0; i < n; i++ {
		chip.ring[(head+uint64(i))&(RingSize-1)] = chip.generateSample()
	}
	chip.head.Store(head + uint64(n))
}

// ReadSample pops one sample for the audio backend, returning silence when
// the ring is empty.
func (chip *SoundChip) ReadSample() float32 {
	tail := chip.tail.Load()
	if tail == chip.head.Load() {
		chip.underruns.Add(1)
		return 0
	}
	s := chip.ring[tail&(RingSize-1)]
	chip.tail.Store(tail + 1)
	return s
}

func (chip *SoundChip) generateSample() float32 {
	if chip.remaining == 0 && !chip.nextTone() {
		chip.phase = 0
		return 0
	}
	chip.remaining--
	if !chip.enabled.Load() {
		return 0
	}

	out := float32(toneVolume)
	if chip.phase >= 0.5 {
		out = -toneVolume
	}
	chip.phase += chip.current.Freq / float32(chip.sampleRate)
	if chip.phase >= 1 {
		chip.phase -= 1
	}
	return out
}

func (chip *SoundChip) nextTone() bool {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	if len(chip.tones) == 0 {
		return false
	}
	chip.current = chip.tones[0]
	chip.tones = chip.tones[1:]
	chip.remaining = chip.current.Duration
	chip.phase = 0
	return chip.remaining > 0
}
