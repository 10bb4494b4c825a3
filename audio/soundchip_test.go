package audio

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestSoundChip_SilentWithoutTones(t *testing.T) {
	chip := NewSoundChip(8000, zap.NewNop())
	chip.TryPushSamples()
	if chip.Buffered() != MaxPushPerFrame {
		t.Fatalf("buffered %d, want %d", chip.Buffered(), MaxPushPerFrame)
	}
	for i := 0; i < MaxPushPerFrame; i++ {
		if s := chip.ReadSample(); s != 0 {
			t.Fatalf("sample %d = %v, want silence", i, s)
		}
	}
}

func TestSoundChip_SquareWave(t *testing.T) {
	chip := NewSoundChip(8000, zap.NewNop())
	if !chip.PlayTone(1000, 10) {
		t.Fatal("tone rejected")
	}
	chip.TryPushSamples()

	// 1 kHz at 8 kHz: four high samples, four low.
	want := []float32{toneVolume, toneVolume, toneVolume, toneVolume, -toneVolume, -toneVolume, -toneVolume, -toneVolume}
	for i, w := range want {
		if s := chip.ReadSample(); s != w {
			t.Fatalf("sample %d = %v, want %v", i, s, w)
		}
	}

	// 10 ms at 8 kHz is 80 samples, then silence.
	for i := len(want); i < 80; i++ {
		chip.ReadSample()
	}
	if s := chip.ReadSample(); s != 0 {
		t.Fatalf("tone ran past its duration: %v", s)
	}
}

func TestSoundChip_PushIsBounded(t *testing.T) {
	chip := NewSoundChip(DefaultSampleRate, zap.NewNop())
	for i := 0; i < 10; i++ {
		chip.TryPushSamples()
	}
	if chip.Buffered() != RingSize {
		t.Fatalf("buffered %d, want a full ring of %d", chip.Buffered(), RingSize)
	}
	chip.ReadSample()
	chip.TryPushSamples()
	if chip.Buffered() != RingSize {
		t.Fatalf("buffered %d after refill", chip.Buffered())
	}
}

func TestSoundChip_Underrun(t *testing.T) {
	chip := NewSoundChip(DefaultSampleRate, zap.NewNop())
	if s := chip.ReadSample(); s != 0 {
		t.Fatalf("empty ring returned %v", s)
	}
	if chip.Underruns() != 1 {
		t.Fatalf("underruns = %d", chip.Underruns())
	}
}

func TestSoundChip_RejectsBadTones(t *testing.T) {
	chip := NewSoundChip(DefaultSampleRate, zap.NewNop())
	if chip.PlayTone(0, 100) || chip.PlayTone(440, 0) {
		t.Fatal("degenerate tone accepted")
	}
	for i := 0; i < MaxQueuedTones; i++ {
		chip.PlayTone(440, 10)
	}
	if chip.PlayTone(440, 10) {
		t.Fatal("tone queue grew past its cap")
	}
	if chip.Pending() != MaxQueuedTones {
		t.Fatalf("pending = %d", chip.Pending())
	}
}

func TestSoundChip_ClampsDuration(t *testing.T) {
	chip := NewSoundChip(8000, zap.NewNop())
	if !chip.PlayTone(440, 1<<60) {
		t.Fatal("long tone rejected")
	}
	chip.PlayTone(880, 10)
	if got, want := chip.tones[0].Duration, 8000*MaxToneMillis/1000; got != want {
		t.Fatalf("duration = %d samples, want %d", got, want)
	}
	if got := chip.tones[1].Duration; got != 80 {
		t.Fatalf("second tone duration = %d", got)
	}
}

func TestSoundChip_ClampsFrequencyToNyquist(t *testing.T) {
	chip := NewSoundChip(8000, zap.NewNop())
	chip.PlayTone(100_000, 10)
	if got := chip.tones[0].Freq; got != 4000 {
		t.Fatalf("freq = %v, want 4000", got)
	}
	chip.TryPushSamples()
	for i := 0; i < 80; i++ {
		want := float32(toneVolume)
		if i%2 == 1 {
			want = -toneVolume
		}
		if s := chip.ReadSample(); s != want {
			t.Fatalf("sample %d = %v, want %v", i, s, want)
		}
	}
}

func TestSoundChip_Muted(t *testing.T) {
	chip := NewSoundChip(8000, zap.NewNop())
	chip.SetEnabled(false)
	chip.PlayTone(1000, 10)
	chip.TryPushSamples()
	for i := 0; i < 80; i++ {
		if s := chip.ReadSample(); s != 0 {
			t.Fatalf("muted chip produced %v", s)
		}
	}
}

// Run with -race: producer and consumer on separate goroutines.
func TestSoundChip_ConcurrentPushRead(t *testing.T) {
	chip := NewSoundChip(DefaultSampleRate, zap.NewNop())
	var wg sync.WaitGroup
	wg.Go(func() {
		for i := 0; i < 200; i++ {
			chip.PlayTone(440, 5)
			chip.TryPushSamples()
		}
	})
	wg.Go(func() {
		for i := 0; i < 200*MaxPushPerFrame; i++ {
			chip.ReadSample()
		}
	})
	wg.Wait()
	if b := chip.Buffered(); b < 0 || b > RingSize {
		t.Fatalf("ring accounting broken: %d", b)
	}
}
