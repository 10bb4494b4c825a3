package kernel

import (
	"math/rand/v2"
	"testing"
)

func fillLine(l *InputLine, samples []bool) {
	for _, s := range samples {
		l.Sample(s)
	}
}

func window(highs int) []bool {
	s := make([]bool, HistoryLen)
	for i := 0; i < highs; i++ {
		s[i] = true
	}
	return s
}

func TestInputLine_ReleaseThreshold(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for highs := 0; highs <= HistoryLen; highs++ {
		base := window(highs)

		orders := map[string][]bool{
			"highs-first": base,
			"highs-last":  append(append([]bool(nil), base[highs:]...), base[:highs]...),
		}
		for i := 0; i < 4; i++ {
			shuffled := append([]bool(nil), base...)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			orders["shuffled-"+string(rune('a'+i))] = shuffled
		}

		want := highs >= 54
		for name, samples := range orders {
			l := NewInputLine(5)
			fillLine(l, samples)
			if got := l.HighCount(); got != highs {
				t.Fatalf("%d highs %s: HighCount = %d", highs, name, got)
			}
			if got := l.Released(); got != want {
				t.Fatalf("%d highs %s: Released = %v, want %v", highs, name, got, want)
			}
		}
	}
}

func TestInputLine_StartsPressed(t *testing.T) {
	l := NewInputLine(7)
	if l.Released() {
		t.Fatal("zeroed history should read as pressed")
	}
}

func TestInputLine_OldestSampleOverwritten(t *testing.T) {
	l := NewInputLine(5)
	fillLine(l, window(HistoryLen))
	if l.HighCount() != HistoryLen {
		t.Fatalf("HighCount = %d, want %d", l.HighCount(), HistoryLen)
	}
	start := l.Cursor()
	l.Sample(false)
	if l.HighCount() != HistoryLen-1 {
		t.Fatalf("one low sample should replace one high, got %d highs", l.HighCount())
	}
	if l.Cursor() != (start+1)%HistoryLen {
		t.Fatalf("cursor moved from %d to %d", start, l.Cursor())
	}
}

func TestInputLine_UpdateEmitsOnlyOnPressEdge(t *testing.T) {
	l := NewInputLine(12)

	// Releasing the line is a transition but never an event.
	for i := 0; i < 2*HistoryLen; i++ {
		if l.Update(true) {
			t.Fatalf("event on high sample %d", i)
		}
	}

	events := 0
	for i := 0; i < 2*HistoryLen; i++ {
		if l.Update(false) {
			events++
			if l.HighCount() != releaseThreshold {
				t.Fatalf("press edge at %d highs, want %d", l.HighCount(), releaseThreshold)
			}
		}
	}
	if events != 1 {
		t.Fatalf("held button produced %d events, want 1", events)
	}

	// Steady pressed state stays silent.
	for i := 0; i < HistoryLen; i++ {
		if l.Update(false) {
			t.Fatal("idle pressed line produced an event")
		}
	}
}

func TestInputLine_BounceProducesSingleEvent(t *testing.T) {
	l := NewInputLine(8)
	for i := 0; i < HistoryLen; i++ {
		l.Update(true)
	}
	events := 0
	// Contact bounce: alternating levels, then a firm press.
	for i := 0; i < 20; i++ {
		if l.Update(i%2 == 0) {
			events++
		}
	}
	for i := 0; i < HistoryLen; i++ {
		if l.Update(false) {
			events++
		}
	}
	if events != 1 {
		t.Fatalf("bouncing press produced %d events, want 1", events)
	}
}
