package kernel

import (
	"strings"
	"testing"
)

func TestBannerText_Layout(t *testing.T) {
	rows := OverlaySnapshot{Text: startPrompt}.Lines()
	if len(rows) != OverlayRows {
		t.Fatalf("banner has %d rows, want %d", len(rows), OverlayRows)
	}
	for i, row := range rows {
		if len(row) != OverlayCols {
			t.Fatalf("row %d is %d wide: %q", i, len(row), row)
		}
	}
	if strings.TrimSpace(rows[7]) != "PRESS ANY KEY" || strings.TrimSpace(rows[8]) != "TO RUN" {
		t.Fatalf("message rows = %q / %q", rows[7], rows[8])
	}
	if strings.TrimSpace(rows[OverlayRows-1]) != overlayFooter {
		t.Fatalf("footer row = %q", rows[OverlayRows-1])
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"short", "OUT OF MEMORY", []string{"OUT OF MEMORY"}},
		{"wraps on words", "attempt to index a nil value", []string{"attempt to index a", "nil value"}},
		{"splits long words", strings.Repeat("x", 25), []string{strings.Repeat("x", 20), "xxxxx"}},
		{"keeps newlines", "line 3:\nboom", []string{"line 3:", "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := OverlaySnapshot{Text: wrapText(tt.in)}.Lines()
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows %q, want %q", len(rows), rows, tt.want)
			}
			for i := range rows {
				if strings.TrimRight(rows[i], " ") != tt.want[i] {
					t.Fatalf("row %d = %q, want %q", i, rows[i], tt.want[i])
				}
			}
		})
	}
}

func TestWrapText_ClipsToScreen(t *testing.T) {
	msg := strings.Repeat("word ", 200)
	if n := len(OverlaySnapshot{Text: wrapText(msg)}.Lines()); n != OverlayRows {
		t.Fatalf("wrapped to %d rows, want %d", n, OverlayRows)
	}
}

func TestErrorOverlay_Clear(t *testing.T) {
	o := newErrorOverlay()
	if s := o.Snapshot(); s.Color != ColorInfo || !s.FullScreen {
		t.Fatalf("boot overlay = %+v", s)
	}
	o.Set(uploadPrompt, ColorInfo, true)
	o.Clear(ColorFatal)
	s := o.Snapshot()
	if !s.Empty() || s.Color != ColorFatal || s.FullScreen {
		t.Fatalf("cleared overlay = %+v", s)
	}
}

func TestLineForKey(t *testing.T) {
	for line, name := range keyNames {
		got, ok := LineForKey(rune(name[0]))
		if !ok || got != line {
			t.Errorf("LineForKey(%q) = %d, %v", name, got, ok)
		}
		upper, ok := LineForKey(rune(name[0]) - 'a' + 'A')
		if !ok || upper != line {
			t.Errorf("LineForKey upper %q = %d, %v", name, upper, ok)
		}
	}
	for _, r := range []rune{'x', '1', 0, 'ẃ', 0x100 + 'w'} {
		if _, ok := LineForKey(r); ok {
			t.Errorf("LineForKey(%q) matched", r)
		}
	}
}

func TestSeed(t *testing.T) {
	src := &fakeEntropy{noise: []uint32{0x01, 0x02, 0x04, 0x08}, temp: 0x2a}
	got := Seed(src)
	want := uint64(0x01) ^ uint64(0x02)<<8 ^ uint64(0x04)<<16 ^ uint64(0x08)<<24 ^ uint64(0x2a)<<32
	if got != want {
		t.Fatalf("Seed = %#x, want %#x", got, want)
	}
	if src.reads != noiseReads {
		t.Fatalf("noise read %d times, want %d", src.reads, noiseReads)
	}
}
