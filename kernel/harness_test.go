package kernel

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func joinCases(parts ...string) string {
	return strings.Join(parts, TestDelimiter)
}

func TestSplitTestCases_ThreeDelimiters(t *testing.T) {
	script := joinCases("setup()\n", "\nassertA()\n", "\nassertB()\n", "\nassertC()\n")

	cases := SplitTestCases(script, 0, zap.NewNop())
	require.Len(t, cases, 4)

	sources := make([]string, len(cases))
	for i, tc := range cases {
		require.Equal(t, i, tc.Index)
		sources[i] = tc.Source
	}
	require.Equal(t, script, joinCases(sources...))
}

func TestSplitTestCases_NoDelimiter(t *testing.T) {
	script := "let x = 1\nonInput(function() end)\n"
	if ContainsTestCases(script) {
		t.Fatal("plain script detected as a test script")
	}
	h := NewHarness(SplitTestCases("", 0, zap.NewNop()), &fakeEngine{}, DefaultCaseDelay, zap.NewNop())
	if h.Active() {
		t.Fatal("harness without cases is active")
	}
}

func TestSplitTestCases_TruncatesAtCap(t *testing.T) {
	parts := make([]string, 15)
	for i := range parts {
		parts[i] = "case" + string(rune('A'+i))
	}
	script := joinCases(parts...)

	first := SplitTestCases(script, 0, zap.NewNop())
	second := SplitTestCases(script, 0, zap.NewNop())
	require.Len(t, first, MaxTestCases)
	require.Equal(t, first, second)
	require.Equal(t, "caseA", first[0].Source)
	require.Equal(t, "caseJ", first[MaxTestCases-1].Source)

	// Exactly ten delimiters with a trailing case still yields ten.
	exact := joinCases(parts[:11]...)
	require.Len(t, SplitTestCases(exact, 0, zap.NewNop()), MaxTestCases)
}

func TestSplitTestCases_SkipsEmptySpans(t *testing.T) {
	script := TestDelimiter + "a" + TestDelimiter + TestDelimiter + "b" + TestDelimiter
	cases := SplitTestCases(script, 0, zap.NewNop())
	require.Len(t, cases, 2)
	require.Equal(t, "a", cases[0].Source)
	require.Equal(t, "b", cases[1].Source)
	require.Equal(t, 1, cases[1].Index)
}

func TestSplitTestCases_SegmentBudget(t *testing.T) {
	script := joinCases("short", strings.Repeat("x", 100), "tail")
	cases := SplitTestCases(script, 10, zap.NewNop())
	require.Len(t, cases, 2)
	require.Equal(t, "short", cases[0].Source)
	require.Equal(t, "tail", cases[1].Source)
}

func TestHarness_RunsCasesInOrder(t *testing.T) {
	engine := &fakeEngine{}
	clock := newFakeClock()
	cases := SplitTestCases(joinCases("one", "two"), 0, zap.NewNop())
	h := NewHarness(cases, engine, DefaultCaseDelay, zap.NewNop())

	require.True(t, h.Active())
	require.NoError(t, h.Advance(clock.Now()))
	require.Equal(t, []string{"one"}, engine.runs())
	require.Equal(t, HarnessRunning, h.State())

	clock.advance(DefaultCaseDelay - time.Millisecond)
	require.NoError(t, h.Advance(clock.Now()))
	require.Equal(t, []string{"one"}, engine.runs(), "case replaced before its delay elapsed")

	clock.advance(time.Millisecond)
	require.NoError(t, h.Advance(clock.Now()))
	require.Equal(t, []string{"one", "two"}, engine.runs())
	require.Equal(t, 1, h.Index())

	clock.advance(DefaultCaseDelay)
	require.NoError(t, h.Advance(clock.Now()))
	require.False(t, h.Active())
	require.Equal(t, 0, h.Index())
	require.Equal(t, HarnessIdle, h.State())

	// Dormant for the rest of the session.
	clock.advance(10 * DefaultCaseDelay)
	require.NoError(t, h.Advance(clock.Now()))
	require.Equal(t, []string{"one", "two"}, engine.runs())
}

func TestHarness_CaseLoadFailure(t *testing.T) {
	boom := errors.New("unexpected symbol near 'end'")
	engine := &fakeEngine{runErr: map[string]error{"bad": boom}}
	h := NewHarness([]TestCase{{Index: 0, Source: "bad"}}, engine, DefaultCaseDelay, zap.NewNop())

	err := h.Advance(newFakeClock().Now())
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	var kerr *KernelError
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, "test case", kerr.Operation)
}

func TestHarnessState_String(t *testing.T) {
	tests := []struct {
		state HarnessState
		want  string
	}{
		{HarnessIdle, "idle"},
		{HarnessRunning, "running"},
		{HarnessState(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("HarnessState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
