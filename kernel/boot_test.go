package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bootFixture struct {
	boot   *BootSequencer
	sup    *Supervisor
	render *fakeRender
	store  *fakeStore
	upload *fakeUpload
	poller *Poller
	events chan InputEvent
	slept  []time.Duration
}

func newBootFixture() *bootFixture {
	f := &bootFixture{
		render: &fakeRender{},
		store:  &fakeStore{},
		upload: &fakeUpload{},
		events: make(chan InputEvent, EventQueueDepth),
	}
	f.sup = NewSupervisor(f.render, &fakeWatchdog{}, zap.NewNop())
	f.poller = NewPoller(newFakePins(), DefaultLines, f.events, time.Millisecond, zap.NewNop())
	f.boot = NewBootSequencer(f.sup, f.store, f.upload, f.poller, f.events, DefaultSettleDelay, zap.NewNop())
	f.boot.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

func (f *bootFixture) stop(t *testing.T, cancel context.CancelFunc) {
	t.Helper()
	cancel()
	if f.poller.Started() {
		<-f.poller.Done()
	}
}

func TestBoot_WaitsForUpload(t *testing.T) {
	f := newBootFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer f.stop(t, cancel)

	for i := 0; i < 3; i++ {
		require.Equal(t, StateNoScript, f.boot.Tick(ctx, StateNoScript))
	}
	require.Len(t, f.render.frames, 3)
	require.Equal(t, uploadPrompt, f.render.last().Text)
	require.Equal(t, ColorInfo, f.render.last().Color)
	require.False(t, f.poller.Started(), "poller launched before a script exists")

	f.upload.pending = 1
	f.upload.onPoll = func() { f.store.put("print('hi')") }
	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateNoScript))
	require.Equal(t, "print('hi')", f.boot.Script())
}

func TestBoot_StoredScriptSkipsUploadPrompt(t *testing.T) {
	f := newBootFixture()
	f.store.put("x = 1")
	ctx, cancel := context.WithCancel(context.Background())
	defer f.stop(t, cancel)

	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateNoScript))
	require.Empty(t, f.render.frames)
}

func TestBoot_ArmsOnceAndDrainsSettleNoise(t *testing.T) {
	f := newBootFixture()
	f.store.put("x = 1")
	ctx, cancel := context.WithCancel(context.Background())
	defer f.stop(t, cancel)

	// Edges latched before the lines settled must not start the game.
	f.events <- InputEvent{Line: 5}
	f.events <- InputEvent{Line: 8}

	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateAwaitingStart))
	require.True(t, f.poller.Started())
	require.Equal(t, []time.Duration{DefaultSettleDelay}, f.slept)
	require.Equal(t, startPrompt, f.render.last().Text)

	for i := 0; i < 3; i++ {
		require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateAwaitingStart))
	}
	require.Len(t, f.slept, 1, "settle delay repeated")

	f.events <- InputEvent{Line: 12}
	require.Equal(t, StateRunning, f.boot.Tick(ctx, StateAwaitingStart))
	require.Empty(t, f.events, "start key should be consumed")
}

func TestBoot_UploadWhileAwaitingStartRefreshesScript(t *testing.T) {
	f := newBootFixture()
	f.store.put("old()")
	ctx, cancel := context.WithCancel(context.Background())
	defer f.stop(t, cancel)

	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateNoScript))
	f.upload.pending = 1
	f.upload.onPoll = func() { f.store.put("new()") }

	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateAwaitingStart))
	require.Equal(t, "new()", f.boot.Script())
	require.Equal(t, startPrompt, f.render.last().Text)
}

func TestBoot_StoredScriptConsumesPendingUpload(t *testing.T) {
	f := newBootFixture()
	f.store.put("game()")
	f.upload.pending = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer f.stop(t, cancel)

	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateNoScript))
	require.Zero(t, f.upload.pending, "upload left pending across the handoff")
	require.Equal(t, "game()", f.boot.Script())
}

func TestBoot_RefreshReadsStoreAndClearsPending(t *testing.T) {
	f := newBootFixture()
	f.store.put("old()")
	ctx, cancel := context.WithCancel(context.Background())
	defer f.stop(t, cancel)

	require.Equal(t, StateAwaitingStart, f.boot.Tick(ctx, StateNoScript))
	f.store.put("new()")
	f.upload.pending = 2

	require.Equal(t, "new()", f.boot.Refresh())
	require.Zero(t, f.upload.pending)
}
