package upload

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intuitionamiga/IntuitionHandheld/storage"
)

type memSaver struct {
	mu    sync.Mutex
	saved []storage.Record
	err   error
}

func (m *memSaver) Save(_ context.Context, name, body string) (storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return storage.Record{}, m.err
	}
	if body == "" {
		return storage.Record{}, storage.ErrEmptyScript
	}
	rec := storage.Record{ID: name + "-id", Name: name, Body: body}
	m.saved = append(m.saved, rec)
	return rec, nil
}

func (m *memSaver) bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.saved {
		out = append(out, r.Body)
	}
	return out
}

func TestTracker_PollPendingOncePerUpload(t *testing.T) {
	tr := NewTracker(&memSaver{}, zap.NewNop())
	require.False(t, tr.PollPending())

	ctx := context.Background()
	_, err := tr.Upload(ctx, "a", "a()")
	require.NoError(t, err)
	_, err = tr.Upload(ctx, "b", "b()")
	require.NoError(t, err)

	require.True(t, tr.PollPending())
	require.True(t, tr.PollPending())
	require.False(t, tr.PollPending())
	require.Equal(t, uint64(2), tr.Total())
}

func TestTracker_FailedUploadIsNotPending(t *testing.T) {
	tr := NewTracker(&memSaver{err: errors.New("disk full")}, zap.NewNop())
	_, err := tr.Upload(context.Background(), "a", "a()")
	require.Error(t, err)
	require.False(t, tr.PollPending())
	require.Zero(t, tr.Total())
}

func TestTracker_ConcurrentUploads(t *testing.T) {
	tr := NewTracker(&memSaver{}, zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Go(func() {
			tr.Upload(context.Background(), "g", "g()")
		})
	}
	wg.Wait()

	polled := 0
	for tr.PollPending() {
		polled++
	}
	require.Equal(t, 16, polled)
}
