package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/session"
	"github.com/vistoria/inspection/internal/testutil"
)

type fakeCleaner struct {
	mu      sync.Mutex
	calls   []time.Duration
	expired []session.Expired
}

func (f *fakeCleaner) CleanupOldDrafts(maxAge time.Duration) []session.Expired {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, maxAge)
	return f.expired
}

func TestScheduler_ExpireDrafts(t *testing.T) {
	cleaner := &fakeCleaner{expired: []session.Expired{{DraftID: "d1"}}}
	s := NewScheduler(cleaner, "@every 1m", 30*time.Minute, nil)

	s.ExpireDrafts()

	require.Len(t, cleaner.calls, 1)
	assert.Equal(t, 30*time.Minute, cleaner.calls[0])
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(&fakeCleaner{}, "@every 1h", time.Hour, nil)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Start())
	assert.False(t, s.Next().IsZero())
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(&fakeCleaner{}, "every tuesday", time.Hour, nil)
	assert.Error(t, s.Start())
}

func TestImageReaper(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("keep", "a.png", "image/png", []byte("a"))
	store.AddFile("orphan-1", "b.png", "image/png", []byte("b"))
	store.AddFile("orphan-2", "c.png", "image/png", []byte("c"))

	reap := ImageReaper(store, nil)
	reap([]session.Expired{
		{DraftID: "d1", ImageIDs: []string{"orphan-1", "already-gone"}},
		{DraftID: "d2", ImageIDs: []string{"orphan-2"}},
	})

	assert.True(t, store.Has("keep"))
	assert.False(t, store.Has("orphan-1"))
	assert.False(t, store.Has("orphan-2"))
}

func TestImageReaper_WithManager(t *testing.T) {
	store := testutil.NewMockStorage()
	img := store.AddFile("photo", "sala.png", "image/png", []byte("x"))

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	m := session.NewManager(nil,
		session.WithClock(clock),
		session.WithExpiry(30*time.Minute, ImageReaper(store, nil)))

	info, err := m.Create("")
	require.NoError(t, err)
	require.NoError(t, m.With(info.ID, func(f *inspection.Form) error {
		f.AttachImage(*img)
		return nil
	}))

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	s := NewScheduler(m, "@every 5m", 30*time.Minute, nil)
	s.ExpireDrafts()

	assert.Zero(t, m.Len())
	assert.False(t, store.Has("photo"))
}
