package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shopfront/internal/apiclient"
	"shopfront/internal/repos"
	"shopfront/internal/schedule"
)

// countingSlots records writes so tests can assert that no-ops stay no-ops.
type countingSlots struct {
	repos.SlotStore
	mu     sync.Mutex
	puts   int
	delete int
}

func (c *countingSlots) Put(ctx context.Context, sid, slot string, v []byte) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.SlotStore.Put(ctx, sid, slot, v)
}

func (c *countingSlots) Delete(ctx context.Context, sid, slot string) error {
	c.mu.Lock()
	c.delete++
	c.mu.Unlock()
	return c.SlotStore.Delete(ctx, sid, slot)
}

func (c *countingSlots) Update(ctx context.Context, sid, slot string, fn repos.UpdateFunc) error {
	wrote := false
	err := c.SlotStore.Update(ctx, sid, slot, func(cur []byte) ([]byte, error) {
		next, err := fn(cur)
		wrote = err == nil
		return next, err
	})
	if err == nil && wrote {
		c.mu.Lock()
		c.puts++
		c.mu.Unlock()
	}
	return err
}

func (c *countingSlots) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts + c.delete
}

func newSlots(t *testing.T) *countingSlots {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &countingSlots{SlotStore: repos.NewSlotRepo(db)}
}

// newFileSlots is a slot store on a real sqlite file, where concurrent
// writers contend for the database lock.
func newFileSlots(t *testing.T) *countingSlots {
	t.Helper()
	db, err := repos.OpenDB(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &countingSlots{SlotStore: repos.NewSlotRepo(db)}
}

func newAPI(t *testing.T, mux *http.ServeMux) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return apiclient.New(srv.URL+"/api/v1", 2*time.Second)
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) After(d time.Duration, f func()) schedule.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

func newFakeScheduler() (*schedule.Scheduler, *fakeClock) {
	c := &fakeClock{}
	return schedule.NewWithClock(time.Now, c.After), c
}
