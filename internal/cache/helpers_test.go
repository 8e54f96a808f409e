package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/caesium-cloud/jobassist/internal/job"
	"github.com/caesium-cloud/jobassist/internal/store/memory"
	"github.com/stretchr/testify/require"
)

// faultyStore wraps a memory store with injectable failures and a
// reported usage override.
type faultyStore struct {
	*memory.Store

	mu        sync.Mutex
	getErr    error
	removeErr error
	usageErr  error
	used      *int64
	setErr    func(items map[string][]byte) error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.New(0)}
}

func (f *faultyStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, keys...)
}

func (f *faultyStore) Set(ctx context.Context, items map[string][]byte) error {
	f.mu.Lock()
	fn := f.setErr
	f.mu.Unlock()

	if fn != nil {
		if err := fn(items); err != nil {
			return err
		}
	}
	return f.Store.Set(ctx, items)
}

func (f *faultyStore) Remove(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	err := f.removeErr
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return f.Store.Remove(ctx, keys...)
}

func (f *faultyStore) BytesInUse(ctx context.Context) (int64, error) {
	f.mu.Lock()
	err, used := f.usageErr, f.used
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if used != nil {
		return *used, nil
	}
	return f.Store.BytesInUse(ctx)
}

// setRatio makes the store report usage at ratio of the default quota.
func (f *faultyStore) setRatio(ratio float64) {
	used := int64(ratio * float64(DefaultQuotaBytes))

	f.mu.Lock()
	f.used = &used
	f.mu.Unlock()
}

func (f *faultyStore) failSet(fn func(items map[string][]byte) error) {
	f.mu.Lock()
	f.setErr = fn
	f.mu.Unlock()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, cfg Config) (*Cache, *faultyStore, *testClock) {
	t.Helper()

	s := newFaultyStore()
	clock := newTestClock()
	c := New(s, cfg, WithClock(clock.Now))

	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	return c, s, clock
}

func testJob(i int) job.Job {
	return job.Job{
		Type:        job.KindJobPage,
		Title:       fmt.Sprintf("Backend Engineer %d", i),
		Company:     "Acme",
		Description: "Build and operate services.",
		URL:         fmt.Sprintf("https://www.linkedin.com/jobs/view/%d", i),
	}
}

func testAnalysis(score int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"relevance_score": %d, "should_apply": true}`, score))
}

// fill puts n jobs, advancing the clock a minute between writes.
func fill(ctx context.Context, c *Cache, clock *testClock, n int) []job.Job {
	jobs := make([]job.Job, n)
	for i := range jobs {
		jobs[i] = testJob(i)
		c.Put(ctx, jobs[i], testAnalysis(i))
		clock.Advance(time.Minute)
	}
	return jobs
}
