package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkModeShortensExpiryThenReverts(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t, Config{BulkRevertDelay: 50 * time.Millisecond})

	require.Equal(t, DefaultExpiry, c.Expiry())

	c.EnterBulkMode(ctx)
	require.Equal(t, DefaultBulkExpiry, c.Expiry())
	require.True(t, c.BulkMode())

	require.Eventually(t, func() bool {
		return c.Expiry() == DefaultExpiry
	}, 2*time.Second, 10*time.Millisecond)
	require.False(t, c.BulkMode())
}

func TestBulkModeRearmsRevertTimer(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t, Config{BulkRevertDelay: 200 * time.Millisecond})

	c.EnterBulkMode(ctx)
	time.Sleep(120 * time.Millisecond)
	c.EnterBulkMode(ctx)
	time.Sleep(120 * time.Millisecond)

	require.Equal(t, DefaultBulkExpiry, c.Expiry(), "the first timer must not revert a later call")

	require.Eventually(t, func() bool {
		return c.Expiry() == DefaultExpiry
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBulkModeCleansAboveThreshold(t *testing.T) {
	ctx := context.Background()
	c, s, clock := newTestCache(t, Config{})

	fill(ctx, c, clock, 10)
	s.setRatio(0.75)

	c.EnterBulkMode(ctx)

	require.Len(t, c.Keys(ctx), 7)
}

func TestBulkModeExpiryAppliesToReads(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t, Config{})

	j := testJob(1)
	c.Put(ctx, j, testAnalysis(1))
	clock.Advance(13 * time.Hour)

	c.EnterBulkMode(ctx)

	_, ok := c.Get(ctx, j)
	require.False(t, ok)
}

func TestCloseRestoresExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(newFaultyStore(), Config{})

	c.EnterBulkMode(ctx)
	require.NoError(t, c.Close())
	require.Equal(t, DefaultExpiry, c.Expiry())
	require.False(t, c.BulkMode())

	// closed caches ignore bulk mode
	c.EnterBulkMode(ctx)
	require.Equal(t, DefaultExpiry, c.Expiry())
	require.NoError(t, c.Close())
}

func TestMaintainSweepsExpiredAndDanglingKeys(t *testing.T) {
	ctx := context.Background()
	c, s, clock := newTestCache(t, Config{})

	jobs := fill(ctx, c, clock, 3)
	clock.Advance(DefaultExpiry)
	fresh := testJob(50)
	c.Put(ctx, fresh, testAnalysis(50))

	// an indexed key whose entry vanished
	ghost := Fingerprint(testJob(60))
	require.NoError(t, s.Store.Set(ctx, map[string][]byte{
		IndexKey: []byte(`["` + Fingerprint(jobs[0]) + `","` + Fingerprint(jobs[1]) + `","` +
			Fingerprint(jobs[2]) + `","` + ghost + `","` + Fingerprint(fresh) + `"]`),
	}))

	c.Maintain(ctx)

	require.Equal(t, []string{Fingerprint(fresh)}, c.Keys(ctx))
}

func TestStartValidatesSchedule(t *testing.T) {
	c, _, _ := newTestCache(t, Config{CleanupSchedule: "every now and then"})
	require.Error(t, c.Start(context.Background()))
}

func TestStartTwiceAndAfterClose(t *testing.T) {
	ctx := context.Background()
	c := New(newFaultyStore(), Config{})

	require.NoError(t, c.Start(ctx))
	require.Error(t, c.Start(ctx))
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Start(ctx), ErrClosed)
}

func TestWatcherReprobesUsageAfterWrites(t *testing.T) {
	ctx := context.Background()
	c, s, clock := newTestCache(t, Config{WatchChanges: true})

	fill(ctx, c, clock, 10)
	require.NoError(t, c.Start(ctx))

	s.setRatio(0.96)
	require.NoError(t, s.Store.Set(ctx, map[string][]byte{"otherExtensionKey": []byte(`"x"`)}))

	require.Eventually(t, func() bool {
		return len(c.Keys(ctx)) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJanitorRunsOnSchedule(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t, Config{CleanupSchedule: "@every 1s"})

	fill(ctx, c, clock, 2)
	clock.Advance(DefaultExpiry + time.Minute)
	require.NoError(t, c.Start(ctx))

	require.Eventually(t, func() bool {
		return len(c.Keys(ctx)) == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestParseSchedule(t *testing.T) {
	for _, spec := range []string{"@every 1h", "@hourly", "0 * * * *"} {
		_, err := ParseSchedule(spec)
		assert.NoError(t, err, spec)
	}

	_, err := ParseSchedule("61 * * * *")
	assert.Error(t, err)
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Emergency ")
	require.NoError(t, err)
	require.Equal(t, TierEmergency, tier)

	_, err = ParseTier("nuclear")
	require.Error(t, err)
}
