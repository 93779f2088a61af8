package reporting

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, store Store) (*Service, *Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(store, newTestCalculator(), cache), cache, mr
}

func TestServiceFinancialCaches(t *testing.T) {
	store := financialFixture()
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()
	req := PeriodRequest{Type: PeriodMonthly, Count: 3}

	first, err := svc.Financial(ctx, PropertyScope("prop-1"), req)
	require.NoError(t, err)
	second, err := svc.Financial(ctx, PropertyScope("prop-1"), req)
	require.NoError(t, err)

	assert.Equal(t, 1, store.count("bills"), "second call served from cache")
	require.Len(t, second, 1)
	assert.Equal(t, first[0].TotalRevenue, second[0].TotalRevenue)
	assert.Equal(t, "2024-03", second[0].Period.Label())
	assert.Equal(t, "2024-03-01", second[0].Period.Start.Format(dateLayout))
}

func TestServiceBumpRefreshes(t *testing.T) {
	store := financialFixture()
	svc, cache, _ := newTestService(t, store)
	ctx := context.Background()
	req := PeriodRequest{Type: PeriodMonthly, Count: 3}

	_, err := svc.Financial(ctx, PropertyScope("prop-1"), req)
	require.NoError(t, err)
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ver)

	require.NoError(t, svc.BumpCache(ctx))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)

	_, err = svc.Financial(ctx, PropertyScope("prop-1"), req)
	require.NoError(t, err)
	assert.Equal(t, 2, store.count("bills"))
}

func TestServiceKeysSeparateRequests(t *testing.T) {
	store := financialFixture()
	svc, _, mr := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Financial(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.NoError(t, err)
	_, err = svc.Financial(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 2})
	require.NoError(t, err)
	_, err = svc.Financial(ctx, PropertyScope("prop-2"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, store.count("bills"))

	var reports int
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "reporting:financial:") {
			reports++
			assert.True(t, strings.HasSuffix(key, ":v1"), key)
		}
	}
	assert.Equal(t, 3, reports)
}

func TestServiceZeroFilterSharesKey(t *testing.T) {
	store := financialFixture()
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Financial(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.NoError(t, err)
	_, err = svc.Financial(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3, Filter: &DateFilter{}})
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("bills"))
}

func TestServiceRejectsInvalidRequest(t *testing.T) {
	store := financialFixture()
	svc, _, mr := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Overview(ctx, AllProperties(""), PeriodRequest{Type: PeriodMonthly, Count: 1})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.Trends(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 1, Filter: &DateFilter{Month: 13}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = svc.Occupancy(ctx, Scope{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, mr.Keys())
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	store := financialFixture()
	store.errs["rooms"] = assert.AnError
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Occupancy(ctx, PropertyScope("prop-1"))
	assert.ErrorIs(t, err, ErrDataUnavailable)

	delete(store.errs, "rooms")
	snap, err := svc.Occupancy(ctx, PropertyScope("prop-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalRooms)
	assert.Equal(t, 2, store.count("rooms"))
}

func TestServiceServesWhenRedisFails(t *testing.T) {
	store := financialFixture()
	svc, _, mr := newTestService(t, store)
	mr.SetError("LOADING redis is loading")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.Financial(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 2, store.count("bills"), "nothing cached while redis fails")

	mr.SetError("")
	_, err := svc.Financial(ctx, PropertyScope("prop-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

func TestServiceWithoutCache(t *testing.T) {
	store := overviewFixture()
	svc := NewService(store, newTestCalculator(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ov, err := svc.Overview(ctx, AllProperties("owner-1"), PeriodRequest{Type: PeriodMonthly, Count: 3})
		require.NoError(t, err)
		require.NotNil(t, ov.Financial)
	}
	assert.Equal(t, 2, store.count("bills"))
	assert.NoError(t, svc.BumpCache(ctx))
}

func TestCacheMetrics(t *testing.T) {
	store := financialFixture()
	svc, cache, _ := newTestService(t, store)
	metrics := NewCacheMetrics(prometheus.NewRegistry())
	cache.WithMetrics(metrics)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Occupancy(ctx, PropertyScope("prop-1"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.misses.WithLabelValues("occupancy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.hits.WithLabelValues("occupancy")))
}

func TestListenForInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	listenerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = listenerClient.Close() })
	publisher := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	listener := NewCache(listenerClient, time.Minute)
	require.NoError(t, listener.ListenForInvalidation(ctx, ""))

	require.NoError(t, publisher.Publish(ctx, BumpChannel, "7").Err())
	assert.Eventually(t, func() bool {
		ver, err := mr.Get(cacheVersionKey)
		return err == nil && ver == "7"
	}, time.Second, 10*time.Millisecond)
}

func TestCacheSharedBuildSurvivesCancelledCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	loader := func(ctx context.Context) (any, error) {
		once.Do(func() { close(started) })
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return map[string]int{"rooms": 4}, nil
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		var dest map[string]int
		errA <- cache.FetchJSON(ctxA, "occupancy", "occupancy:shared", &dest, loader)
	}()
	<-started

	type result struct {
		dest map[string]int
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		var dest map[string]int
		err := cache.FetchJSON(context.Background(), "occupancy", "occupancy:shared", &dest, loader)
		resB <- result{dest: dest, err: err}
	}()
	// Give the second caller time to join the in-flight build.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, map[string]int{"rooms": 4}, b.dest)
	assert.True(t, mr.Exists("occupancy:shared"), "detached build still stores its result")
}

func TestCacheAdvanceNeverLowersVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set(cacheVersionKey, "6"))

	ver, err := cache.advance(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 6, ver)
	got, err := mr.Get(cacheVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "6", got)

	ver, err = cache.advance(ctx, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 8, ver)
	got, err = mr.Get(cacheVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "8", got)
}
