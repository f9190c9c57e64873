package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copcca/entitlement-service/internal/entitlementapi"
)

// fakeFetcher считает сетевые вызовы и отдаёт заранее заданный результат.
type fakeFetcher struct {
	status *entitlementapi.StatusPayload
	err    error
	delay  time.Duration

	statusCalls int32
	initCalls   int32
	teamSize    int
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, _ string) (*entitlementapi.StatusPayload, error) {
	atomic.AddInt32(&f.statusCalls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, entitlementapi.ErrBackend
		}
	}
	return f.status, f.err
}

func (f *fakeFetcher) FetchTeamSize(_ context.Context, _ string) int {
	if f.teamSize == 0 {
		return 1
	}
	return f.teamSize
}

func (f *fakeFetcher) Initialize(_ context.Context, _ entitlementapi.InitializeRequest) error {
	atomic.AddInt32(&f.initCalls, 1)
	return nil
}

// memCache — кэш в памяти, повторяющий контракт OutcomeCache.
type memCache struct {
	mu     sync.Mutex
	values map[string]cachedOutcome
}

func newMemCache() *memCache {
	return &memCache{values: map[string]cachedOutcome{}}
}

func (c *memCache) Get(key string, result any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*result.(*cachedOutcome) = v
	return true, nil
}

func (c *memCache) Set(key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value.(cachedOutcome)
	return nil
}

func (c *memCache) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func adminSession() Session {
	return Session{
		TenantID:   "tenant-1",
		AdminEmail: "admin@example.com",
		AdminName:  "Admin",
		TeamID:     "team-1",
		IsAdmin:    true,
	}
}

func TestEvaluator_DisabledSkipsNetwork(t *testing.T) {
	fetcher := &fakeFetcher{}
	e := NewEvaluator(fetcher, newMemCache(), newNoopLogger(), false, time.Second, time.Minute)

	d := e.Evaluate(context.Background(), adminSession())

	assert.Equal(t, ModeAllow, d.Mode)
	assert.False(t, d.Degraded)
	assert.Zero(t, atomic.LoadInt32(&fetcher.statusCalls), "disabled gate must not call the backend")
}

func TestEvaluator_AdminUnpaidBlocked(t *testing.T) {
	fetcher := &fakeFetcher{
		status:   &entitlementapi.StatusPayload{HasSubscription: true, PaymentStatus: "unpaid", SubscriptionStatus: "active"},
		teamSize: 5,
	}
	cache := newMemCache()
	e := NewEvaluator(fetcher, cache, newNoopLogger(), true, time.Second, time.Minute)

	d := e.Evaluate(context.Background(), adminSession())

	assert.Equal(t, ModeBlocked, d.Mode)
	assert.Equal(t, 5, d.TeamSize)

	// исход запомнен для сессий участников
	var cached cachedOutcome
	found, err := cache.Get(outcomeCacheKey("tenant-1"), &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.RequiresPayment)
}

func TestEvaluator_NoSubscriptionTriggersInitialize(t *testing.T) {
	fetcher := &fakeFetcher{
		status:   &entitlementapi.StatusPayload{HasSubscription: false},
		teamSize: 3,
	}
	e := NewEvaluator(fetcher, newMemCache(), newNoopLogger(), true, time.Second, time.Minute)

	d := e.Evaluate(context.Background(), adminSession())
	assert.Equal(t, ModeBlocked, d.Mode)

	// регистрация выполняется fire-and-forget, даём горутине завершиться
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fetcher.initCalls) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEvaluator_MemberUsesCachedOutcome(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := newMemCache()
	e := NewEvaluator(fetcher, cache, newNoopLogger(), true, time.Second, time.Minute)

	member := adminSession()
	member.IsAdmin = false

	// без записи в кэше участник проходит свободно
	d := e.Evaluate(context.Background(), member)
	assert.Equal(t, ModeAllow, d.Mode)

	// после админской проверки с требуемой оплатой участник видит предупреждение
	require.NoError(t, cache.Set(outcomeCacheKey("tenant-1"), cachedOutcome{RequiresPayment: true}, time.Minute))
	d = e.Evaluate(context.Background(), member)
	assert.Equal(t, ModeBanner, d.Mode)

	assert.Zero(t, atomic.LoadInt32(&fetcher.statusCalls), "member sessions must not call the backend")
}

func TestEvaluator_FailOpenOnError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	e := NewEvaluator(fetcher, newMemCache(), newNoopLogger(), true, time.Second, time.Minute)

	d := e.Evaluate(context.Background(), adminSession())

	assert.Equal(t, ModeAllow, d.Mode)
	assert.True(t, d.Degraded)
}

func TestEvaluator_FailOpenOnTimeout(t *testing.T) {
	fetcher := &fakeFetcher{
		status: &entitlementapi.StatusPayload{HasSubscription: false},
		delay:  200 * time.Millisecond,
	}
	e := NewEvaluator(fetcher, newMemCache(), newNoopLogger(), true, 20*time.Millisecond, time.Minute)

	start := time.Now()
	d := e.Evaluate(context.Background(), adminSession())

	assert.Equal(t, ModeAllow, d.Mode)
	assert.True(t, d.Degraded)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "evaluation must return when the budget expires")
}

func TestEvaluator_StaleEvaluationDiscarded(t *testing.T) {
	e := NewEvaluator(&fakeFetcher{}, newMemCache(), newNoopLogger(), true, time.Second, time.Minute)

	genOld := e.begin("tenant-1")
	genNew := e.begin("tenant-1")

	fresh := Decision{Mode: ModeBlocked, Reason: "payment required"}
	got := e.publish(newNoopLogger(), "tenant-1", genNew, fresh)
	assert.Equal(t, fresh, got)

	// запоздавшая проверка не затирает более свежее решение
	stale := Decision{Mode: ModeAllow, Reason: "subscription in good standing"}
	got = e.publish(newNoopLogger(), "tenant-1", genOld, stale)
	assert.Equal(t, fresh, got)
}

func TestEvaluator_RefreshInvalidatesOutcome(t *testing.T) {
	cache := newMemCache()
	e := NewEvaluator(&fakeFetcher{}, cache, newNoopLogger(), true, time.Second, time.Minute)

	require.NoError(t, cache.Set(outcomeCacheKey("tenant-1"), cachedOutcome{RequiresPayment: true}, time.Minute))
	e.Refresh("tenant-1")

	var cached cachedOutcome
	found, err := cache.Get(outcomeCacheKey("tenant-1"), &cached)
	require.NoError(t, err)
	assert.False(t, found)
}
