package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedis(client, ttl, nil)
	l.minBackoff = time.Millisecond
	l.maxBackoff = 5 * time.Millisecond
	return l, mr
}

// exercise runs n goroutines that each hold the lock while bumping a shared
// counter, and fails if two ever hold it together.
func exercise(t *testing.T, l Locker, key string, n int) {
	t.Helper()
	var inside, maxInside, done int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			cur := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if cur <= m || atomic.CompareAndSwapInt32(&maxInside, m, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			atomic.AddInt32(&done, 1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, int32(n), done)
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	exercise(t, l, ProjectKey("p1"), 10)
	assert.Empty(t, l.slots)
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	other, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	other()
}

func TestLocal_AcquireHonoursContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Empty(t, l.slots)
}

func TestRedis_MutualExclusion(t *testing.T) {
	l, _ := newRedisLocker(t, time.Minute)
	exercise(t, l, ProjectKey("p1"), 6)
}

func TestRedis_ReleaseKeepsForeignLease(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	key := ProjectKey("p2")

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(key))

	// Lease expired and another instance took over.
	require.NoError(t, mr.Set(key, "someone-else"))
	release()

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_AcquireHonoursContext(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	key := ProjectKey("p3")
	require.NoError(t, mr.Set(key, "held"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := l.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedis_LeaseRenewedWhileHeld(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	l.renewEvery = 5 * time.Millisecond
	key := ProjectKey("p4")

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)

	// Ten times the TTL passes while the holder keeps the lock.
	for i := 0; i < 20; i++ {
		time.Sleep(25 * time.Millisecond)
		mr.FastForward(30 * time.Second)
	}
	require.True(t, mr.Exists(key), "lease expired while held")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.False(t, mr.Exists(key))

	next, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	next()
}

func TestRedis_RenewalStopsOnLostLease(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	l.renewEvery = 5 * time.Millisecond
	key := ProjectKey("p5")

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)

	require.NoError(t, mr.Set(key, "someone-else"))
	mr.SetTTL(key, time.Second)
	time.Sleep(30 * time.Millisecond)

	// The foreign lease keeps its own TTL.
	assert.Equal(t, time.Second, mr.TTL(key))
	release()
	assert.True(t, mr.Exists(key))
}
