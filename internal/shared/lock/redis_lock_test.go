package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory redis and a client bound to it
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	first := NewRedisLock(client, "atlas:lifecycle", time.Minute)
	second := NewRedisLock(client, "atlas:lifecycle", time.Minute)

	release, ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()

	release2, ok, err := second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisLock_ExpiredHolderCannotReleaseNewOwner(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	l := NewRedisLock(client, "atlas:lifecycle", time.Second)

	staleRelease, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	release, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	staleRelease()
	assert.True(t, mr.Exists("atlas:lifecycle"), "stale holder must not delete the new owner's key")
}

func TestRedisLock_RenewsLeaseWhileHeld(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	ttl := 300 * time.Millisecond
	holder := NewRedisLock(client, "atlas:lifecycle", ttl)
	other := NewRedisLock(client, "atlas:lifecycle", ttl)

	release, ok, err := holder.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// without renewal the key would be gone after the second step
	for i := 0; i < 3; i++ {
		time.Sleep(ttl / 2)
		mr.FastForward(2 * ttl / 3)
		require.True(t, mr.Exists("atlas:lifecycle"), "lease expired while held, step %d", i)
	}

	_, ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("atlas:lifecycle"))
	release()
}

func TestRedisLock_RenewalStopsAfterLeaseLost(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	ttl := 300 * time.Millisecond
	l := NewRedisLock(client, "atlas:lifecycle", ttl)

	staleRelease, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	defer staleRelease()

	mr.FastForward(2 * ttl)
	require.NoError(t, mr.Set("atlas:lifecycle", "someone-else"))
	time.Sleep(ttl / 2)

	got, err := mr.Get("atlas:lifecycle")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
	assert.Zero(t, mr.TTL("atlas:lifecycle"), "a stale holder must not extend another owner's key")
}

func TestRedisLock_OnlyOneConcurrentWinner(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		releases []func()
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, ok, err := NewRedisLock(client, "atlas:lifecycle", time.Minute).TryLock(ctx)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				releases = append(releases, release)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	for _, release := range releases {
		release()
	}
}

func TestRedisLock_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	_, ok, err := NewRedisLock(client, "atlas:lifecycle", time.Minute).TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
