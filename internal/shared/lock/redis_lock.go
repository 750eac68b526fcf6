// Package lock provides a cross-process mutual exclusion on top of Redis.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var (
	// releaseScript deletes the key only while it still carries the caller's token.
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	// renewScript pushes the expiry out only while the caller still owns the key.
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLock is a single named lock. Each holder writes its own token so a
// holder whose TTL ran out can never release a lock taken by someone else.
// The lease is renewed every TTL/3 while it is held.
type RedisLock struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{Client: client, Key: key, TTL: ttl}
}

// TryLock takes the lock without waiting. ok is false when someone else holds
// it. The returned release stops the renewal and frees the key.
func (l *RedisLock) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", l.Key, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.keepAlive(token, stop)
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			l.unlock(token)
		})
	}
	return release, true, nil
}

func (l *RedisLock) keepAlive(token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.TTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			renewed, err := renewScript.Run(context.Background(), l.Client, []string{l.Key}, token, l.TTL.Milliseconds()).Int()
			if err != nil {
				log.Warn("Redis lock renewal failed", zap.String("key", l.Key), zap.Error(err))
				continue
			}
			if renewed == 0 {
				log.Warn("Redis lock lease lost", zap.String("key", l.Key))
				return
			}
		}
	}
}

func (l *RedisLock) unlock(token string) {
	if err := releaseScript.Run(context.Background(), l.Client, []string{l.Key}, token).Err(); err != nil {
		log.Warn("Redis lock release failed", zap.String("key", l.Key), zap.Error(err))
	}
}
