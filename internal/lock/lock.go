// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lock serialises webhook deliveries that touch the same
// conversation so concurrent deliveries cannot race on channel creation.
// The Redis lock works across replicas; the local lock covers a single
// process when no Redis is configured.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces lock keys in Redis.
	keyPrefix = "layersync:lock:conversation:"

	defaultPoll = 50 * time.Millisecond
)

// ErrNotAcquired means the lock stayed held for the whole wait window.
var ErrNotAcquired = errors.New("conversation lock not acquired")

// releaseScript deletes the key only if it still holds our token, so an
// expired lease never releases somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease-based lock on a Redis key (SET NX PX).
type RedisLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
	poll time.Duration
}

// NewRedisLocker creates a Redis-backed locker. ttl bounds how long a
// crashed holder can block others; wait bounds how long Acquire polls.
func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:  rdb,
		ttl:  ttl,
		wait: wait,
		poll: defaultPoll,
	}
}

// Acquire blocks until the lock for key is held, the wait window passes,
// or ctx is done. The returned func releases the lock.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		set, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock SETNX: %w", err)
		}
		if set {
			return func() { l.release(redisKey, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Err(); err != nil {
		// The lease still expires on its own.
		slog.Warn("failed to release conversation lock",
			"key", redisKey,
			"error", err,
		)
	}
}

// LocalLocker is an in-process keyed lock.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		held: make(map[string]chan struct{}),
		wait: wait,
	}
}

// Acquire blocks until the lock for key is held, the wait window passes,
// or ctx is done. The returned func releases the lock and is safe to call
// more than once.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			released = make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-timer.C:
			return nil, ErrNotAcquired
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
