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

package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func integrationRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("LAYERSYNC_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LAYERSYNC_TEST_REDIS_URL not set")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	rdb := integrationRedis(t)
	l := NewRedisLocker(rdb, 5*time.Second, 100*time.Millisecond)
	ctx := context.Background()
	key := uuid.NewString()

	release, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := l.Acquire(ctx, key); !errors.Is(err, ErrNotAcquired) {
		t.Errorf("second Acquire err = %v, want ErrNotAcquired", err)
	}

	release()

	again, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()

	if n, _ := rdb.Exists(ctx, keyPrefix+key).Result(); n != 0 {
		t.Errorf("lock key still present after release")
	}
}

// TestRedisLocker_ReleaseKeepsForeignLease verifies an expired holder does
// not delete a lease that somebody else acquired since.
func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	rdb := integrationRedis(t)
	ctx := context.Background()
	key := uuid.NewString()

	short := NewRedisLocker(rdb, 50*time.Millisecond, 0)
	release, err := short.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	long := NewRedisLocker(rdb, 5*time.Second, 0)
	releaseLong, err := long.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	defer releaseLong()

	release()

	if n, _ := rdb.Exists(ctx, keyPrefix+key).Result(); n != 1 {
		t.Errorf("stale release removed the current holder's lease")
	}
}
