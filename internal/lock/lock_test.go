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
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestLocalLocker_Exclusive verifies holders of the same key never overlap.
func TestLocalLocker_Exclusive(t *testing.T) {
	l := NewLocalLocker(5 * time.Second)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "conv-1")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			release()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
	if len(l.held) != 0 {
		t.Errorf("held map not cleaned up: %d entries", len(l.held))
	}
}

func TestLocalLocker_Timeout(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)

	release, err := l.Acquire(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = l.Acquire(context.Background(), "conv-1")
	if !errors.Is(err, ErrNotAcquired) {
		t.Errorf("err = %v, want ErrNotAcquired", err)
	}
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker(time.Minute)

	release, _ := l.Acquire(context.Background(), "conv-1")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Acquire(ctx, "conv-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLocalLocker_IndependentKeysAndDoubleRelease(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)

	releaseA, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	releaseB, err := l.Acquire(context.Background(), "b")
	if err != nil {
		t.Fatalf("Acquire b while a is held: %v", err)
	}
	releaseB()

	releaseA()
	releaseA()

	again, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("re-Acquire a: %v", err)
	}
	again()
}
