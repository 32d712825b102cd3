package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestLock(t *testing.T) (*UserLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	lock := NewUserLock(client, time.Minute, zerolog.Nop())
	lock.retry = 5 * time.Millisecond
	return lock, mr
}

func TestUserLock_SerializesSameUser(t *testing.T) {
	lock, _ := newTestLock(t)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lock.Do(context.Background(), 42, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", maxInside)
	}
}

func TestUserLock_ReleasesAndPropagatesError(t *testing.T) {
	lock, mr := newTestLock(t)
	boom := errors.New("boom")

	err := lock.Do(context.Background(), 1, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if mr.Exists("vpnbot:lock:user:1") {
		t.Error("lock key must be deleted after Do returns")
	}
}

func TestUserLock_ContextCancelledWhileWaiting(t *testing.T) {
	lock, mr := newTestLock(t)
	if err := mr.Set("vpnbot:lock:user:5", "someone-else"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	called := false
	err := lock.Do(ctx, 5, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if called {
		t.Error("fn must not run without the lock")
	}
	if got, _ := mr.Get("vpnbot:lock:user:5"); got != "someone-else" {
		t.Errorf("foreign lock must be untouched, got %q", got)
	}
}

func TestUserLock_DifferentUsersDoNotBlock(t *testing.T) {
	lock, _ := newTestLock(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := lock.Do(ctx, 1, func(ctx context.Context) error {
		return lock.Do(ctx, 2, func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("nested lock for another user failed: %v", err)
	}
}
