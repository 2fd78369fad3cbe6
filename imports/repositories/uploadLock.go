package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medequip-backend/config"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// UploadLock serializes uploads of one entity type across processes.
type UploadLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// UploadLocker hands out per-entity upload locks.
type UploadLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUploadLocker(client *redis.Client, ttl time.Duration) *UploadLocker {
	return &UploadLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for entity. It returns (nil, nil) when another
// upload already holds it.
func (l *UploadLocker) Acquire(ctx context.Context, entity string) (*UploadLock, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	lock := &UploadLock{
		client: l.client,
		key:    fmt.Sprintf("lock:import:%s", entity),
		token:  hex.EncodeToString(b),
		ttl:    l.ttl,
	}
	ok, err := l.client.SetNX(ctx, lock.key, lock.token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire upload lock %s: %w", lock.key, err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

// Token identifies the holder; background workers use it to release a lock
// taken by the request that enqueued them.
func (l *UploadLock) Token() string {
	return l.token
}

// Release frees the lock only if this holder still owns it.
func (l *UploadLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// Extend resets the lock's TTL. It reports false when the lock is no longer
// held under this token.
func (l *UploadLock) Extend(ctx context.Context) (bool, error) {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// KeepAlive extends the lock every third of its TTL until ctx ends or the
// returned stop func is called. Uploads that run longer than the TTL keep
// the entity locked.
func (l *UploadLock) KeepAlive(ctx context.Context) (stop func()) {
	interval := l.ttl / 3
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := l.Extend(ctx)
				if err != nil {
					if ctx.Err() == nil {
						config.Logger.Warn("Failed to extend upload lock", zap.String("key", l.key), zap.Error(err))
					}
					continue
				}
				if !held {
					config.Logger.Warn("Upload lock lost while import was running", zap.String("key", l.key))
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Resume rebuilds a held lock from its token.
func (l *UploadLocker) Resume(entity, token string) *UploadLock {
	return &UploadLock{
		client: l.client,
		key:    fmt.Sprintf("lock:import:%s", entity),
		token:  token,
		ttl:    l.ttl,
	}
}

// KeepAlive extends a lock held under token while a background job runs.
func (l *UploadLocker) KeepAlive(ctx context.Context, entity, token string) (stop func()) {
	return l.Resume(entity, token).KeepAlive(ctx)
}

// Release frees a lock held under token, typically by a finished background job.
func (l *UploadLocker) Release(ctx context.Context, entity, token string) error {
	return l.Resume(entity, token).Release(ctx)
}
