package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"legalcheck-backend/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SessionLocker serializes turns of the same session. Turns of different
// sessions never wait on each other.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID uuid.UUID) (unlock func(), err error)
}

// LocalSessionLocker is an in-process SessionLocker.
type LocalSessionLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalSessionLocker creates an empty locker.
func NewLocalSessionLocker() *LocalSessionLocker {
	return &LocalSessionLocker{locks: map[uuid.UUID]*sessionLock{}}
}

// Lock blocks until the session is free or ctx is done.
func (l *LocalSessionLocker) Lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, sl)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			l.release(sessionID, sl)
		})
	}, nil
}

func (l *LocalSessionLocker) release(sessionID uuid.UUID, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// held returns the number of sessions with waiters or holders.
func (l *LocalSessionLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// unlockScript deletes the key only while it still holds our token.
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's expiry only while it still holds our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisSessionLocker serializes sessions across server instances. The lock
// expires after ttl if its holder dies and is renewed every ttl/3 while held.
type RedisSessionLocker struct {
	rdb   goredis.UniversalClient
	ttl   time.Duration
	retry time.Duration
	log   *logger.Logger
}

// NewRedisSessionLocker creates a locker on rdb.
func NewRedisSessionLocker(rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisSessionLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisSessionLocker{rdb: rdb, ttl: ttl, retry: 50 * time.Millisecond, log: log}
}

func sessionLockKey(id uuid.UUID) string {
	return "legalcheck:session-lock:" + id.String()
}

// Lock polls until the session key is acquired or ctx is done.
func (r *RedisSessionLocker) Lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	key := sessionLockKey(sessionID)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil {
				r.log.Warn("redis unlock failed", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive renews the lock until stop is closed or the token is lost.
func (r *RedisSessionLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		n, err := renewScript.Run(ctx, r.rdb, []string{key}, token, r.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			r.log.Warn("redis lock renewal failed", "key", key, "error", err)
			continue
		}
		if n == 0 {
			r.log.Warn("redis lock lost before release", "key", key)
			return
		}
	}
}

// NewRedisClient connects to addr and verifies it with PING.
func NewRedisClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
