package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

const (
	lockTTL       = 5 * time.Second
	lockRetryWait = 25 * time.Millisecond
	lockDeadline  = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock takes a short-lived advisory lock keyed by user id. The returned
// release func deletes the key only if this caller still holds it.
func (s *Store) Lock(ctx context.Context, userID uint64) (func(), error) {
	key := fmt.Sprintf("chat:lock:user:%d", userID)
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	deadline := time.Now().Add(lockDeadline)
	for {
		ok, err := s.rdb.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, errors.New("redisstore: user lock timeout")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, s.rdb, []string{key}, token).Err()
	}
	return release, nil
}
