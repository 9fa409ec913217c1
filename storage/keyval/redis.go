// Package keyval implements the presence-signal store contract over a
// key-value backend. The production implementation is Redis; MemStore backs
// tests and local development.
package keyval

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/presence"
)

const (
	keyPrefix = "presence:"

	// signalTTL bounds how long a stray signal can outlive its session if a
	// purge is never reached (eg. process crash between reconcile and purge).
	signalTTL = 12 * time.Hour

	scanCount = 100
)

type RedisStore struct {
	client *redis.Client
}

var _ presence.Store = (*RedisStore)(nil) // interface compliance check

func NewRedisStore(conf *core.Config) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}),
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx).Err(), "pinging redis")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(ctx context.Context, lessonID, deviceID string) error {
	if err := s.client.Set(ctx, signalKey(lessonID, deviceID), "true", signalTTL).Err(); err != nil {
		return errors.Wrap(err, "putting presence signal")
	}
	return nil
}

func (s *RedisStore) ListDevices(ctx context.Context, lessonID string) ([]string, error) {
	keys, err := s.scanLesson(ctx, lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "listing presence signals")
	}

	deviceIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		if deviceID, ok := deviceFromKey(lessonID, key); ok {
			deviceIDs = append(deviceIDs, deviceID)
		}
	}
	return deviceIDs, nil
}

func (s *RedisStore) PurgeLesson(ctx context.Context, lessonID string) error {
	keys, err := s.scanLesson(ctx, lessonID)
	if err != nil {
		return errors.Wrap(err, "purging presence signals")
	}
	if len(keys) == 0 {
		return nil
	}
	if err = s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "purging presence signals")
	}
	return nil
}

func (s *RedisStore) scanLesson(ctx context.Context, lessonID string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := lessonPrefix(lessonID) + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func lessonPrefix(lessonID string) string {
	return keyPrefix + lessonID + ":"
}

func signalKey(lessonID, deviceID string) string {
	return lessonPrefix(lessonID) + deviceID
}

func deviceFromKey(lessonID, key string) (string, bool) {
	deviceID := strings.TrimPrefix(key, lessonPrefix(lessonID))
	if deviceID == key || deviceID == "" {
		return "", false
	}
	return deviceID, true
}
