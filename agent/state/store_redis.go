package state

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	errx "github.com/tanpawarit/Chative-Commerce-Router/pkg/errx"
)

// RedisStore persists SessionState through a go-redis client.
type RedisStore struct {
	rdb      redis.Cmdable
	settings storeSettings
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb redis.Cmdable, opts ...StoreOption) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	settings := applyOptions(opts)
	if settings.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return &RedisStore{rdb: rdb, settings: settings}, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := keyFor(s.settings.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		log.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}
	return decodeState(raw)
}

func (s *RedisStore) Save(ctx context.Context, st *SessionState) error {
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	key, err := keyFor(s.settings.keyPrefix, st.SessionID)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, payload, s.settings.ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := keyFor(s.settings.keyPrefix, sessionID)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}
