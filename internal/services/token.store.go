package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/studyon/course-market/pkg/redis"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

const refreshTokenKeyPrefix = "refresh:"

// RedisTokenStore keeps refresh tokens in redis with a TTL, so expiry is
// enforced by the store itself and rotation is a delete plus a set.
type RedisTokenStore struct {
	adapter redis.RedisAdapter
}

func NewRedisTokenStore(adapter redis.RedisAdapter) *RedisTokenStore {
	return &RedisTokenStore{
		adapter: adapter,
	}
}

func (s *RedisTokenStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return s.adapter.Set(refreshTokenKeyPrefix+token, []byte(strconv.FormatInt(userID, 10)), ttl)
}

func (s *RedisTokenStore) Get(ctx context.Context, token string) (int64, error) {
	raw, err := s.adapter.Get(refreshTokenKeyPrefix + token)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, ErrRefreshTokenNotFound
		}
		return 0, err
	}

	userID, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, ErrRefreshTokenNotFound
	}
	return userID, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, token string) error {
	return s.adapter.Del(refreshTokenKeyPrefix + token)
}
