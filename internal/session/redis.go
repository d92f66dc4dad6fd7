package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "loja:session:"

// saveScript writes the session only when the stored version still matches
// ARGV[1]. It returns 1 on write and 0 on conflict.
var saveScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local stored = cjson.decode(current)["v"] or 0
	if stored ~= tonumber(ARGV[1]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisStore keeps each session as a JSON value with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	value, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return decode(id, value)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	prev := s.Version
	s.Version++
	data, err := encode(s)
	if err != nil {
		s.Version = prev
		return err
	}
	written, err := saveScript.Run(ctx, r.client, []string{redisKey(s.ID)}, prev, data, r.ttl.Milliseconds()).Int()
	if err != nil {
		s.Version = prev
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	if written == 0 {
		s.Version = prev
		return ErrConflict
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
