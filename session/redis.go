package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session under two namespaced Redis keys. Both keys
// carry the prefix as a hash tag ({prefix}:token, {prefix}:user) so they land
// in one cluster slot.
//
//	Performance: Save and Clear are one MULTI/EXEC round-trip, Load is one MGET.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the keys so several
// clients can share one Redis; a prefix already wrapped in braces is used as
// is. ttl, when positive, expires token and user together.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if strings.HasPrefix(prefix, "{") && strings.HasSuffix(prefix, "}") {
		prefix = prefix[1 : len(prefix)-1]
	}
	if prefix == "" {
		prefix = "authclient"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key returns the Redis key holding name (KeyToken or KeyUser).
func (s *RedisStore) Key(name string) string {
	return "{" + s.prefix + "}:" + name
}

// Save implements [Store].
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	userRaw, err := validateForSave(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.Key(KeyToken), sess.Token, s.ttl)
		pipe.Set(ctx, s.Key(KeyUser), userRaw, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load implements [Store].
func (s *RedisStore) Load(ctx context.Context) (*Session, error) {
	values, err := s.redis.MGet(ctx, s.Key(KeyToken), s.Key(KeyUser)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(values) != 2 {
		return nil, ErrNoSession
	}

	token, hasToken := values[0].(string)
	userRaw, hasUser := values[1].(string)

	sess, ok := assemble(token, hasToken, []byte(userRaw), hasUser)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Clear implements [Store].
func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.Key(KeyToken), s.Key(KeyUser))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// HasToken implements [Store].
func (s *RedisStore) HasToken(ctx context.Context) (bool, error) {
	token, err := s.Token(ctx)
	return token != "", err
}

// Token implements [Store].
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.redis.Get(ctx, s.Key(KeyToken)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return token, nil
}
