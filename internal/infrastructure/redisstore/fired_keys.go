// Package redisstore keeps workflow fired keys in Redis so several engine replicas share
// one dedupe record.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "escrow:fired"

// markScript sets the key only if absent and indexes it under its rule and entity so Reset
// can find it.
var markScript = redis.NewScript(`
local ok = redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2])
if ok then
  redis.call("SADD", KEYS[2], KEYS[1])
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
  return 1
end
return 0
`)

var resetScript = redis.NewScript(`
local members = redis.call("SMEMBERS", KEYS[1])
for _, k in ipairs(members) do
  redis.call("DEL", k)
end
redis.call("DEL", KEYS[1])
return #members
`)

type FiredKeyStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	clock  domain.Clock
}

func NewFiredKeyStore(client redis.UniversalClient, prefix string, ttl time.Duration, clock domain.Clock) *FiredKeyStore {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &FiredKeyStore{client: client, prefix: trimmed, ttl: ttl, clock: clock}
}

func (s *FiredKeyStore) keyFor(key domain.FiredKey) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", s.prefix, key.RuleID, key.EntityID, key.Signature, key.ActionIndex)
}

func (s *FiredKeyStore) indexFor(ruleID, entityID string) string {
	return fmt.Sprintf("%s:idx:%s:%s", s.prefix, ruleID, entityID)
}

func (s *FiredKeyStore) MarkFired(ctx context.Context, key domain.FiredKey) (bool, error) {
	res, err := markScript.Run(ctx, s.client,
		[]string{s.keyFor(key), s.indexFor(key.RuleID, key.EntityID)},
		strconv.FormatInt(s.clock.Now().Unix(), 10),
		s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	return res == 1, nil
}

func (s *FiredKeyStore) IsFired(ctx context.Context, key domain.FiredKey) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyFor(key)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (s *FiredKeyStore) Release(ctx context.Context, key domain.FiredKey) error {
	k := s.keyFor(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.SRem(ctx, s.indexFor(key.RuleID, key.EntityID), k)
		return nil
	})
	return unavailable(err)
}

func (s *FiredKeyStore) Reset(ctx context.Context, ruleID, entityID string) error {
	err := resetScript.Run(ctx, s.client, []string{s.indexFor(ruleID, entityID)}).Err()
	return unavailable(err)
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: redis: %v", domain.ErrRepositoryUnavailable, err)
}

// NewClient parses a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
