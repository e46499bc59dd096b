package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

func TestKeyLayout(t *testing.T) {
	store := NewFiredKeyStore(nil, "escrow:fired:", time.Hour, nil)
	key := domain.FiredKey{RuleID: "sla-overdue-escalate", EntityID: "d-1", Signature: "9f2c", ActionIndex: 2}

	if got := store.keyFor(key); got != "escrow:fired:sla-overdue-escalate:d-1:9f2c:2" {
		t.Fatalf("key %q", got)
	}
	if got := store.indexFor(key.RuleID, key.EntityID); got != "escrow:fired:idx:sla-overdue-escalate:d-1" {
		t.Fatalf("index %q", got)
	}
}

func TestDefaults(t *testing.T) {
	store := NewFiredKeyStore(nil, "  ", 0, nil)
	if store.prefix != defaultPrefix || store.ttl != 30*24*time.Hour {
		t.Fatalf("prefix %q ttl %v", store.prefix, store.ttl)
	}
}

func TestUnreachableRedisIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewFiredKeyStore(client, "", time.Hour, nil)

	_, err := store.MarkFired(context.Background(), domain.FiredKey{RuleID: "r", EntityID: "e"})
	if !errors.Is(err, domain.ErrRepositoryUnavailable) {
		t.Fatalf("got %v, want ErrRepositoryUnavailable", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("http://localhost:6379"); err == nil {
		t.Fatal("accepted a non-redis url")
	}
}
