package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis boots a throwaway Redis and returns a client for it.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis integration test skipped in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("no container runtime: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisFiredKeys(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := NewFiredKeyStore(client, "test:fired", time.Hour, nil)

	escalate := domain.FiredKey{RuleID: "sla-overdue-escalate", EntityID: "d-1", Signature: "9f2c", ActionIndex: 0}
	notify := escalate
	notify.ActionIndex = 1
	other := domain.FiredKey{RuleID: "auto-assign", EntityID: "d-1", Signature: "77aa", ActionIndex: 0}

	t.Run("mark once", func(t *testing.T) {
		first, err := store.MarkFired(ctx, escalate)
		if err != nil || !first {
			t.Fatalf("first mark: %v %v", first, err)
		}
		again, err := store.MarkFired(ctx, escalate)
		if err != nil || again {
			t.Fatalf("second mark: %v %v", again, err)
		}
		fired, err := store.IsFired(ctx, escalate)
		if err != nil || !fired {
			t.Fatalf("is fired: %v %v", fired, err)
		}
		ttl, err := client.PTTL(ctx, store.keyFor(escalate)).Result()
		if err != nil || ttl <= 0 || ttl > time.Hour {
			t.Fatalf("ttl %v %v", ttl, err)
		}
	})

	t.Run("release allows a retry", func(t *testing.T) {
		if err := store.Release(ctx, escalate); err != nil {
			t.Fatal(err)
		}
		if fired, _ := store.IsFired(ctx, escalate); fired {
			t.Fatal("released key still fired")
		}
		members, err := client.SMembers(ctx, store.indexFor(escalate.RuleID, escalate.EntityID)).Result()
		if err != nil || len(members) != 0 {
			t.Fatalf("index after release: %v %v", members, err)
		}
		first, err := store.MarkFired(ctx, escalate)
		if err != nil || !first {
			t.Fatalf("mark after release: %v %v", first, err)
		}
	})

	t.Run("reset clears one rule and entity", func(t *testing.T) {
		for _, k := range []domain.FiredKey{notify, other} {
			if _, err := store.MarkFired(ctx, k); err != nil {
				t.Fatal(err)
			}
		}
		if err := store.Reset(ctx, escalate.RuleID, escalate.EntityID); err != nil {
			t.Fatal(err)
		}
		for _, k := range []domain.FiredKey{escalate, notify} {
			if fired, _ := store.IsFired(ctx, k); fired {
				t.Fatalf("action %d survived reset", k.ActionIndex)
			}
		}
		if fired, _ := store.IsFired(ctx, other); !fired {
			t.Fatal("reset cleared another rule")
		}
		if err := store.Reset(ctx, "never-fired", "d-9"); err != nil {
			t.Fatalf("reset of empty index: %v", err)
		}
	})
}
