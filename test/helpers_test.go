//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/blacklist"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/store/memory"
	storemongo "github.com/MrEthical07/adminauth/store/mongo"
	storeredis "github.com/MrEthical07/adminauth/store/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const adminPassword = "integration-password-1"

// backend describes one storage combination the suite runs against.
type backend struct {
	name  string
	setup func(t *testing.T) (account.Store, adminauth.Blacklist)
}

// backends returns the storage combinations to test. memory and miniredis
// are always available. A real Redis is added when REDIS_ADDR is set and
// MongoDB when MONGO_URI is set.
func backends(t *testing.T) []backend {
	t.Helper()
	modes := []backend{
		{
			name: "memory",
			setup: func(t *testing.T) (account.Store, adminauth.Blacklist) {
				return memory.New(), blacklist.NewMemory()
			},
		},
		{
			name: "miniredis",
			setup: func(t *testing.T) (account.Store, adminauth.Blacklist) {
				t.Helper()
				rdb := newMiniredis(t)
				return storeredis.NewStore(rdb, "it"), blacklist.NewRedis(rdb, "it")
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, backend{
			name: "redis:" + addr,
			setup: func(t *testing.T) (account.Store, adminauth.Blacklist) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				// Unique prefix per test so runs do not collide.
				prefix := "it-" + uuid.NewString()[:8]
				t.Cleanup(func() { _ = rdb.Close() })
				return storeredis.NewStore(rdb, prefix), blacklist.NewRedis(rdb, prefix)
			},
		})
	}

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		modes = append(modes, backend{
			name: "mongo",
			setup: func(t *testing.T) (account.Store, adminauth.Blacklist) {
				t.Helper()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				client, err := mongo.Connect(options.Client().ApplyURI(uri))
				if err != nil {
					t.Skipf("cannot connect to MongoDB: %v", err)
				}
				if err := client.Ping(ctx, nil); err != nil {
					t.Skipf("cannot reach MongoDB: %v", err)
				}
				db := "adminauth_it_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
				t.Cleanup(func() {
					_ = client.Database(db).Drop(context.Background())
					_ = client.Disconnect(context.Background())
				})

				store := storemongo.NewStore(client, storemongo.Options{Database: db})
				if err := store.EnsureIndexes(ctx); err != nil {
					t.Fatalf("ensure indexes: %v", err)
				}
				return store, blacklist.NewMemory()
			},
		})
	}
	return modes
}

func newMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

// clock is a settable time source starting at the real current time, so
// Redis key TTLs computed from it stay positive.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Now()} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func integrationConfig() adminauth.Config {
	cfg := adminauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("i", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("j", 32))
	cfg.Password.Algorithm = password.AlgorithmArgon2id
	cfg.Password.Argon2 = password.Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	cfg.Audit.Enabled = false
	return cfg
}

func newEngine(t *testing.T, store account.Store, bl adminauth.Blacklist, c *clock, mutate func(*adminauth.Config)) *adminauth.Engine {
	t.Helper()
	cfg := integrationConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := adminauth.New().WithConfig(cfg).WithStore(store).WithBlacklist(bl)
	if c != nil {
		b = b.WithClock(c.Now)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func createAdmin(t *testing.T, engine *adminauth.Engine, email string) *account.Public {
	t.Helper()
	pub, err := engine.CreateAccount(context.Background(), adminauth.NewAccount{
		Name:     "Integration Admin",
		Email:    email,
		Password: adminPassword,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return pub
}
