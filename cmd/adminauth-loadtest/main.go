// Command adminauth-loadtest drives the engine against Redis with concurrent
// login, refresh and authorize traffic and prints latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/blacklist"
	"github.com/MrEthical07/adminauth/password"
	storeredis "github.com/MrEthical07/adminauth/store/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password"

type accountState struct {
	email   string
	mu      sync.Mutex
	refresh string
	access  string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 200, "number of admin accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		logins      = flag.Int("logins", 2000, "operations in the login phase (password hashing dominates)")
		rotate      = flag.Bool("rotate", false, "rotate refresh tokens on every refresh")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "aalt", "redis key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *logins <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, ops, and logins must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := newEngine(client, *prefix, *rotate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range states {
		email := fmt.Sprintf("admin-%d@loadtest.local", i)
		_, err := engine.CreateAccount(ctx, adminauth.NewAccount{
			Name:     fmt.Sprintf("Admin %d", i),
			Email:    email,
			Password: loadPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create account failed: %v\n", err)
			os.Exit(1)
		}
		res, err := engine.Login(ctx, email, loadPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].email = email
		states[i].refresh = res.RefreshToken
		states[i].access = res.AccessToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase("login", *logins, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := engine.Login(ctx, states[r.Intn(len(states))].email, loadPassword)
		return err
	})

	authorizeStats := runPhase("authorize", *ops, *concurrency, 104729, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.Authorize(ctx, token)
		return err
	})

	refreshStats := runPhase("refresh", *ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		// Rotation invalidates the old token, so one refresh per account at a time.
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access = res.AccessToken
		if res.RefreshToken != "" {
			s.refresh = res.RefreshToken
		}
		return nil
	})

	maintenance, err := engine.RunMaintenance(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "maintenance failed: %v\n", err)
	}

	fmt.Println("---- results ----")
	if err := printStats(os.Stdout, loginStats, authorizeStats, refreshStats); err != nil {
		fmt.Fprintf(os.Stderr, "print results: %v\n", err)
	}
	fmt.Printf("maintenance: unlocked=%d purged=%d evicted=%d took=%s\n",
		maintenance.AccountsUnlocked,
		maintenance.TokensPurged,
		maintenance.BlacklistEvicted,
		maintenance.Duration.Round(time.Microsecond),
	)
}

// newEngine uses argon2id at its minimum cost so the login phase measures the
// engine and store rather than the hash.
func newEngine(client redis.UniversalClient, prefix string, rotate bool) (*adminauth.Engine, error) {
	cfg := adminauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("L", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("T", 32))
	cfg.Password.Algorithm = password.AlgorithmArgon2id
	cfg.Password.Argon2 = password.Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	cfg.Lockout.MaxAttempts = 1 << 20
	cfg.Refresh.Rotate = rotate
	cfg.Audit.Enabled = false

	return adminauth.New().
		WithConfig(cfg).
		WithStore(storeredis.NewStore(client, prefix)).
		WithBlacklist(blacklist.NewRedis(client, prefix)).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}
