package adminauth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/store/memory"
)

const testPassword = "correct-password-123"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testConfig uses argon2id with minimum parameters so tests do not pay for
// bcrypt cost 12.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Password.Algorithm = password.AlgorithmArgon2id
	cfg.Password.Argon2 = password.Argon2Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Audit.Enabled = false
	return cfg
}

type testEngine struct {
	*Engine
	store account.Store
	clock *testClock
}

func newTestEngine(t testing.TB, cfg Config) *testEngine {
	t.Helper()
	return newTestEngineWithStore(t, cfg, memory.New())
}

func newTestEngineWithStore(t testing.TB, cfg Config, store account.Store) *testEngine {
	t.Helper()
	clock := newTestClock()
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return &testEngine{Engine: engine, store: store, clock: clock}
}

func (te *testEngine) createAdmin(t testing.TB, email string) *account.Public {
	t.Helper()
	pub, err := te.CreateAccount(context.Background(), NewAccount{
		Name:     "Alice",
		Email:    email,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return pub
}

func (te *testEngine) stored(t testing.TB, id string) *account.Account {
	t.Helper()
	a, err := te.store.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	return a
}
