package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/blacklist"
	"github.com/MrEthical07/adminauth/internal/logger"
	"github.com/MrEthical07/adminauth/internal/server"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/store/memory"
	mongostore "github.com/MrEthical07/adminauth/store/mongo"
	redisstore "github.com/MrEthical07/adminauth/store/redis"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// setDefaults seeds viper with the selected preset. It runs after the
// config file is read so the file can choose the preset.
func setDefaults() {
	def, ok := adminauth.Preset(viper.GetString("preset"))
	if !ok {
		def = adminauth.DefaultConfig()
	}

	viper.SetDefault("store.driver", "memory")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "adminauth")
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "adminauth")
	viper.SetDefault("mongo.collection", mongostore.DefaultCollection)

	viper.SetDefault("jwt.access_ttl", def.JWT.AccessTTL)
	viper.SetDefault("jwt.refresh_ttl", def.JWT.RefreshTTL)
	viper.SetDefault("jwt.issuer", def.JWT.Issuer)
	viper.SetDefault("jwt.max_clock_skew", def.JWT.MaxClockSkew)
	viper.SetDefault("lockout.max_attempts", def.Lockout.MaxAttempts)
	viper.SetDefault("lockout.duration", def.Lockout.LockDuration)
	viper.SetDefault("password.algorithm", string(def.Password.Algorithm))
	viper.SetDefault("password.bcrypt_cost", def.Password.BcryptCost)
	viper.SetDefault("password.min_length", def.Password.MinLength)
	viper.SetDefault("password.max_bytes", def.Password.MaxBytes)
	viper.SetDefault("password.upgrade_on_login", def.Password.UpgradeOnLogin)
	viper.SetDefault("password.argon2.memory_kib", def.Password.Argon2.Memory)
	viper.SetDefault("password.argon2.time", def.Password.Argon2.Time)
	viper.SetDefault("password.argon2.parallelism", def.Password.Argon2.Parallelism)
	viper.SetDefault("refresh.rotate", def.Refresh.Rotate)
	viper.SetDefault("blacklist.driver", "memory")
	viper.SetDefault("blacklist.cleanup_interval", def.Blacklist.CleanupInterval)
	viper.SetDefault("maintenance.interval", def.Maintenance.Interval)
	viper.SetDefault("maintenance.timeout", def.Maintenance.Timeout)
	viper.SetDefault("audit.enabled", def.Audit.Enabled)
	viper.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)
	viper.SetDefault("log.level", "info")

	srv := server.DefaultConfig()
	viper.SetDefault("server.addr", srv.Addr)
	viper.SetDefault("server.shutdown_timeout", srv.ShutdownTimeout)
	viper.SetDefault("server.cors_origins", srv.CORSOrigins)
	viper.SetDefault("server.max_body_bytes", srv.MaxBodyBytes)
	viper.SetDefault("server.login_per_minute", srv.LoginPerMinute)
	viper.SetDefault("server.refresh_per_minute", srv.RefreshPerMinute)
	viper.SetDefault("server.trust_proxy", srv.TrustProxy)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.runtime", true)
}

// engineConfig maps viper settings onto the selected preset.
func engineConfig() (adminauth.Config, error) {
	preset := viper.GetString("preset")
	cfg, ok := adminauth.Preset(preset)
	if !ok {
		return adminauth.Config{}, fmt.Errorf("unknown config preset %q", preset)
	}

	cfg.JWT.AccessSecret = []byte(viper.GetString("jwt.access_secret"))
	cfg.JWT.RefreshSecret = []byte(viper.GetString("jwt.refresh_secret"))
	cfg.JWT.AccessTTL = viper.GetDuration("jwt.access_ttl")
	cfg.JWT.RefreshTTL = viper.GetDuration("jwt.refresh_ttl")
	cfg.JWT.Issuer = viper.GetString("jwt.issuer")
	cfg.JWT.Audience = viper.GetString("jwt.audience")
	cfg.JWT.Leeway = viper.GetDuration("jwt.leeway")
	cfg.JWT.MaxClockSkew = viper.GetDuration("jwt.max_clock_skew")

	cfg.Lockout.MaxAttempts = viper.GetInt("lockout.max_attempts")
	cfg.Lockout.LockDuration = viper.GetDuration("lockout.duration")

	cfg.Password.Algorithm = password.Algorithm(viper.GetString("password.algorithm"))
	cfg.Password.BcryptCost = viper.GetInt("password.bcrypt_cost")
	cfg.Password.MinLength = viper.GetInt("password.min_length")
	cfg.Password.MaxBytes = viper.GetInt("password.max_bytes")
	cfg.Password.UpgradeOnLogin = viper.GetBool("password.upgrade_on_login")
	cfg.Password.Argon2.Memory = viper.GetUint32("password.argon2.memory_kib")
	cfg.Password.Argon2.Time = viper.GetUint32("password.argon2.time")
	cfg.Password.Argon2.Parallelism = uint8(viper.GetUint("password.argon2.parallelism"))

	cfg.Refresh.Rotate = viper.GetBool("refresh.rotate")
	cfg.Blacklist.CleanupInterval = viper.GetDuration("blacklist.cleanup_interval")
	cfg.Maintenance.Interval = viper.GetDuration("maintenance.interval")
	cfg.Maintenance.Timeout = viper.GetDuration("maintenance.timeout")
	cfg.Audit.Enabled = viper.GetBool("audit.enabled")
	cfg.Audit.DropIfFull = viper.GetBool("audit.drop_if_full")
	cfg.Metrics.Enabled = viper.GetBool("metrics.enabled")
	return cfg, nil
}

func newLogger() *slog.Logger {
	return logger.SetupDefault(os.Stderr, logger.ParseLevel(viper.GetString("log.level")))
}

// backend is the storage the engine runs on. close releases connections.
type backend struct {
	store     account.Store
	blacklist adminauth.Blacklist
	close     func(context.Context) error
}

func openBackend(ctx context.Context) (*backend, error) {
	b := &backend{close: func(context.Context) error { return nil }}

	var rdb *redis.Client
	redisClient := func() *redis.Client {
		if rdb == nil {
			rdb = redis.NewClient(&redis.Options{
				Addr:     viper.GetString("redis.addr"),
				Password: viper.GetString("redis.password"),
				DB:       viper.GetInt("redis.db"),
			})
		}
		return rdb
	}
	prefix := viper.GetString("redis.prefix")

	switch driver := viper.GetString("store.driver"); driver {
	case "memory":
		b.store = memory.New()
	case "redis":
		b.store = redisstore.NewStore(redisClient(), prefix)
	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(viper.GetString("mongo.uri")))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store := mongostore.NewStore(client, mongostore.Options{
			Database:   viper.GetString("mongo.database"),
			Collection: viper.GetString("mongo.collection"),
		})
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		b.store = store
		b.close = client.Disconnect
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	switch driver := viper.GetString("blacklist.driver"); driver {
	case "memory", "":
		b.blacklist = blacklist.NewMemory()
	case "redis":
		b.blacklist = blacklist.NewRedis(redisClient(), prefix)
	default:
		return nil, fmt.Errorf("unknown blacklist driver %q", driver)
	}

	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = b.close(ctx)
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		closeStore := b.close
		b.close = func(ctx context.Context) error {
			return errors.Join(closeStore(ctx), rdb.Close())
		}
	}
	return b, nil
}

// buildEngine opens the backend and builds an engine on it.
func buildEngine(ctx context.Context, log *slog.Logger) (*adminauth.Engine, *backend, error) {
	cfg, err := engineConfig()
	if err != nil {
		return nil, nil, err
	}
	for _, w := range cfg.Lint().BySeverity(adminauth.LintWarn) {
		log.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	b, err := openBackend(ctx)
	if err != nil {
		return nil, nil, err
	}

	builder := adminauth.New().
		WithConfig(cfg).
		WithStore(b.store).
		WithBlacklist(b.blacklist).
		WithLogger(log)
	if viper.GetBool("audit.enabled") {
		builder = builder.WithAuditSink(adminauth.NewSlogSink(log))
	}

	engine, err := builder.Build()
	if err != nil {
		_ = b.close(ctx)
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, b, nil
}

func shutdownTimeout() time.Duration {
	if d := viper.GetDuration("server.shutdown_timeout"); d > 0 {
		return d
	}
	return 15 * time.Second
}
