package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	// DriverMemory selects the in-process map.
	DriverMemory = "memory"
	// DriverBolt selects the bbolt file database.
	DriverBolt = "bolt"
	// DriverSQLite selects the SQLite file database.
	DriverSQLite = "sqlite"
	// DriverRedis selects a Redis server.
	DriverRedis = "redis"
	// DriverPostgres selects a PostgreSQL server.
	DriverPostgres = "postgres"
)

const defaultConnectRetries = 5

// FactoryOptions groups configuration for every driver.
type FactoryOptions struct {
	Bolt   BoltOptions
	SQLite SQLiteOptions

	// RedisURL is parsed with redis.ParseURL.
	RedisURL string
	// RedisPrefix is prepended to every key.
	RedisPrefix string

	// PostgresURL is parsed with pgxpool.ParseConfig.
	PostgresURL string
	// PostgresTable holds every key of this store.
	PostgresTable string

	// ConnectRetries bounds connection attempts for network drivers.
	ConnectRetries uint64
}

// NewFromDriver constructs a Store by driver name. Network drivers are pinged
// with a capped fibonacci backoff before the store is returned.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverBolt:
		return NewBolt(opts.Bolt)
	case DriverSQLite:
		return NewSQLite(ctx, opts.SQLite)
	case DriverRedis:
		return newRedisFromURL(ctx, opts)
	case DriverPostgres:
		return newPostgresFromURL(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func newRedisFromURL(ctx context.Context, opts FactoryOptions) (*Redis, error) {
	opt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := connect(ctx, opts.ConnectRetries, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, err
	}

	store := NewRedis(client, opts.RedisPrefix)
	store.owned = true

	return store, nil
}

func newPostgresFromURL(ctx context.Context, opts FactoryOptions) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(opts.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse postgres url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("kvstore: create postgres pool: %w", err)
	}

	if err := connect(ctx, opts.ConnectRetries, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	store, err := NewPostgres(ctx, pool, opts.PostgresTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	store.owned = true

	return store, nil
}

func connect(ctx context.Context, retries uint64, name string, ping func(context.Context) error) error {
	if retries == 0 {
		retries = defaultConnectRetries
	}

	b := retry.NewFibonacci(200 * time.Millisecond)
	b = retry.WithMaxRetries(retries, b)
	b = retry.WithCappedDuration(5*time.Second, b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "kvstore connection attempt failed", "driver", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kvstore: connect %s: %w", name, err)
	}

	return nil
}
