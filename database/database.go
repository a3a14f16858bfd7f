package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"betpulse/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var (
	globalPool *pgxpool.Pool
	dbOnce     sync.Once
	dbMux      sync.Mutex
	isClosed   bool
)

// Database holds the connection pool and exposes all store operations.
type Database struct {
	pool *pgxpool.Pool
}

// NewDatabase creates a Database instance backed by the global pool.
func NewDatabase() *Database {
	if globalPool == nil {
		logrus.Fatal("database not initialized, call ConnectPostgres first")
	}
	return &Database{pool: globalPool}
}

// NewDatabaseWithPool creates a Database instance with a custom pool.
func NewDatabaseWithPool(pool *pgxpool.Pool) *Database {
	return &Database{pool: pool}
}

// ConnectPostgres initializes the global pool once.
func ConnectPostgres(cfg *config.Config) error {
	var connErr error
	dbOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()

		poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
		if err != nil {
			connErr = fmt.Errorf("failed to parse DSN: %w", err)
			return
		}

		poolConfig.MaxConns = 50
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = 1 * time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = 1 * time.Minute
		poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = "10000"

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			connErr = fmt.Errorf("failed to create connection pool: %w", err)
			return
		}

		if err := pool.Ping(ctx); err != nil {
			connErr = fmt.Errorf("failed to ping database: %w", err)
			pool.Close()
			return
		}

		globalPool = pool

		stats := pool.Stat()
		logrus.Infof("database pool ready, total=%d idle=%d", stats.TotalConns(), stats.IdleConns())
	})
	return connErr
}

// GetPool returns the global connection pool.
func GetPool() *pgxpool.Pool {
	return globalPool
}

// Close shuts the global pool down.
func Close() {
	dbMux.Lock()
	defer dbMux.Unlock()

	if !isClosed && globalPool != nil {
		globalPool.Close()
		isClosed = true
		logrus.Info("postgres pool closed")
	}
}
