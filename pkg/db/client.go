package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/rverduzco/stockroom-backend/pkg/config"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn    *gorm.DB
	retries int
	hooks   TxCallbacks
}

// TxCallbacks lets callers observe the retry loop without this package
// depending on a metrics implementation.
type TxCallbacks struct {
	OnRetry     func()
	OnExhausted func()
}

// SetTxCallbacks installs retry observers. Call before serving traffic.
func (c *Client) SetTxCallbacks(hooks TxCallbacks) {
	c.hooks = hooks
}

// SetRetries overrides the transaction retry budget. Values below 1 keep
// the default.
func (c *Client) SetRetries(n int) {
	if n >= 1 {
		c.retries = n
	}
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a GORM client using the provided configuration. The sqlite
// feature flag selects the single-file datastore the desktop deployments
// use; everything above this package is driver-agnostic.
func New(ctx context.Context, cfg config.DBConfig, useSQLite bool, logg *logger.Logger) (*Client, error) {
	var dialector gorm.Dialector
	if useSQLite {
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	} else {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database DSN is required")
		}
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg, useSQLite)

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	return &Client{conn: conn, retries: defaultTxRetries}, nil
}

const defaultTxRetries = 3

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig, useSQLite bool) {
	if useSQLite {
		// A single writer connection keeps sqlite's whole-file locking
		// from surfacing as spurious SQLITE_BUSY errors.
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// NewFromGorm wraps an existing GORM connection; used by package tests.
func NewFromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn, retries: defaultTxRetries}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// RunInTx executes fn inside a transaction with a bounded retry loop for
// lock contention and serialization failures. Re-running the whole closure
// is safe because a failed attempt commits nothing.
func (c *Client) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var lastErr error
	attempts := c.retries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		err := c.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsSerializationFailure(err) {
			return err
		}
		lastErr = err
		if c.hooks.OnRetry != nil && attempt < attempts-1 {
			c.hooks.OnRetry()
		}
	}
	if c.hooks.OnExhausted != nil {
		c.hooks.OnExhausted()
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransaction, lastErr, "transaction retries exhausted")
}
