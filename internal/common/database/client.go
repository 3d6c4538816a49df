package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"product-analytics/internal/common/config"
)

// Dialect selects placeholder syntax and dialect-specific query text.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count comma separated bind parameters starting at 1.
func (d Dialect) Placeholders(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// SQLClient wraps the pooled product database handle.
type SQLClient struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewSQL opens the pool for the configured driver.
func NewSQL(cfg config.DatabaseConfig) (*SQLClient, error) {
	switch Dialect(cfg.Driver) {
	case DialectPostgres:
		return NewPostgres(cfg.Postgres)
	case DialectMySQL:
		return NewMySQL(cfg.MySQL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewSQLFromDB wraps an existing handle, used with sqlmock in tests.
func NewSQLFromDB(db *sql.DB, dialect Dialect) *SQLClient {
	return &SQLClient{DB: db, Dialect: dialect}
}

func configurePool(db *sql.DB, maxOpen, maxIdle int) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// WithConn checks out a dedicated connection, verifies it is live and
// releases it when fn returns. Pooled connections that went stale are
// discarded by the ping and replaced on the next checkout.
func (c *SQLClient) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := c.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping connection: %w", err)
	}

	return fn(conn)
}
