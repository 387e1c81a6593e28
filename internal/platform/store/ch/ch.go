// Package ch provides a clickhouse client over clickhouse-go v2
package ch

import (
	"context"
	"errors"
	"strings"
	"time"

	"cancioneiro/internal/platform/logger"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL        string
	ClientName string
	ClientTag  string
	LogSQL     bool

	// DialTimeout caps the initial connect; zero keeps the driver default
	DialTimeout time.Duration
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// CH wraps a native clickhouse connection
type CH struct {
	conn   driver.Conn
	log    logger.Logger
	logSQL bool
}

// seam for tests
var openConn = clickhouse.Open

// Open parses the DSN, connects and pings once
func Open(ctx context.Context, cfg Config) (*CH, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("ch: empty url")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	opts.ClientInfo = BuildClientInfo(cfg.ClientName, cfg.ClientTag)

	conn, err := openConn(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &CH{
		conn:   conn,
		log:    logger.Named("ch").With().Logger(),
		logSQL: cfg.LogSQL,
	}, nil
}

// Insert appends rows into table through a native batch
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := batch.Append(r...); err != nil {
			_ = batch.Abort()
			return err
		}
	}
	if c.logSQL {
		c.log.Debug().Str("table", table).Int("rows", len(rows)).Msg("ch insert")
	}
	return batch.Send()
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if c.logSQL {
		c.log.Debug().Str("sql", sql).Interface("args", args).Msg("ch query")
	}
	return c.conn.Query(ctx, sql, args...)
}

// Exec runs a statement without results
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	if c.logSQL {
		c.log.Debug().Str("sql", sql).Interface("args", args).Msg("ch exec")
	}
	return c.conn.Exec(ctx, sql, args...)
}

// Ping verifies connectivity
func (c *CH) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
