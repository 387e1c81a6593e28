// Package migrate applies the embedded postgres schema through goose
package migrate

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"cancioneiro/internal/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

// Dir is the directory inside the embedded FS that holds migrations
const Dir = "sql"

// TableName is the goose bookkeeping table
const TableName = "schema_migrations"

// goose keeps package level state, serialize every run
var mu sync.Mutex

// zlog routes goose output to the named zerolog child
type zlog struct{ l *logger.Logger }

func (z zlog) Printf(format string, v ...any) {
	z.l.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (z zlog) Fatalf(format string, v ...any) {
	z.l.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func setup() error {
	goose.SetBaseFS(migrations)
	goose.SetTableName(TableName)
	goose.SetLogger(zlog{l: logger.Named("migrate")})
	return goose.SetDialect("postgres")
}

// Up applies every pending migration using a database/sql view of the pool
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("migrate: nil pool")
	}
	mu.Lock()
	defer mu.Unlock()

	if err := setup(); err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, Dir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration
func Down(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("migrate: nil pool")
	}
	mu.Lock()
	defer mu.Unlock()

	if err := setup(); err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return goose.DownContext(ctx, db, Dir)
}

// Version reports the current schema version
func Version(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	if pool == nil {
		return 0, fmt.Errorf("migrate: nil pool")
	}
	mu.Lock()
	defer mu.Unlock()

	if err := setup(); err != nil {
		return 0, err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return goose.GetDBVersionContext(ctx, db)
}

// Files lists the embedded migration file names in apply order
func Files() ([]string, error) {
	entries, err := migrations.ReadDir(Dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
