package store

import (
	"time"

	"cancioneiro/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32
	LogSQL   bool
	Slow     time.Duration

	// Migrate applies the embedded schema once the pool answers
	Migrate bool

	ConnectRetries int           // boot pings before giving up, default 20
	PingTimeout    time.Duration // per ping, default 3s
}

// CHConfig configures clickhouse
type CHConfig struct {
	Enabled    bool
	URL        string
	LogSQL     bool
	ClientName string
	ClientTag  string
}

// ConfigFromEnv reads SERVICE_PGSQL_ and SERVICE_CLICKHOUSE_.
// A backend without a DBURL stays disabled
func ConfigFromEnv(root config.Conf, tag string) Config {
	pgc := root.Prefix("SERVICE_PGSQL_")
	chc := root.Prefix("SERVICE_CLICKHOUSE_")
	pgURL := pgc.MayString("DBURL", "")
	chURL := chc.MayString("DBURL", "")
	return Config{
		AppName: "cancioneiro-" + tag,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pgc.MayInt("MAX_CONNS", 4)),
			Slow:           pgc.MayDuration("SLOW", 500*time.Millisecond),
			LogSQL:         pgc.MayBool("LOG_SQL", false),
			Migrate:        pgc.MayBool("MIGRATE", false),
			ConnectRetries: pgc.MayInt("CONNECT_RETRIES", 20),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			LogSQL:     chc.MayBool("LOG_SQL", false),
			ClientName: "cancioneiro",
			ClientTag:  tag,
		},
	}
}
