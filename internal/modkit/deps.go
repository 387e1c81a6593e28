// Package modkit provides module wiring and core deps
package modkit

import (
	"cancioneiro/internal/modkit/repokit"
	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/platform/store"
)

// Deps holds core dependencies passed to modules. PG and CH may be nil
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
