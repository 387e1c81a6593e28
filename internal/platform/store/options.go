package store

import "cancioneiro/internal/platform/logger"

// Option adjusts a Store before Open connects anything
type Option func(*Store)

// WithLogger sets the logger used for boot and statement logging
func WithLogger(log logger.Logger) Option { return func(s *Store) { s.Log = log } }

// WithPG installs a postgres seam so Open does not dial one
func WithPG(pg TxRunner) Option { return func(s *Store) { s.PG = pg } }

// WithCH installs a clickhouse seam so Open does not dial one
func WithCH(ch Clickhouse) Option { return func(s *Store) { s.CH = ch } }
