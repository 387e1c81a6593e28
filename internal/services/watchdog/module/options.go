package module

import (
	"time"

	"cancioneiro/internal/platform/config"
)

// Options controls the watchdog. Values are read from CORE_WATCHDOG_
type Options struct {
	Enabled     bool
	Interval    time.Duration
	StallAfter  time.Duration
	MaxAttempts int
	Concurrency int
	RatePerSec  float64
	Burst       int
	Batch       int
}

// FromConfig reads options using the CORE_WATCHDOG_ prefix
func FromConfig(cfg config.Conf) Options {
	wd := cfg.Prefix("CORE_WATCHDOG_")
	return Options{
		Enabled:     wd.MayBool("ENABLED", true),
		Interval:    wd.MayDuration("INTERVAL", time.Minute),
		StallAfter:  wd.MayDuration("STALL_AFTER", 10*time.Minute),
		MaxAttempts: wd.MayInt("MAX_ATTEMPTS", 3),
		Concurrency: wd.MayInt("CONCURRENCY", 4),
		RatePerSec:  wd.MayFloat64("RATE", 2.0),
		Burst:       wd.MayInt("BURST", 4),
		Batch:       wd.MayInt("BATCH", 100),
	}
}
