package module

import (
	"time"

	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/services/jobs/service"
)

// Backends for job state and work sets
const (
	BackendPG     = "pg"
	BackendMemory = "memory"
)

// Options holds configuration for the jobs module
type Options struct {
	Backend      string
	ChunkSize    int
	MaxChunkSize int
	Autostart    bool

	ChunkTimeout time.Duration
	DBTimeout    time.Duration
	StallAfter   time.Duration
	ResumeLease  time.Duration

	// PublicURL is where continuations are posted
	PublicURL       string
	TriggerTimeout  time.Duration
	TriggerAttempts int
	TriggerBackoff  time.Duration

	// Events mirrors chunk stats to ClickHouse when one is wired
	Events bool
}

// FromConfig reads CORE_JOBS_ and CORE_API_PUBLIC_URL
func FromConfig(cfg config.Conf) Options {
	jc := cfg.Prefix("CORE_JOBS_")
	ac := cfg.Prefix("CORE_API_")
	return Options{
		Backend:      jc.MayEnum("BACKEND", BackendPG, BackendPG, BackendMemory),
		ChunkSize:    jc.MayInt("CHUNK_SIZE", service.DefaultChunkSize),
		MaxChunkSize: jc.MayInt("MAX_CHUNK_SIZE", service.DefaultMaxChunkSize),
		Autostart:    jc.MayBool("AUTOSTART", true),

		ChunkTimeout: jc.MayDuration("CHUNK_TIMEOUT", 4*time.Minute),
		DBTimeout:    jc.MayDuration("DB_TIMEOUT", 15*time.Second),
		StallAfter:   jc.MayDuration("STALL_AFTER", service.DefaultStallAfter),
		ResumeLease:  jc.MayDuration("RESUME_LEASE", service.DefaultResumeLease),

		PublicURL:       ac.MayString("PUBLIC_URL", "http://127.0.0.1:4000"),
		TriggerTimeout:  jc.MayDuration("TRIGGER_TIMEOUT", 10*time.Second),
		TriggerAttempts: jc.MayInt("TRIGGER_ATTEMPTS", 3),
		TriggerBackoff:  jc.MayDuration("TRIGGER_BACKOFF", 500*time.Millisecond),

		Events: jc.MayBool("EVENTS", true),
	}
}

func merge(cfg, o Options) Options {
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.ChunkSize != 0 {
		cfg.ChunkSize = o.ChunkSize
	}
	if o.MaxChunkSize != 0 {
		cfg.MaxChunkSize = o.MaxChunkSize
	}
	if o.ChunkTimeout != 0 {
		cfg.ChunkTimeout = o.ChunkTimeout
	}
	if o.StallAfter != 0 {
		cfg.StallAfter = o.StallAfter
	}
	if o.PublicURL != "" {
		cfg.PublicURL = o.PublicURL
	}
	return cfg
}
