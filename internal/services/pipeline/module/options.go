package module

import (
	"time"

	"cancioneiro/internal/adapters/llm"
	"cancioneiro/internal/platform/config"
	cachedomain "cancioneiro/internal/services/cache/domain"
	semdomain "cancioneiro/internal/services/semantic/domain"
)

// Backends for the cache and classification stores
const (
	BackendPG     = "pg"
	BackendMemory = "memory"
)

// Options holds configuration for the pipeline module
type Options struct {
	CacheThreshold float64
	CacheBackend   string
	ClassifyBatch  int
	ClassifyDelay  time.Duration

	NLPURL           string
	NLPTimeout       time.Duration
	NLPHealthTimeout time.Duration
	NLPRetryBackoff  time.Duration

	LLMAPIKey             string
	LLMBaseURL            string
	LLMModel              string
	LLMTimeout            time.Duration
	LLMMaxRetries         int
	LLMFallbackConfidence float64
}

// FromConfig reads CORE_PIPELINE_, CORE_NLP_ and CORE_LLM_
func FromConfig(cfg config.Conf) Options {
	pc := cfg.Prefix("CORE_PIPELINE_")
	nc := cfg.Prefix("CORE_NLP_")
	lc := cfg.Prefix("CORE_LLM_")
	return Options{
		CacheThreshold: pc.MayFloat64("CACHE_THRESHOLD", cachedomain.DefaultThreshold),
		CacheBackend:   pc.MayEnum("CACHE_BACKEND", BackendPG, BackendPG, BackendMemory),
		ClassifyBatch:  pc.MayInt("CLASSIFY_BATCH", semdomain.DefaultBatchSize),
		ClassifyDelay:  pc.MayDuration("CLASSIFY_DELAY", time.Second),

		NLPURL:           nc.MayString("URL", ""),
		NLPTimeout:       nc.MayDuration("TIMEOUT", 15*time.Second),
		NLPHealthTimeout: nc.MayDuration("HEALTH_TIMEOUT", 3*time.Second),
		NLPRetryBackoff:  nc.MayDuration("RETRY_BACKOFF", 2*time.Second),

		LLMAPIKey:             lc.MayString("API_KEY", ""),
		LLMBaseURL:            lc.MayString("BASE_URL", ""),
		LLMModel:              lc.MayString("MODEL", llm.DefaultModel),
		LLMTimeout:            lc.MayDuration("TIMEOUT", 60*time.Second),
		LLMMaxRetries:         lc.MayInt("MAX_RETRIES", 0),
		LLMFallbackConfidence: lc.MayFloat64("FALLBACK_CONFIDENCE", semdomain.DefaultFallbackConfidence),
	}
}
