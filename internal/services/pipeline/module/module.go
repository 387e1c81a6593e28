// Package module wires the annotation pipeline, its cache and the semantic classifier
package module

import (
	"strings"

	"cancioneiro/internal/adapters/llm"
	"cancioneiro/internal/adapters/nlp"
	"cancioneiro/internal/core/grammar"
	"cancioneiro/internal/core/lexicon"
	"cancioneiro/internal/core/tokenize"
	"cancioneiro/internal/modkit"
	"cancioneiro/internal/modkit/httpkit"
	"cancioneiro/internal/platform/logger"

	cachedomain "cancioneiro/internal/services/cache/domain"
	cacherepo "cancioneiro/internal/services/cache/repo"
	cachesvc "cancioneiro/internal/services/cache/service"
	phttp "cancioneiro/internal/services/pipeline/http"
	"cancioneiro/internal/services/pipeline/service"
	semdomain "cancioneiro/internal/services/semantic/domain"
	semrepo "cancioneiro/internal/services/semantic/repo"
	semsvc "cancioneiro/internal/services/semantic/service"
)

// Ports exposed by the pipeline module
type Ports struct {
	Pipeline *service.Service
	Cache    cachedomain.Ports
	Semantic semdomain.Ports
	NLP      *nlp.Client
	LLM      *llm.Client
}

// Module implements modkit.Module
type Module struct {
	b      modkit.Built
	deps   modkit.Deps
	ports  Ports
	routes func(httpkit.Router)
}

// New constructs the pipeline module; zero fields of overrides keep the config values
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("pipeline"),
	}, opts...)...)

	cfg := merge(FromConfig(deps.Cfg), overrides)
	log := logger.Named("pipeline")

	backend := strings.ToLower(cfg.CacheBackend)
	if backend == BackendPG && deps.PG == nil {
		log.Warn().Msg("no postgres configured, cache and classifications kept in memory")
		backend = BackendMemory
	}

	var (
		cacheRepo cachedomain.Repo
		semRepo   semdomain.Repo
	)
	switch backend {
	case BackendMemory:
		cacheRepo = cacherepo.NewMemory()
		semRepo = semrepo.NewMemory()
	default:
		cacheRepo = cacherepo.NewPG().Bind(deps.PG)
		semRepo = semrepo.NewPG().Bind(deps.PG)
	}

	lex := lexicon.MustDefault()
	cache := cachesvc.New(cacheRepo, cachesvc.Config{Threshold: cfg.CacheThreshold})

	nlpc := nlp.NewClient(nlp.Options{
		BaseURL:       cfg.NLPURL,
		Timeout:       cfg.NLPTimeout,
		HealthTimeout: cfg.NLPHealthTimeout,
		RetryBackoff:  cfg.NLPRetryBackoff,
	})
	llmc := llm.NewClient(llm.Options{
		APIKey:     cfg.LLMAPIKey,
		BaseURL:    cfg.LLMBaseURL,
		Model:      cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
	})
	sem := semsvc.New(semRepo, llmc, semsvc.Config{
		BatchSize:          cfg.ClassifyBatch,
		Delay:              cfg.ClassifyDelay,
		FallbackConfidence: cfg.LLMFallbackConfidence,
	})

	pipe := service.New(service.Deps{
		Tokenizer: tokenize.FromLexicon(lex),
		Grammar:   grammar.New(lex),
		Cache:     cache,
		External:  service.NewExternal(nlpc),
		Semantic:  sem,
	})

	log.Info().
		Str("cache_backend", backend).
		Bool("nlp", nlpc.Configured()).
		Bool("llm", llmc.Configured()).
		Str("llm_model", llmc.Model()).
		Int("lexicon_version", lex.Version).
		Msg("pipeline ready")

	return &Module{
		b:      b,
		deps:   deps,
		ports:  Ports{Pipeline: pipe, Cache: cache, Semantic: sem, NLP: nlpc, LLM: llmc},
		routes: func(r httpkit.Router) { phttp.Register(r, pipe, cache, sem) },
	}
}

func merge(cfg, o Options) Options {
	if o.CacheThreshold != 0 {
		cfg.CacheThreshold = o.CacheThreshold
	}
	if o.CacheBackend != "" {
		cfg.CacheBackend = o.CacheBackend
	}
	if o.ClassifyBatch != 0 {
		cfg.ClassifyBatch = o.ClassifyBatch
	}
	if o.ClassifyDelay != 0 {
		cfg.ClassifyDelay = o.ClassifyDelay
	}
	if o.NLPURL != "" {
		cfg.NLPURL = o.NLPURL
	}
	if o.LLMAPIKey != "" {
		cfg.LLMAPIKey = o.LLMAPIKey
	}
	if o.LLMBaseURL != "" {
		cfg.LLMBaseURL = o.LLMBaseURL
	}
	if o.LLMModel != "" {
		cfg.LLMModel = o.LLMModel
	}
	return cfg
}

// MountRoutes mounts the module routes at the API root, the routes are top level verbs
func (m *Module) MountRoutes(r httpkit.Router) { m.b.Mount(r, m.routes) }

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.b.Prefix }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
