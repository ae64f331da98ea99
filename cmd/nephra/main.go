// Command nephra is the kidney-health knowledge base retrieval core.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/nephra/internal/adapters/driven/ai"
	cachememory "github.com/custodia-labs/nephra/internal/adapters/driven/cache/memory"
	cacheredis "github.com/custodia-labs/nephra/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/nephra/internal/adapters/driven/config/env"
	"github.com/custodia-labs/nephra/internal/adapters/driven/config/file"
	"github.com/custodia-labs/nephra/internal/adapters/driven/corpus/filesystem"
	storagememory "github.com/custodia-labs/nephra/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/nephra/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/custodia-labs/nephra/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/nephra/internal/adapters/driving/cli"
	"github.com/custodia-labs/nephra/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/services"
	"github.com/custodia-labs/nephra/internal/logger"
	"github.com/custodia-labs/nephra/internal/normalisers"
	"github.com/custodia-labs/nephra/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := env.LoadDotEnv(); err != nil {
		logger.Warn("%v", err)
	}

	home, err := file.HomeDir()
	if err != nil {
		return err
	}
	var base driven.ConfigStore
	if fileStore, err := file.NewConfigStore(home); err != nil {
		logger.Warn("Config directory unavailable, settings will not persist: %v", err)
		base = storagememory.NewConfigStore(nil)
	} else {
		base = fileStore
	}
	settingsSvc := services.NewSettingsService(env.NewOverlay(base, os.LookupEnv), ai.NewConfigValidator())

	settings, err := settingsSvc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	rt, err := wire(ctx, home, settings)
	if err != nil {
		return err
	}
	defer rt.close()

	cli.Configure(cli.Services{
		Search:         rt.search,
		Ingest:         rt.ingest,
		Sync:           rt.sync,
		Corpus:         rt.corpus,
		Settings:       settingsSvc,
		BackgroundSync: rt.scheduler,
		Runtime: cli.Runtime{
			CorpusDir: settings.Corpus.Dir,
			Supports:  rt.registry.Supports,
			Server: httpapi.Config{
				Addr:        settings.Server.Addr,
				AdminSecret: settings.Server.AdminSecret,
				CORSOrigins: settings.Server.CORSOrigins,
			},
		},
	})
	cli.SetVersion(version)
	return cli.Execute(ctx)
}

// runtime holds the wired services and the resources to release.
type runtime struct {
	registry  *normalisers.Registry
	search    *services.SearchService
	ingest    *services.IngestService
	sync      *services.SyncOrchestrator
	corpus    *services.CorpusService
	scheduler *services.Scheduler
	closers   []func()
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// wire builds every adapter from settings. Missing providers degrade
// to warnings so that commands which do not need them keep working.
func wire(ctx context.Context, home string, s *domain.AppSettings) (*runtime, error) {
	rt := &runtime{registry: normalisers.NewDefaultRegistry()}

	pipeline, err := postprocessors.NewDefaultPipeline(s.Chunking, s.Sync.Dedupe)
	if err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return nil, err
	}

	providers := &ai.InitResult{PromptStore: prompts}
	rt.closers = append(rt.closers, providers.Close)

	if svc, err := ai.CreateAndValidateEmbeddingService(&s.Embedding); err != nil {
		providers.Warnings = append(providers.Warnings, fmt.Sprintf("embedding unavailable, search and indexing disabled: %v", err))
	} else {
		providers.EmbeddingService = svc
	}

	if s.LLM.Provider != "" {
		if svc, err := ai.CreateAndValidateLLMService(&s.LLM); err != nil {
			providers.Warnings = append(providers.Warnings, fmt.Sprintf("LLM unavailable, query refinement disabled: %v", err))
		} else {
			if ps, ok := svc.(driven.PromptStoreAware); ok {
				ps.SetPromptStore(prompts)
			}
			providers.LLMService = svc
		}
	}

	embedder := providers.EmbeddingService
	if embedder != nil {
		ix, err := ai.CreateVectorIndex(&s.VectorIndex, embedder.Dimensions(), s.Retrieval.MinScore)
		if err != nil {
			providers.Warnings = append(providers.Warnings, fmt.Sprintf("durable index unavailable, using in-process fallback only: %v", err))
		} else if ix != nil {
			providers.VectorIndex = ix
		}
	}
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}
	durable := providers.VectorIndex

	cache, err := buildCache(ctx, s, rt)
	if err != nil {
		logger.Warn("Redis cache unavailable, using memory cache: %v", err)
		cache = cachememory.New(s.Retrieval.CacheTTL)
	}

	runs, err := buildHistory(home, s, rt)
	if err != nil {
		return nil, err
	}

	corpusStore, err := filesystem.New(s.Corpus.Dir, rt.registry)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	rt.ingest = services.NewIngestService(rt.registry, pipeline, embedder, durable)
	rt.ingest.SetCache(cache)

	var backends []driven.RetrievalBackend
	if durable != nil {
		backends = append(backends, durable)
	}
	if embedder != nil {
		ephemeral := vectormemory.New(embedder.Dimensions(),
			vectormemory.WithName("ephemeral"),
			vectormemory.WithMinScore(s.Retrieval.MinScore))
		backends = append(backends, services.NewEphemeralBackend(corpusStore, rt.ingest, embedder, ephemeral))
	}

	rt.search = services.NewSearchService(embedder, services.NewFallbackStrategy(backends...), cache, services.SearchConfig{
		TopK:          s.Retrieval.TopK,
		PriorityTerms: s.Retrieval.PriorityTerms,
		Refine:        s.Retrieval.Refine,
		RefineTimeout: s.Retrieval.RefineTimeout,
	})
	if providers.LLMService != nil {
		rt.search.SetLLMService(providers.LLMService)
	}

	rt.sync = services.NewSyncOrchestrator(corpusStore, rt.ingest, runs, services.SyncConfig{
		BatchSize:            s.Sync.BatchSize,
		InteractiveBatchSize: s.Sync.InteractiveBatchSize,
		MaxRetries:           s.Sync.MaxRetries,
		BackoffBase:          s.Sync.BackoffBase,
		BatchDelay:           s.Sync.BatchDelay,
	})
	rt.corpus = services.NewCorpusService(corpusStore, rt.sync)
	rt.scheduler = services.NewScheduler(s.Sync.Interval, rt.sync)

	return rt, nil
}

func buildCache(ctx context.Context, s *domain.AppSettings, rt *runtime) (driven.RetrievalCache, error) {
	if s.Cache.Backend != "redis" {
		return cachememory.New(s.Retrieval.CacheTTL), nil
	}
	c, err := cacheredis.New(ctx, cacheredis.Config{
		Addr: s.Cache.RedisAddr,
		TTL:  s.Retrieval.CacheTTL,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() { _ = c.Close() })
	return c, nil
}

func buildHistory(home string, s *domain.AppSettings, rt *runtime) (driven.SyncRunStore, error) {
	if !s.History.Enabled {
		return storagememory.NewSyncRunStore(), nil
	}
	dir := s.History.Dir
	if dir == "" {
		dir = filepath.Join(home, "data")
	}
	store, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open sync history: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = store.Close() })
	return store.SyncRunStore(), nil
}
