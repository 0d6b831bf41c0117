package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/DockeryAI/competitor-intel/internal/discovery"
	"github.com/DockeryAI/competitor-intel/internal/policy"
	"github.com/DockeryAI/competitor-intel/internal/resilience"
	"github.com/DockeryAI/competitor-intel/internal/scan"
	"github.com/DockeryAI/competitor-intel/internal/store"
	"github.com/DockeryAI/competitor-intel/internal/stream"
	anthropicpkg "github.com/DockeryAI/competitor-intel/pkg/anthropic"
	"github.com/DockeryAI/competitor-intel/pkg/firecrawl"
	"github.com/DockeryAI/competitor-intel/pkg/google"
	"github.com/DockeryAI/competitor-intel/pkg/perplexity"
)

// intelEnv holds the initialized store, clients, and pipeline components
// shared by the scan/rescan/serve commands.
type intelEnv struct {
	Store   store.Store
	Broker  *stream.Broker
	Gate    *policy.Gate
	Manager *stream.Manager
}

// Close releases resources held by the environment.
func (e *intelEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initIntel sets up the store, provider clients, and the streaming
// manager. Callers should defer env.Close().
func initIntel(ctx context.Context) (*intelEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	scanner := scan.NewMultiSource(scan.MultiSourceDeps{
		Firecrawl:      firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
		Google:         google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL)),
		Perplexity:     perplexity.NewClient(cfg.Perplexity.Key, cfg.Perplexity.Model, perplexity.WithBaseURL(cfg.Perplexity.BaseURL)),
		Anthropic:      anthropicpkg.NewClient(cfg.Anthropic.Key),
		AnthropicModel: cfg.Anthropic.Model,
		Retry: resilience.RetryConfig{
			MaxAttempts:    cfg.Resilience.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Resilience.InitialBackoffMs) * time.Millisecond,
		},
		Breaker: resilience.NewSourceBreaker(resilience.BreakerConfig{
			FailureThreshold: cfg.Resilience.FailureThreshold,
			CooldownPeriod:   time.Duration(cfg.Resilience.CooldownSecs) * time.Second,
		}),
	})

	gate := policy.New(cfg.Scan.CacheOnly, time.Duration(cfg.Scan.RescanWindowHours)*time.Hour)
	broker := stream.NewBroker(0)
	orchestrator := discovery.NewOrchestrator(st, scanner, gate, cfg.Scan.AutoDiscoverIfEmpty)

	manager := stream.NewManager(stream.ManagerDeps{
		Store:         st,
		Resolver:      orchestrator,
		Scanner:       scanner,
		Gate:          gate,
		Broker:        broker,
		MaxConcurrent: cfg.Scan.MaxConcurrent,
		SourceTimeout: time.Duration(cfg.Scan.SourceTimeoutSecs) * time.Second,
	})

	return &intelEnv{
		Store:   st,
		Broker:  broker,
		Gate:    gate,
		Manager: manager,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return store.NewSQLite(cfg.Store.Path)
	}
}
