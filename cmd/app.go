package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/Chative-Commerce-Router/agent/agents/coordinator"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/agents/intent"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/agents/planner"
	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory/graphstore"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
	statex "github.com/tanpawarit/Chative-Commerce-Router/agent/state"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/storefront"
	configx "github.com/tanpawarit/Chative-Commerce-Router/pkg/config"
	openrouterx "github.com/tanpawarit/Chative-Commerce-Router/pkg/openrouter"
	postgresx "github.com/tanpawarit/Chative-Commerce-Router/pkg/postgres"
	qstashx "github.com/tanpawarit/Chative-Commerce-Router/pkg/qstash"
	redisx "github.com/tanpawarit/Chative-Commerce-Router/pkg/redis"
)

const (
	StateBackendMemory  = "memory"
	StateBackendRedis   = "redis"
	StateBackendUpstash = "upstash"
)

type AppConfig struct {
	StateBackend string        `envconfig:"STATE_BACKEND" default:"memory"`
	StateTTL     time.Duration `envconfig:"STATE_TTL" default:"24h"`
	StateMaxTurn int           `envconfig:"STATE_MAX_TURNS" default:"10"`
	CatalogPaths []string      `envconfig:"CATALOG_PATHS"`
	AgentTimeout time.Duration `envconfig:"AGENT_TIMEOUT" default:"60s"`
}

// App is the wired router with everything it needs to shut down cleanly.
type App struct {
	Coordinator *coordinator.Coordinator
	Catalog     *catalogx.Catalog

	// Graph and QStash are nil when memory persistence or deferred ingestion is off.
	Graph     *graphstore.Store
	QStash    *qstashx.Client
	MemoryCfg memory.Config

	closers []func() error
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("shutdown step failed")
		}
	}
}

func buildApp(ctx context.Context) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	appCfg, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, fmt.Errorf("app config: %w", err)
	}
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}

	prompts, err := promptx.Load()
	if err != nil {
		return nil, err
	}
	catalog, err := catalogx.LoadDefault(appCfg.CatalogPaths...)
	if err != nil {
		return nil, err
	}
	app.Catalog = catalog

	sfCfg, err := configx.New[storefront.Config]("SHOPWARE")
	if err != nil {
		return nil, fmt.Errorf("storefront config: %w", err)
	}
	client, err := storefront.NewClient(*sfCfg)
	if err != nil {
		return nil, err
	}
	executor, err := catalogx.NewGuard(catalog, storefront.NewExecutor(client))
	if err != nil {
		return nil, err
	}

	registry, err := planner.NewRegistry(ctx, planner.Deps{
		Catalog:  catalog,
		Prompts:  prompts,
		Executor: executor,
		Models:   llmCfg.ModelFor,
		Timeout:  appCfg.AgentTimeout,
	})
	if err != nil {
		return nil, err
	}

	intentModel, err := llmCfg.ModelFor(ctx, contractx.AgentTypeIntent)
	if err != nil {
		return nil, err
	}
	classifier, err := intent.New(ctx, intentModel, catalog, prompts, appCfg.AgentTimeout)
	if err != nil {
		return nil, err
	}

	store, err := app.buildStateStore(ctx, *appCfg)
	if err != nil {
		return nil, err
	}

	reader, dispatcher, err := app.buildMemory(ctx, *llmCfg, prompts)
	if err != nil {
		return nil, err
	}

	app.Coordinator, err = coordinator.New(coordinator.Deps{
		Store:      store,
		Classifier: classifier,
		Registry:   registry,
		Reader:     reader,
		Dispatcher: dispatcher,
		MaxTurns:   appCfg.StateMaxTurn,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("actions", catalog.Len()).
		Str("state_backend", appCfg.StateBackend).
		Str("memory_mode", app.MemoryCfg.Mode).
		Bool("graph", app.Graph != nil).
		Msg("router wired")
	return app, nil
}

func (a *App) buildStateStore(ctx context.Context, cfg AppConfig) (statex.Store, error) {
	opts := []statex.StoreOption{statex.WithTTL(cfg.StateTTL)}

	switch strings.ToLower(strings.TrimSpace(cfg.StateBackend)) {
	case StateBackendRedis:
		redisCfg, err := configx.New[redisx.Config]("REDIS")
		if err != nil {
			return nil, fmt.Errorf("redis config: %w", err)
		}
		rdb, err := redisCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		return statex.NewRedisStore(rdb, opts...)
	case StateBackendUpstash:
		upCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, fmt.Errorf("upstash config: %w", err)
		}
		return statex.NewUpstashRedisStore(*upCfg, opts...)
	case StateBackendMemory, "":
		return statex.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// buildMemory wires the knowledge graph when Postgres is configured. Without
// it the router runs with no outline and no ingestion.
func (a *App) buildMemory(ctx context.Context, llmCfg llmx.Config, prompts *promptx.Library) (*memory.Reader, contractx.EpisodeDispatcher, error) {
	memCfg, err := configx.New[memory.Config]("MEMORY")
	if err != nil {
		return nil, nil, fmt.Errorf("memory config: %w", err)
	}
	pgCfg, err := configx.New[postgresx.Config]("POSTGRES")
	if err != nil {
		return nil, nil, fmt.Errorf("postgres config: %w", err)
	}
	if memCfg.Mode == memory.ModeOff || !pgCfg.Enabled() {
		memCfg.Mode = memory.ModeOff
		a.MemoryCfg = *memCfg
		return nil, memory.NoopDispatcher{}, nil
	}
	a.MemoryCfg = *memCfg

	db, err := postgresx.New(ctx, *pgCfg)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, db.Close)

	graph, err := buildGraphStore(ctx, db, llmCfg, prompts)
	if err != nil {
		return nil, nil, err
	}
	a.Graph = graph

	var publisher memory.Publisher
	if memCfg.Mode == memory.ModeQStash {
		qCfg, err := configx.New[qstashx.Config]("QSTASH")
		if err != nil {
			return nil, nil, fmt.Errorf("qstash config: %w", err)
		}
		a.QStash, err = qstashx.NewClient(*qCfg)
		if err != nil {
			return nil, nil, err
		}
		publisher = a.QStash
	}

	dispatcher, err := memory.NewDispatcher(*memCfg, graph, publisher)
	if err != nil {
		return nil, nil, err
	}
	if d, ok := dispatcher.(*memory.InProcessDispatcher); ok {
		a.closers = append(a.closers, func() error { d.Wait(); return nil })
	}
	return memory.NewReader(graph, memCfg.OutlineLimit), dispatcher, nil
}

func buildGraphStore(ctx context.Context, db *bun.DB, llmCfg llmx.Config, prompts *promptx.Library) (*graphstore.Store, error) {
	model, err := llmCfg.ModelFor(ctx, contractx.AgentTypeMemory)
	if err != nil {
		return nil, err
	}
	extractor, err := graphstore.NewLLMExtractor(ctx, model, prompts, llmCfg.Timeout)
	if err != nil {
		return nil, err
	}

	var opts []graphstore.Option
	if llmCfg.EmbeddingModel != "" {
		client := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentTypeMemory))
		if client == nil {
			return nil, errors.New("embeddings need an OpenAI-compatible api key")
		}
		opts = append(opts, graphstore.WithEmbedder(graphstore.NewOpenAIEmbedder(client, llmCfg.EmbeddingModel)))
	}

	graph, err := graphstore.New(db, extractor, opts...)
	if err != nil {
		return nil, err
	}
	if err := graph.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate memory schema: %w", err)
	}
	return graph, nil
}
