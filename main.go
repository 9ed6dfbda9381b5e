package main

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-workplace-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-workplace-assistant/agent/agents/specialist"
	"github.com/tanpawarit/chative-workplace-assistant/agent/api"
	"github.com/tanpawarit/chative-workplace-assistant/agent/cache"
	llmx "github.com/tanpawarit/chative-workplace-assistant/agent/llm"
	promptx "github.com/tanpawarit/chative-workplace-assistant/agent/prompt"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
	toolx "github.com/tanpawarit/chative-workplace-assistant/agent/tool"
	"github.com/tanpawarit/chative-workplace-assistant/agent/workplace"
	"github.com/tanpawarit/chative-workplace-assistant/pkg/apiclient"
	configx "github.com/tanpawarit/chative-workplace-assistant/pkg/config"
	_ "github.com/tanpawarit/chative-workplace-assistant/pkg/logger/autoload"
)

// SessionConfig selects the session store. Loaded with prefix SESSION.
type SessionConfig struct {
	Backend      string `default:"memory"` // memory | upstash | postgres
	PartitionKey string `split_words:"true" default:"workplace"`
}

type closer func()

func main() {
	ctx := context.Background()
	var closers []closer

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid openrouter config")
	}
	orchCfg := configx.MustNew[orchestrator.Config]("ORCHESTRATOR")
	httpCfg := configx.MustNew[api.Config]("HTTP")

	adapter, closeCache := mustCache(ctx)
	closers = append(closers, closeCache)

	store, closeStore := mustSessionStore(ctx)
	closers = append(closers, closeStore)

	directory := workplace.NewCachedDirectory(
		workplace.NewHTTPDirectory(apiclient.MustNew(*configx.MustNew[apiclient.Config]("DIRECTORY_API"))), adapter)
	calendar := workplace.NewCachedCalendar(
		workplace.NewHTTPCalendar(apiclient.MustNew(*configx.MustNew[apiclient.Config]("CALENDAR_API"))), adapter)
	locations := workplace.NewCachedLocations(
		workplace.NewHTTPLocations(apiclient.MustNew(*configx.MustNew[apiclient.Config]("LOCATION_API"))), adapter)

	agentDefs := specialist.Definitions()
	tools, err := toolx.NewRegistry(toolx.Definitions(toolx.Services{
		Directory: directory,
		Calendar:  calendar,
		Locations: locations,
		Agents:    specialist.Names(agentDefs),
	}))
	if err != nil {
		log.Fatal().Err(err).Msg("build tool registry")
	}

	agents, err := specialist.NewRegistry(ctx, agentDefs, specialist.OpenRouterModels(*llmCfg), tools, promptx.LoadPromptSet())
	if err != nil {
		log.Fatal().Err(err).Msg("build agent registry")
	}

	orch, err := orchestrator.New(store, agents, tools, agents.Selector(), *orchCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	var purger api.CachePurger
	if adapter != nil {
		purger = adapter
	}
	srv := api.NewServer(*httpCfg, api.NewHandler(orch, purger))
	srv.OnShutdown = append(srv.OnShutdown, func(context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	})

	log.Info().Str("addr", httpCfg.Addr).Strs("agents", agentNames(agents)).Msg("chative workplace assistant listening")
	srv.Spin()
}

func mustCache(ctx context.Context) (*cache.Adapter, closer) {
	cfg := configx.MustNew[cache.Config]("CACHE")

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return cache.New(cache.NewMemoryStore(), *cfg), func() {}
	case "redis":
		redisCfg := configx.MustNew[cache.RedisConfig]("REDIS")
		rs := cache.NewRedisStore(*redisCfg)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			// The adapter degrades to direct fetches while Redis is down.
			log.Warn().Err(err).Str("addr", redisCfg.Addr).Msg("redis cache unreachable at startup")
		}
		return cache.New(rs, *cfg), func() { _ = rs.Close() }
	case "none", "off":
		return nil, func() {}
	default:
		log.Fatal().Str("backend", cfg.Backend).Msg("unknown cache backend")
		return nil, nil
	}
}

func mustSessionStore(ctx context.Context) (statex.Store, closer) {
	cfg := configx.MustNew[SessionConfig]("SESSION")
	opts := []statex.StoreOption{statex.WithPartitionKey(cfg.PartitionKey)}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return statex.NewMemoryStore(opts...), func() {}
	case "upstash":
		upCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*upCfg, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("build upstash session store")
		}
		return store, func() {}
	case "postgres":
		pgCfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		store, err := statex.NewPostgresStore(ctx, *pgCfg, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("build postgres session store")
		}
		return store, func() { _ = store.Close() }
	default:
		log.Fatal().Str("backend", cfg.Backend).Msg("unknown session backend")
		return nil, nil
	}
}

func agentNames(agents *specialist.Registry) []string {
	names := agents.Names()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	return out
}
