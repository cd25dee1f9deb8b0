package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	assembler "wattwise/internal/context"
	"wattwise/internal/config"
	"wattwise/internal/domain"
	"wattwise/internal/engine"
	"wattwise/internal/llm/providers"
	"wattwise/internal/observability"
	"wattwise/internal/runner"
	"wattwise/internal/store"
	"wattwise/internal/tools"
	"wattwise/internal/weather"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the engine's YAML configuration")
	systemID := flag.String("system-id", "", "System identifier to assess")
	snapshotPath := flag.String("snapshot", "", "Path to a JSON-encoded BMS snapshot (defaults to stdin)")
	userPrompt := flag.String("prompt", "", "Optional operator question; defaults to the standing mission")
	mode := flag.String("mode", assembler.ModeSync, "sync|background")
	flag.Parse()

	if *systemID == "" {
		fmt.Fprintln(os.Stderr, "usage: insights -system-id <id> [-snapshot file.json] [-prompt \"...\"] [-mode sync|background]")
		os.Exit(2)
	}

	if err := run(*configPath, *systemID, *snapshotPath, *userPrompt, *mode); err != nil {
		log.Fatal().Err(err).Msg("insights")
	}
}

func run(configPath, systemID, snapshotPath, userPrompt, mode string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	observability.InitLogger(cfg.Logging.LogPath, cfg.Logging.Level)
	log.Info().Str("systemId", systemID).Str("mode", mode).Msg("insights starting")

	baseCtx := context.Background()
	shutdown, err := observability.InitOTel(baseCtx, cfg.OTel)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
	} else if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	httpClient := observability.NewHTTPClient(nil)

	st, closeStore, err := buildStore(baseCtx, *cfg)
	if err != nil {
		return fmt.Errorf("building store: %w", err)
	}
	defer closeStore()

	weatherClient := weather.New(cfg.Weather, httpClient)

	llmProvider, err := providers.Build(*cfg, httpClient)
	if err != nil {
		return fmt.Errorf("building llm provider: %w", err)
	}

	registry := tools.NewCatalog(st, weatherClient)

	snapshot, err := readSnapshot(snapshotPath)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	deps := engine.Deps{
		Assembler: &assembler.Assembler{Store: st, Weather: weatherClient},
		LLM:       llmProvider,
		Tools:     registry,
		Model:     cfg.LLM.Model,
		RunnerOptions: runner.Options{
			MaxIterations:          cfg.Runner.MaxIterations,
			IterationTimeout:       cfg.Runner.IterationTimeout,
			TotalTimeout:           cfg.Runner.TotalTimeout,
			ConversationTokenLimit: cfg.Runner.ConversationTokenLimit,
			TokensPerChar:          cfg.Runner.TokensPerChar,
		},
	}

	assemblerBudget := cfg.Assembler.SyncBudget
	if mode == assembler.ModeBackground {
		assemblerBudget = cfg.Assembler.BackgroundBudget
	}

	result, err := engine.Generate(baseCtx, deps, engine.Input{
		SystemID:        systemID,
		Snapshot:        snapshot,
		UserPrompt:      userPrompt,
		Mode:            mode,
		AssemblerBudget: assemblerBudget,
		Hooks:           loggingHooks(),
	})
	if err != nil {
		return fmt.Errorf("generating insights: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// buildStore prefers the Postgres-backed adapter when a connection string
// is configured, falling back to the in-memory adapter for local/offline
// runs; the returned close func is always safe to defer.
func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.Database.ConnectionString == "" {
		mem := store.NewMemoryStore()
		return mem, func() { mem.Close() }, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.ConnectionString)
	if err != nil {
		return nil, func() {}, fmt.Errorf("parsing database connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening database pool: %w", err)
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.Init(ctx); err != nil {
		pg.Close()
		return nil, func() {}, fmt.Errorf("initializing schema: %w", err)
	}
	return pg, pg.Close, nil
}

func readSnapshot(path string) (domain.Snapshot, error) {
	var r *os.File
	if path == "" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return domain.Snapshot{}, err
		}
		defer f.Close()
		r = f
	}

	var snapshot domain.Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decoding snapshot JSON: %w", err)
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	return snapshot, nil
}

// loggingHooks gives a CLI invocation visible progress without requiring a
// caller-supplied hook set; every hook here is best-effort by contract.
func loggingHooks() runner.Hooks {
	return runner.Hooks{
		OnIterationStart: func(iteration int) {
			log.Debug().Int("iteration", iteration).Msg("iteration start")
		},
		OnToolCall: func(iteration int, toolName string, params json.RawMessage) {
			log.Info().Int("iteration", iteration).Str("tool", toolName).Msg("tool call")
		},
		OnToolResult: func(iteration int, toolName string, result json.RawMessage, toolErr string) {
			ev := log.Debug().Int("iteration", iteration).Str("tool", toolName)
			if toolErr != "" {
				ev = log.Warn().Int("iteration", iteration).Str("tool", toolName).Str("error", toolErr)
			}
			ev.Msg("tool result")
		},
		OnFinalAnswer: func(text string) {
			log.Info().Int("chars", len(text)).Msg("final answer received")
		},
		OnError: func(err error) {
			log.Error().Err(err).Msg("runner error")
		},
	}
}
