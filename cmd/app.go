package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/ai"
	"github.com/spigell/candidate-scout/internal/ai/gemini"
	"github.com/spigell/candidate-scout/internal/intent"
	"github.com/spigell/candidate-scout/internal/logger"
	"github.com/spigell/candidate-scout/internal/providers"
	"github.com/spigell/candidate-scout/internal/secrets"
	"github.com/spigell/candidate-scout/internal/sourcing"
	"github.com/spigell/candidate-scout/internal/state"
)

const envGeminiKey = "GEMINI_API_KEY"

// scout is everything a command needs to run a search.
type scout struct {
	config     *Config
	logger     *zap.Logger
	sources    *providers.Set
	state      *state.Store
	aggregator *sourcing.Aggregator
	parser     intent.Parser
}

func newLogger() *zap.Logger {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return logger
}

// newScout loads the config and wires providers, the AI layer, the cache and the state store.
func newScout(ctx context.Context, log *zap.Logger) (*scout, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", redact(string(pretty))))

	sources, err := providers.Build(config.Providers, log)
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}

	store := state.New(config.State.Path, state.WithMaxHistory(config.State.MaxHistory))
	if err := store.Load(); err != nil {
		log.Warn("state file is unreadable, starting fresh", zap.Error(err))
	}

	opts := []sourcing.Option{
		sourcing.WithProviders(sources.Providers...),
		sourcing.WithLogger(log),
		sourcing.WithProviderTimeout(config.Search.Timeout),
		sourcing.WithConcurrency(config.Search.Concurrency),
		sourcing.WithRecorder(store),
	}
	if config.Cache.Enabled {
		opts = append(opts, sourcing.WithCache(sourcing.NewCache(config.Cache.Size, config.Cache.TTL)))
	}

	var parser intent.Parser = intent.Heuristic{}
	ranker, modelParser, err := newAI(ctx, config.AI, log)
	if err != nil {
		log.Warn("skipping AI ranking", zap.Error(err))
	}
	if ranker != nil {
		opts = append(opts, sourcing.WithRanker(ranker, config.AI.BatchSize, config.AI.Timeout))
		parser = ai.FallbackParser{Primary: modelParser, Fallback: intent.Heuristic{}, Logger: log}
	}

	return &scout{
		config:     config,
		logger:     log,
		sources:    sources,
		state:      store,
		aggregator: sourcing.New(opts...),
		parser:     parser,
	}, nil
}

// newAI returns nil values when AI is disabled.
func newAI(ctx context.Context, cfg *AIConfig, log *zap.Logger) (sourcing.Ranker, intent.Parser, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   envGeminiKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or %s)", err, envGeminiKey)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, nil, err
	}

	aiLogger := logger.WithCommonFields(log, gemini.Provider, generator.Model())
	ranker := gemini.NewRanker(generator, cfg.Gemini.MaxLogLength, aiLogger)
	parser := gemini.NewIntentParser(generator, cfg.Gemini.MaxLogLength, aiLogger)

	return ranker, parser, nil
}

// save flushes the state store; failures are logged only.
func (r *scout) save() {
	if err := r.state.Save(); err != nil {
		r.logger.Warn("saving state", zap.Error(err))
	}
}

var secretKeys = []string{`"key":`, `"apikey":`, `"password":`, `"dsn":`}

// redact masks non-empty secret values in the indented config dump.
func redact(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		for _, key := range secretKeys {
			if strings.HasPrefix(trimmed, key) && strings.TrimSuffix(strings.TrimSpace(trimmed[len(key):]), ",") != `""` {
				lines[i] = line[:strings.Index(line, ":")+1] + ` "***"`
			}
		}
	}
	return strings.Join(lines, "\n")
}
