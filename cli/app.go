// Shared wiring for CLI commands.
//
// Information Hiding:
// - Settings loading and provider factory construction hidden
// - Vector store and model cache selection hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/prachwal/rag07/config"
	"github.com/prachwal/rag07/internal/logging"
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
)

// Options holds the persistent flags shared by every command.
type Options struct {
	ConfigPath     string
	Provider       string
	Model          string
	VectorProvider string
	Collection     string
	Verbose        bool
	Out            io.Writer
}

// App is everything a command needs: settings, a provider factory, the
// vector store and a logger.
type App struct {
	Settings   *config.Settings
	Factory    *llm.Factory
	Store      storage.VectorStore
	Cache      llm.ModelCache
	Logger     zerolog.Logger
	Out        io.Writer
	Provider   string
	Collection string
	// Dimension is the embedding length the store expects; 0 accepts any.
	Dimension int

	closeLogger func()
}

// Open loads settings and opens the configured vector store.
// Callers must Close the app.
func Open(opts Options) (*App, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := settings.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, closeLogger := logging.New(logging.Options{Level: level, Format: settings.LogFormat})

	vectorName := opts.VectorProvider
	if vectorName == "" {
		vectorName = settings.DefaultVectorProvider
	}
	vectorSettings, err := settings.VectorProvider(vectorName)
	if err != nil {
		closeLogger()
		return nil, err
	}
	store, err := openStore(vectorSettings)
	if err != nil {
		closeLogger()
		return nil, err
	}

	var cache llm.ModelCache
	if s, ok := store.(*storage.SqliteStore); ok {
		cache = s.ModelCache(settings.ModelCacheTTL)
	} else {
		cache = storage.NewMemoryModelCache(settings.ModelCacheTTL)
	}

	providerName := opts.Provider
	if providerName == "" {
		providerName = settings.DefaultLLMProvider
	}
	configs := settings.ProviderConfigs()
	if opts.Model != "" {
		if p, err := settings.LLMProvider(providerName); err == nil {
			cfg := configs[p.Name]
			cfg.DefaultModel = opts.Model
			configs[p.Name] = cfg
		}
	}

	collection := opts.Collection
	if collection == "" {
		collection = vectorSettings.DefaultCollection
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger.Debug().
		Str("provider", providerName).
		Str("vector_provider", store.Name()).
		Str("collection", collection).
		Msg("app_initialized")

	return &App{
		Settings:    settings,
		Factory:     llm.NewFactory(configs, llm.Deps{Cache: cache, Logger: logger}),
		Store:       store,
		Cache:       cache,
		Logger:      logger,
		Out:         out,
		Provider:    providerName,
		Collection:  collection,
		Dimension:   vectorSettings.Dimension,
		closeLogger: closeLogger,
	}, nil
}

func openStore(s config.VectorProviderSettings) (storage.VectorStore, error) {
	switch s.Name {
	case config.VectorSqlite:
		store, err := storage.OpenSqlite(s.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		return store, nil
	case config.VectorMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, llm.NewConfigurationError("unsupported vector provider: %s", s.Name)
	}
}

// Generator creates the selected provider.
func (a *App) Generator() (llm.TextGenerator, error) {
	return a.Factory.Create(a.Provider)
}

// Context carries the app logger.
func (a *App) Context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.Logger)
}

// Close releases the store and flushes the logger.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close vector store")
		}
	}
	if a.closeLogger != nil {
		a.closeLogger()
	}
}
