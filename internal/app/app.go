// Package app wires configuration into the cache, backend client, prompt
// templater and description service shared by the server and the CLI.
package app

import (
	"fmt"

	"github.com/apex/log"

	"github.com/lucasrcosta20/IA-Cadastro/config"
	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
	"github.com/lucasrcosta20/IA-Cadastro/internal/infrastructure/cache"
	"github.com/lucasrcosta20/IA-Cadastro/internal/infrastructure/ollama"
	"github.com/lucasrcosta20/IA-Cadastro/internal/infrastructure/promptstore"
	"github.com/lucasrcosta20/IA-Cadastro/internal/usecase"
)

// App holds the long-lived components built from a Config
type App struct {
	Config    *config.Config
	Cache     *cache.ResultCache
	Client    *ollama.Client
	Templater *usecase.PromptTemplater
	Service   *usecase.DescriptionService
}

// New builds every component described by cfg
func New(cfg *config.Config) (*App, error) {
	store, err := cache.NewStore(cfg.Cache.Store, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	resultCache := cache.NewResultCache(store,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithPersistEvery(cfg.Cache.PersistEvery),
		cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
	)

	client, err := ollama.NewClient(ollama.Config{
		BaseURL:           cfg.Ollama.BaseURL,
		ProbeTimeout:      cfg.Ollama.ProbeTimeout,
		PullTimeout:       cfg.Ollama.PullTimeout,
		RequestsPerSecond: cfg.Ollama.RequestsPerSecond,
	})
	if err != nil {
		resultCache.Close()
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	templater := usecase.NewPromptTemplater(promptstore.New(cfg.Prompts.Path))

	service := usecase.NewDescriptionService(resultCache, client, templater, usecase.DescriptionServiceConfig{
		Generation: GenerationConfig(cfg),
	})

	log.WithFields(log.Fields{
		"ollama":      client.BaseURL(),
		"model":       cfg.Generation.Model,
		"cache_store": cfg.Cache.Store,
		"cache_ttl":   cfg.Cache.TTL.String(),
		"prompts":     cfg.Prompts.Path,
	}).Debug("components initialized")

	return &App{
		Config:    cfg,
		Cache:     resultCache,
		Client:    client,
		Templater: templater,
		Service:   service,
	}, nil
}

// GenerationConfig maps the configured generation defaults to the domain type
func GenerationConfig(cfg *config.Config) domain.GenerationConfig {
	return domain.GenerationConfig{
		ModelID:     cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Workers:     cfg.Generation.Workers,
		Timeout:     cfg.Generation.Timeout,
		UseCache:    cfg.Generation.UseCache,
		Mode:        cfg.Generation.Mode,
	}
}

// Close flushes the result cache and releases its store
func (a *App) Close() error {
	return a.Cache.Close()
}
