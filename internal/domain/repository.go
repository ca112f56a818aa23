package domain

import "context"

// ResultCache defines the content-addressed cache of successful generations
type ResultCache interface {
	Lookup(key string) (CacheEntry, bool)
	Store(key string, result GenerationResult)
	EvictExpired() int
	Clear() error
	Stats() CacheStats
}

// CacheStore persists the full cache state between runs
type CacheStore interface {
	Load(ctx context.Context) (map[string]CacheEntry, error)
	Save(ctx context.Context, entries map[string]CacheEntry) error
	Remove(ctx context.Context) error
	Info() StoreInfo
	Close() error
}

// GenerationClient defines the interface for talking to the text-generation backend
type GenerationClient interface {
	IsAvailable(ctx context.Context) bool
	ListModels(ctx context.Context) []AIModel
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
	Chat(ctx context.Context, messages []ChatMessage, cfg GenerationConfig) (string, error)
	PullModel(ctx context.Context, modelID string, onProgress func(PullProgress)) bool
}

// PromptRenderer turns a product into the request text
type PromptRenderer interface {
	Render(p Product) string
	SystemPrompt() string
}

// PromptStore persists the prompt configuration
type PromptStore interface {
	Load() (PromptSet, error)
	Save(set PromptSet) error
}
