package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
	"github.com/lucasrcosta20/IA-Cadastro/internal/infrastructure/cache"
)

// DefaultWorkers is used when neither the caller nor the config sets a worker limit
const DefaultWorkers = 2

var glog = log.WithField("component", "generator")

// testProduct is the sample used by TestGeneration
var testProduct = domain.Product{
	Name:                "Vaso Decorativo Teste",
	Material:            "Cerâmica",
	Color:               "Branco",
	SupplierDescription: "Vaso moderno para decoração",
	Category1:           "Decoração",
	Category2:           "Casa",
}

// ProgressFunc receives the number of finished items and the batch size
type ProgressFunc func(completed, total int)

// DescriptionServiceConfig holds configuration for the description service
type DescriptionServiceConfig struct {
	Generation domain.GenerationConfig
}

// ConfigPatch carries a partial update of the generation config; nil fields are kept
type ConfigPatch struct {
	ModelID        *string  `json:"model_id,omitempty" validate:"omitempty,min=1"`
	Temperature    *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0"`
	MaxTokens      *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Workers        *int     `json:"max_workers,omitempty" validate:"omitempty,gt=0"`
	TimeoutSeconds *int     `json:"timeout_seconds,omitempty" validate:"omitempty,gt=0"`
	UseCache       *bool    `json:"use_cache,omitempty"`
	Mode           *string  `json:"mode,omitempty" validate:"omitempty,oneof=generate chat"`
}

// ServiceStats reports the generator state
type ServiceStats struct {
	CacheSize      int               `json:"cache_size"`
	CacheHits      int64             `json:"cache_hits"`
	CacheMisses    int64             `json:"cache_misses"`
	HitRate        float64           `json:"hit_rate"`
	ModelAvailable bool              `json:"model_available"`
	CurrentModel   string            `json:"current_model"`
	MaxWorkers     int               `json:"max_workers"`
	Cache          domain.CacheStats `json:"cache"`
}

// DescriptionService runs the generation pipeline: cache lookup, prompt
// rendering, backend call and cache store, for one product or a batch.
type DescriptionService struct {
	cache    domain.ResultCache
	client   domain.GenerationClient
	renderer domain.PromptRenderer
	validate *validator.Validate

	mu     sync.RWMutex
	config domain.GenerationConfig
}

// NewDescriptionService creates a new description service with dependencies
func NewDescriptionService(
	resultCache domain.ResultCache,
	client domain.GenerationClient,
	renderer domain.PromptRenderer,
	config DescriptionServiceConfig,
) *DescriptionService {
	cfg := config.Generation
	defaults := domain.DefaultGenerationConfig()
	if cfg.ModelID == "" {
		cfg.ModelID = defaults.ModelID
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeGenerate
	}

	return &DescriptionService{
		cache:    resultCache,
		client:   client,
		renderer: renderer,
		validate: validator.New(),
		config:   cfg,
	}
}

// Config returns a snapshot of the generation config
func (s *DescriptionService) Config() domain.GenerationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// UpdateConfig applies patch and returns the resulting config.
// Running batches keep the snapshot they started with.
func (s *DescriptionService) UpdateConfig(patch ConfigPatch) (domain.GenerationConfig, error) {
	if err := s.validate.Struct(patch); err != nil {
		return s.Config(), fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := log.Fields{}
	if patch.ModelID != nil {
		s.config.ModelID = *patch.ModelID
		fields["model_id"] = *patch.ModelID
	}
	if patch.Temperature != nil {
		s.config.Temperature = *patch.Temperature
		fields["temperature"] = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		s.config.MaxTokens = *patch.MaxTokens
		fields["max_tokens"] = *patch.MaxTokens
	}
	if patch.Workers != nil {
		s.config.Workers = *patch.Workers
		fields["max_workers"] = *patch.Workers
	}
	if patch.TimeoutSeconds != nil {
		s.config.Timeout = time.Duration(*patch.TimeoutSeconds) * time.Second
		fields["timeout"] = s.config.Timeout.String()
	}
	if patch.UseCache != nil {
		s.config.UseCache = *patch.UseCache
		fields["use_cache"] = *patch.UseCache
	}
	if patch.Mode != nil {
		s.config.Mode = *patch.Mode
		fields["mode"] = *patch.Mode
	}

	if len(fields) > 0 {
		glog.WithFields(fields).Info("config updated")
	}
	return s.config.Clone(), nil
}

// GenerateOne generates a description for a single product.
// It always returns a result; failures are reported through Success and ErrorMessage.
func (s *DescriptionService) GenerateOne(ctx context.Context, p domain.Product, useCache bool) domain.GenerationResult {
	return s.generate(ctx, p, useCache, s.Config())
}

// generate runs the single-item pipeline with a fixed config.
// When useCache is false the lookup is skipped but a success still refreshes the entry.
func (s *DescriptionService) generate(ctx context.Context, p domain.Product, useCache bool, cfg domain.GenerationConfig) (result domain.GenerationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic: %v", r)
			glog.WithField("product", p.Name).Errorf("recovered while generating description: %+v", err)
			result = domain.NewFailureResult(p, fmt.Errorf("%w: %v", domain.ErrItemPanicked, r), time.Since(start))
		}
	}()

	if err := p.Validate(); err != nil {
		return domain.NewFailureResult(p, err, time.Since(start))
	}

	key := cache.Fingerprint(p)
	if useCache {
		if entry, ok := s.cache.Lookup(key); ok {
			glog.WithField("product", p.Name).Debug("cache hit")
			return entry.ToResult(p)
		}
	}

	text, err := s.call(ctx, p, cfg)
	if err != nil {
		glog.WithError(err).WithField("product", p.Name).Warn("description generation failed")
		return domain.NewFailureResult(p, err, time.Since(start))
	}

	result = domain.NewSuccessResult(p, text, cfg.ModelID, time.Since(start))
	s.cache.Store(key, result)

	glog.WithFields(log.Fields{
		"product": p.Name,
		"elapsed": result.GenerationTime.Round(time.Millisecond).String(),
	}).Info("description generated")
	return result
}

func (s *DescriptionService) call(ctx context.Context, p domain.Product, cfg domain.GenerationConfig) (string, error) {
	prompt := s.renderer.Render(p)

	if cfg.Mode == domain.ModeChat {
		messages := []domain.ChatMessage{
			{Role: "system", Content: s.renderer.SystemPrompt()},
			{Role: "user", Content: prompt},
		}
		return s.client.Chat(ctx, messages, cfg)
	}
	return s.client.Generate(ctx, prompt, cfg)
}

// GenerateBatch generates descriptions for products using at most workerLimit
// concurrent workers. Results keep the input order. onProgress (may be nil) is
// called once per finished item with a strictly increasing count.
//
// Cancelling ctx stops new items from starting; they are returned as failures.
// Items already running are not interrupted.
func (s *DescriptionService) GenerateBatch(ctx context.Context, products []domain.Product, workerLimit int, onProgress ProgressFunc) []domain.GenerationResult {
	cfg := s.Config()
	return s.runBatch(ctx, products, workerLimit, cfg.UseCache, cfg, onProgress)
}

func (s *DescriptionService) runBatch(
	ctx context.Context,
	products []domain.Product,
	workerLimit int,
	useCache bool,
	cfg domain.GenerationConfig,
	onProgress ProgressFunc,
) []domain.GenerationResult {
	total := len(products)
	results := make([]domain.GenerationResult, total)
	if total == 0 {
		return results
	}

	workers := effectiveWorkers(workerLimit, cfg.Workers, total)
	blog := glog.WithFields(log.Fields{
		"batch":   uuid.NewString(),
		"items":   total,
		"workers": workers,
	})
	blog.Info("starting batch")
	start := time.Now()

	var (
		progressMu sync.Mutex
		completed  int
	)
	report := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		completed++
		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	// Running items outlive a cancelled batch
	itemCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(workers)

	for i, p := range products {
		if ctx.Err() != nil {
			results[i] = domain.NewFailureResult(p, domain.ErrBatchCancelled, 0)
			report()
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = domain.NewFailureResult(p, domain.ErrBatchCancelled, 0)
			} else {
				results[i] = s.generate(itemCtx, p, useCache, cfg)
			}
			report()
			return nil
		})
	}
	_ = g.Wait()

	summary := domain.Summarize(results)
	blog.WithFields(log.Fields{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"from_cache": summary.FromCache,
		"elapsed":    time.Since(start).Round(time.Millisecond).String(),
	}).Info("batch finished")

	return results
}

// effectiveWorkers resolves the worker count: non-positive limits use the
// configured default, and the count never exceeds the number of items
func effectiveWorkers(limit, configured, items int) int {
	workers := limit
	if workers <= 0 {
		workers = configured
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > items {
		workers = items
	}
	return workers
}

// backoffDelay doubles base for every attempt after the first
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

// RetryFailed re-runs failed results without consulting the cache, up to
// attempts rounds, waiting an exponentially growing delay before each round.
// Successful results are left untouched. The returned slice keeps the input order.
func (s *DescriptionService) RetryFailed(ctx context.Context, results []domain.GenerationResult, attempts int, backoff time.Duration) []domain.GenerationResult {
	out := make([]domain.GenerationResult, len(results))
	copy(out, results)

	cfg := s.Config()
	for attempt := 1; attempt <= attempts; attempt++ {
		var (
			indexes  []int
			products []domain.Product
		)
		for i, r := range out {
			if !r.Success {
				indexes = append(indexes, i)
				products = append(products, r.Product)
			}
		}
		if len(indexes) == 0 {
			break
		}

		delay := backoffDelay(backoff, attempt)
		glog.WithFields(log.Fields{
			"attempt": attempt,
			"items":   len(indexes),
			"delay":   delay.String(),
		}).Info("retrying failed items")

		select {
		case <-ctx.Done():
			return out
		case <-time.After(delay):
		}

		retried := s.runBatch(ctx, products, cfg.Workers, false, cfg, nil)
		for j, i := range indexes {
			out[i] = retried[j]
		}
	}

	return out
}

// Stats reports cache counters, the active model and backend availability
func (s *DescriptionService) Stats(ctx context.Context) ServiceStats {
	cfg := s.Config()
	cs := s.cache.Stats()
	return ServiceStats{
		CacheSize:      cs.Size,
		CacheHits:      cs.Hits,
		CacheMisses:    cs.Misses,
		HitRate:        cs.HitRate,
		ModelAvailable: s.client.IsAvailable(ctx),
		CurrentModel:   cfg.ModelID,
		MaxWorkers:     cfg.Workers,
		Cache:          cs,
	}
}

// CacheStats returns the result cache statistics
func (s *DescriptionService) CacheStats() domain.CacheStats {
	return s.cache.Stats()
}

// ClearCache empties the result cache and its persisted store
func (s *DescriptionService) ClearCache() error {
	return s.cache.Clear()
}

// PruneCache evicts expired entries and returns how many were removed
func (s *DescriptionService) PruneCache() int {
	return s.cache.EvictExpired()
}

// IsAvailable reports whether the generation backend answers
func (s *DescriptionService) IsAvailable(ctx context.Context) bool {
	return s.client.IsAvailable(ctx)
}

// ListModels returns the model catalog with installation status
func (s *DescriptionService) ListModels(ctx context.Context) []domain.AIModel {
	return s.client.ListModels(ctx)
}

// PullModel downloads a model on the backend
func (s *DescriptionService) PullModel(ctx context.Context, modelID string, onProgress func(domain.PullProgress)) bool {
	return s.client.PullModel(ctx, modelID, onProgress)
}

// TestGeneration generates a description for a fixed sample product, bypassing the cache lookup
func (s *DescriptionService) TestGeneration(ctx context.Context) domain.GenerationResult {
	return s.GenerateOne(ctx, testProduct, false)
}
