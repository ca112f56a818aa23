package domain

import (
	"fmt"
	"time"
)

// Generation modes
const (
	ModeGenerate = "generate"
	ModeChat     = "chat"
)

// GenerationConfig holds the knobs for a single generation call.
// Workers read it as a snapshot; use Clone before sharing.
type GenerationConfig struct {
	ModelID     string        `json:"model_id"`
	Temperature float64       `json:"temperature"` // 0.0-2.0, not clamped
	MaxTokens   int           `json:"max_tokens"`
	Workers     int           `json:"max_workers"`
	Timeout     time.Duration `json:"timeout"`
	UseCache    bool          `json:"use_cache"`
	Mode        string        `json:"mode"` // "generate" or "chat"
}

// DefaultGenerationConfig returns the defaults used when nothing is configured
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		ModelID:     "gemma2:2b",
		Temperature: 0.7,
		MaxTokens:   500,
		Workers:     2,
		Timeout:     60 * time.Second,
		UseCache:    true,
		Mode:        ModeGenerate,
	}
}

// Clone returns an independent copy of the config
func (c GenerationConfig) Clone() GenerationConfig {
	return c
}

// GenerationResult is the outcome of one generation attempt.
// It is built once and never mutated afterwards.
type GenerationResult struct {
	Product        Product       `json:"product"`
	Description    string        `json:"description"`
	Success        bool          `json:"success"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	GenerationTime time.Duration `json:"generation_time,omitempty"`
	ModelUsed      string        `json:"model_used,omitempty"`
	FromCache      bool          `json:"from_cache"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewSuccessResult builds a successful result
func NewSuccessResult(p Product, description, model string, elapsed time.Duration) GenerationResult {
	return GenerationResult{
		Product:        p,
		Description:    description,
		Success:        true,
		GenerationTime: elapsed,
		ModelUsed:      model,
		CreatedAt:      time.Now(),
	}
}

// NewFailureResult builds a failed result carrying a human-readable message
func NewFailureResult(p Product, err error, elapsed time.Duration) GenerationResult {
	msg := "description generation failed"
	if err != nil {
		msg = err.Error()
	}
	return GenerationResult{
		Product:        p,
		Success:        false,
		ErrorMessage:   msg,
		GenerationTime: elapsed,
		CreatedAt:      time.Now(),
	}
}

// CacheEntry is what the result cache keeps for a fingerprint.
// Only derived fields are stored; the product comes from the caller.
type CacheEntry struct {
	Description    string        `json:"description"`
	StoredAt       time.Time     `json:"timestamp"`
	GenerationTime time.Duration `json:"generation_time"`
	ModelUsed      string        `json:"model_used"`
}

// ToResult rebuilds a result for the caller-supplied product
func (e CacheEntry) ToResult(p Product) GenerationResult {
	return GenerationResult{
		Product:        p,
		Description:    e.Description,
		Success:        true,
		GenerationTime: e.GenerationTime,
		ModelUsed:      e.ModelUsed,
		FromCache:      true,
		CreatedAt:      time.Now(),
	}
}

// CacheStats reports the state of the result cache
type CacheStats struct {
	Size           int     `json:"size"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRate        float64 `json:"hit_rate"` // percentage
	TTLHours       float64 `json:"ttl_hours"`
	StoreKind      string  `json:"store_kind"`
	StoreLocation  string  `json:"store_location,omitempty"`
	StoreExists    bool    `json:"file_exists"`
	StoreSizeBytes int64   `json:"file_size_bytes"`
	StoreSize      string  `json:"file_size"`
}

// StoreInfo describes a persisted cache store
type StoreInfo struct {
	Kind      string
	Location  string
	Exists    bool
	SizeBytes int64
}

// AIModel is a catalog entry merged with the backend's installed inventory
type AIModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        string `json:"size"`
	Speed       string `json:"speed"`
	Quality     string `json:"quality"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended"`
	Installed   bool   `json:"installed"`
}

// ChatMessage is one turn of a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PullProgress is a status event emitted while a model downloads
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Percent returns the download completion percentage, or 0 when unknown
func (p PullProgress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// PromptSet is the active prompt template plus system prompt
type PromptSet struct {
	Template  string    `json:"template" yaml:"template"`
	System    string    `json:"system" yaml:"system"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	Processed  int `json:"total_processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	FromCache  int `json:"from_cache"`
}

// Summarize scans results and counts outcomes
func Summarize(results []GenerationResult) BatchSummary {
	s := BatchSummary{Processed: len(results)}
	for _, r := range results {
		if r.Success {
			s.Successful++
			if r.FromCache {
				s.FromCache++
			}
		} else {
			s.Failed++
		}
	}
	return s
}

func (s BatchSummary) String() string {
	return fmt.Sprintf("%d/%d succeeded (%d from cache)", s.Successful, s.Processed, s.FromCache)
}
