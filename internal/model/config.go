package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	Index       IndexConfig       `yaml:"index" json:"index"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Extraction  ExtractionConfig  `yaml:"extraction" json:"extraction"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// IndexConfig controls tokenization, chunking and BM25 scoring
type IndexConfig struct {
	K1        float64 `yaml:"k1" json:"k1"`               // BM25 term-frequency saturation
	B         float64 `yaml:"b" json:"b"`                 // BM25 length normalization
	Separator string  `yaml:"separator" json:"separator"` // Paragraph boundary for chunking
	Path      string  `yaml:"path" json:"path"`           // Persisted index bundle location
}

// RetrievalConfig controls the hybrid retrieval stage.
// PoolMultiplier and FuzzyDivisor carry the stock defaults; they are
// tuning parameters, not constants known to be optimal.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k" json:"top_k"`
	PoolMultiplier int     `yaml:"pool_multiplier" json:"pool_multiplier"` // Candidate pool = multiplier * k
	FuzzyDivisor   float64 `yaml:"fuzzy_divisor" json:"fuzzy_divisor"`     // combined = bm25 + fuzzy/divisor
}

// LLMConfig configures the generation provider
type LLMConfig struct {
	Provider  string  `yaml:"provider" json:"provider"` // openai, anthropic, ollama, "" = disabled
	Model     string  `yaml:"model" json:"model"`
	APIKey    string  `yaml:"api_key" json:"-"`
	BaseURL   string  `yaml:"base_url" json:"base_url"`
	Timeout   int     `yaml:"timeout" json:"timeout"` // Per-call timeout, seconds
	MaxTokens int     `yaml:"max_tokens" json:"max_tokens"`
	RPS       float64 `yaml:"rps" json:"rps"` // Generation rate limit, requests/second
	Burst     int     `yaml:"burst" json:"burst"`
}

// ExtractionConfig controls the grounded answering stages
type ExtractionConfig struct {
	QuoteWordCap int           `yaml:"quote_word_cap" json:"quote_word_cap"` // Max words per fact quotation
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`       // Retries per generation call
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`   // Base backoff between retries
}

// CacheConfig controls answer caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose     bool `yaml:"verbose" json:"verbose"`
	IncludeMeta bool `yaml:"include_meta" json:"include_meta"` // Provider/model/timestamps in Markdown reports
}

// DefaultConfig returns the stock configuration
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			K1:        1.5,
			B:         0.75,
			Separator: "\n\n",
			Path:      "index.json",
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			PoolMultiplier: 3,
			FuzzyDivisor:   20.0,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 1000,
			RPS:       2,
			Burst:     4,
		},
		Extraction: ExtractionConfig{
			QuoteWordCap: 25,
			MaxRetries:   2,
			RetryBackoff: time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			IncludeMeta: true,
		},
	}
}
