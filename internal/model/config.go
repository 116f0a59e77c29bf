package model

import "time"

// Config holds the complete reportwatch configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Render       RenderConfig      `yaml:"render" mapstructure:"render"`
	Storage      StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Summarizer   SummarizerConfig  `yaml:"summarizer" mapstructure:"summarizer"`
	Schedule     ScheduleConfig    `yaml:"schedule" mapstructure:"schedule"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Telemetry    TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
	Sources      []Source          `yaml:"sources,omitempty" mapstructure:"sources"`
}

// HTTPConfig configures static listing fetches and document downloads
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"` // Listing pages only; documents are written in full
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RenderConfig configures the headless browser used for rendered sources
type RenderConfig struct {
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"` // Bound on waiting for <body>
	Headless bool          `yaml:"headless" mapstructure:"headless"`
	ExecPath string        `yaml:"exec_path,omitempty" mapstructure:"exec_path"` // Chrome/Edge binary; auto-detected when empty
}

// StorageConfig configures the on-disk layout
type StorageConfig struct {
	Root       string `yaml:"root" mapstructure:"root"`               // Downloaded documents: <root>/<folder>/<file>
	SummaryDir string `yaml:"summary_dir" mapstructure:"summary_dir"` // Reports: <root>/<summary_dir>/<folder>/<file>.txt
}

// SummarizerConfig configures the chunked summarization model
type SummarizerConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // huggingface, openai, anthropic, ollama
	Model          string `yaml:"model" mapstructure:"model"` // empty: the provider's default model
	APIKey         string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds per chunk call
	ChunkSentences int    `yaml:"chunk_sentences" mapstructure:"chunk_sentences"`
	MinTokens      int    `yaml:"min_tokens" mapstructure:"min_tokens"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ScheduleConfig configures the background scheduler
type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
	RunOnStart bool          `yaml:"run_on_start" mapstructure:"run_on_start"`
}

// ServerConfig configures the web UI
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// CacheConfig configures listing-page caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig throttles document downloads per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig bounds how many sources run at once
type ConcurrencyConfig struct {
	Sources int `yaml:"sources" mapstructure:"sources"`
}

// TelemetryConfig toggles OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "Mozilla/5.0 (compatible; reportwatch/0.1; +https://github.com/ppiankov/reportwatch)",
			MaxBodyBytes: 5_000_000,
		},
		Render: RenderConfig{
			Timeout:  60 * time.Second,
			Headless: true,
		},
		Storage: StorageConfig{
			Root:       "reports",
			SummaryDir: "summarized_reports",
		},
		Summarizer: SummarizerConfig{
			Provider:       "huggingface",
			Timeout:        120,
			ChunkSentences: 20,
			MinTokens:      50,
			MaxTokens:      150,
		},
		Schedule: ScheduleConfig{
			Interval: 120 * time.Minute,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:5000",
		},
		Cache: CacheConfig{
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Concurrency: ConcurrencyConfig{
			Sources: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Sources: DefaultSources(),
	}
}
