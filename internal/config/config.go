package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = "8080"
	defaultPublicURL     = "http://localhost:8080"
	defaultMaxUploadMB   = 25
	defaultProvider      = "openai"
	defaultBaseURL       = "https://api.groq.com/openai/v1"
	defaultModel         = "llama3-70b-8192"
	defaultChunkSize     = 10000 // characters
	defaultChunkOverlap  = 1000  // characters
	defaultSplitter      = "window"
	defaultFetchTimeout  = 60 // seconds
	defaultStorageDriver = "local"
	defaultStorageDir    = "./data/blobs"
	defaultLogLevel      = "info"
	providerOllama       = "ollama"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Summary  SummaryConfig  `yaml:"summary"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	PublicURL   string `yaml:"public_url"`
	GinMode     string `yaml:"gin_mode"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// LLMConfig selects the chat model used for both chunk extraction and synthesis.
type LLMConfig struct {
	Provider          string  `yaml:"provider"` // openai | ollama
	BaseURL           string  `yaml:"base_url"`
	Key               string  `yaml:"key"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxConcurrency    int     `yaml:"max_concurrency"`
}

type SummaryConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap *int   `yaml:"chunk_overlap"` // nil means default; 0 is a valid window
	Splitter     string `yaml:"splitter"`      // window | recursive
}

// Overlap returns the configured chunk overlap, or the default when unset.
func (s SummaryConfig) Overlap() int {
	if s.ChunkOverlap == nil {
		return defaultChunkOverlap
	}
	return *s.ChunkOverlap
}

type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // local | postgres
	Dir    string `yaml:"dir"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// LoadConfig reads the yaml file at path, applies environment overrides and
// fills defaults. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PORT", &c.Server.Port},
		{"PUBLIC_URL", &c.Server.PublicURL},
		{"LLM_PROVIDER", &c.LLM.Provider},
		{"LLM_BASE_URL", &c.LLM.BaseURL},
		{"LLM_API_KEY", &c.LLM.Key},
		{"LLM_MODEL", &c.LLM.Model},
		{"DATABASE_URL", &c.Database.DSN},
		{"DATABASE_PASSWORD", &c.Database.Password},
		{"STORAGE_DRIVER", &c.Storage.Driver},
		{"STORAGE_DIR", &c.Storage.Dir},
		{"LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
	if os.Getenv("DATABASE_URL") != "" {
		c.Database.Enabled = true
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = defaultPublicURL
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultProvider
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.BaseURL == "" && c.LLM.Provider != providerOllama {
		c.LLM.BaseURL = defaultBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}

	if c.Summary.ChunkSize == 0 {
		c.Summary.ChunkSize = defaultChunkSize
	}
	if c.Summary.ChunkOverlap == nil {
		overlap := defaultChunkOverlap
		c.Summary.ChunkOverlap = &overlap
	}
	if c.Summary.Splitter == "" {
		c.Summary.Splitter = defaultSplitter
	}

	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultStorageDriver
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = defaultStorageDir
	}

	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	switch c.Summary.Splitter {
	case "window", "recursive":
	default:
		return fmt.Errorf("unsupported splitter: %s", c.Summary.Splitter)
	}
	if c.Summary.ChunkSize < 0 {
		return fmt.Errorf("chunk size %d must be positive", c.Summary.ChunkSize)
	}
	if overlap := c.Summary.Overlap(); overlap < 0 || overlap >= c.Summary.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be between 0 and chunk size %d", overlap, c.Summary.ChunkSize)
	}
	switch c.Storage.Driver {
	case "local":
	case "postgres":
		if !c.Database.Enabled {
			return fmt.Errorf("storage driver postgres requires database.enabled")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when the database is enabled")
	}
	return nil
}
