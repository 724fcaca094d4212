package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks settings that prevent the server from starting.
var ErrConfiguration = errors.New("configuration error")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	SearchSerper     = "serper"
	SearchGoogleNews = "googlenews"
	SearchNone       = "none"
)

type Config struct {
	ProjectDir string `json:"project_dir"`
	DataDir    string `json:"data_dir"`

	ListenAddr     string   `json:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins"`

	DatabaseDriver string `json:"database_driver"`
	DatabaseURL    string `json:"database_url"`

	LLMProvider  string `json:"llm_provider"`
	LLMModel     string `json:"llm_model"`
	LLMBaseURL   string `json:"llm_base_url"`
	LLMMaxTokens int    `json:"llm_max_tokens"`

	SearchProvider string `json:"search_provider"`
	SearchResults  int    `json:"search_results"`
	OnlineQuotes   bool   `json:"online_quotes"`

	// Provenance line shown with the benchmark block.
	DatasetSource string `json:"dataset_source"`
	DatasetAsOf   string `json:"dataset_as_of"`

	Debug     bool   `json:"debug"`
	LogFormat string `json:"log_format"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	// Secrets come from the environment only and are never written to config.json.
	OpenAIAPIKey   string `json:"-"`
	DeepSeekAPIKey string `json:"-"`
	SerperAPIKey   string `json:"-"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := DefaultConfigWithRoot(currentDir)
	cfg.loadFromEnv()
	return cfg
}

// DefaultConfigWithRoot returns defaults rooted at root without reading the
// environment for anything but secrets.
func DefaultConfigWithRoot(root string) *Config {
	dataDir := filepath.Join(root, "data")
	cfg := &Config{
		ProjectDir: root,
		DataDir:    dataDir,

		ListenAddr:     ":8000",
		AllowedOrigins: []string{"*"},

		DatabaseDriver: DriverSQLite,
		DatabaseURL:    filepath.Join(dataDir, "cara.db"),

		LLMProvider:  ProviderDeepSeek,
		LLMModel:     "deepseek-chat",
		LLMMaxTokens: 8192,

		SearchProvider: SearchSerper,
		SearchResults:  5,
		OnlineQuotes:   false,

		DatasetSource: "Bloomberg terminal",
		DatasetAsOf:   "Tuesday, 19 Aug 2025",

		Debug:     false,
		LogFormat: "text",

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}
	cfg.LoadSecrets()
	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("CARA_PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("CARA_DATA_DIR"); val != "" {
		c.DataDir = val
		if c.DatabaseDriver == DriverSQLite {
			c.DatabaseURL = filepath.Join(val, "cara.db")
		}
	}

	if val := os.Getenv("LISTEN_ADDR"); val != "" {
		c.ListenAddr = val
	} else if val := os.Getenv("PORT"); val != "" {
		c.ListenAddr = ":" + val
	}
	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		c.AllowedOrigins = splitList(val)
	}

	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.DatabaseDriver = strings.ToLower(val)
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.DatabaseURL = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
		if c.LLMProvider != ProviderDeepSeek && os.Getenv("LLM_MODEL") == "" {
			c.LLMModel = ""
		}
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LLMMaxTokens = v
		}
	}

	if val := os.Getenv("SEARCH_PROVIDER"); val != "" {
		c.SearchProvider = strings.ToLower(val)
	}
	if val := os.Getenv("SEARCH_RESULTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.SearchResults = v
		}
	}
	if val := os.Getenv("ONLINE_QUOTES"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineQuotes = enabled
		}
	}

	if val := os.Getenv("DATASET_SOURCE"); val != "" {
		c.DatasetSource = val
	}
	if val := os.Getenv("DATASET_AS_OF"); val != "" {
		c.DatasetAsOf = val
	}

	if val := os.Getenv("CARA_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = strings.ToLower(val)
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}
}

// LoadSecrets fills the credential fields from the environment.
func (c *Config) LoadSecrets() {
	c.OpenAIAPIKey = firstEnv("LLM_API_KEY", "OPENAI_API_KEY")
	c.DeepSeekAPIKey = firstEnv("DEEPSEEK_API_KEY", "LLM_API_KEY")
	c.SerperAPIKey = firstEnv("SERPER_KEY", "SERPER_API_KEY")
}

// LLMAPIKey returns the credential for the selected provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderDeepSeek:
		return c.DeepSeekAPIKey
	}
	return ""
}

// Validate checks structural settings. Credentials are checked separately by
// RequireCredentials so that a config file without secrets still loads.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrConfiguration, c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%w: database url is required", ErrConfiguration)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderDeepSeek:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrConfiguration, c.LLMProvider)
	}
	switch c.SearchProvider {
	case SearchSerper, SearchGoogleNews, SearchNone, "":
	default:
		return fmt.Errorf("%w: unknown search provider %q", ErrConfiguration, c.SearchProvider)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen address is required", ErrConfiguration)
	}
	if c.LLMMaxTokens < 0 {
		return fmt.Errorf("%w: llm_max_tokens must not be negative", ErrConfiguration)
	}
	if c.EinoDebugEnabled && (c.EinoDebugPort <= 0 || c.EinoDebugPort > 65535) {
		return fmt.Errorf("%w: invalid eino debug port %d", ErrConfiguration, c.EinoDebugPort)
	}
	return nil
}

// RequireCredentials fails when the selected model provider has no API key.
func (c *Config) RequireCredentials() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.LLMAPIKey()) == "" {
		return fmt.Errorf("%w: no API key set for llm provider %q", ErrConfiguration, c.LLMProvider)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := strings.TrimSpace(os.Getenv(k)); val != "" {
			return val
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
