// Package config provides application configuration.
//
// Sources, later ones winning:
//  1. built-in defaults
//  2. a .env file in the working directory (if present)
//  3. an optional YAML file
//  4. environment variables
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration.
type Config struct {
	Provider      string        `yaml:"provider"` // "openai", "anthropic" or "" to detect from API keys
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	MaxToolCalls  int           `yaml:"max_tool_calls"`
	Stream        bool          `yaml:"stream"`
	SystemPrompt  string        `yaml:"system_prompt"` // template; empty uses the built-in prompt
	Name          string        `yaml:"name"`
	Location      string        `yaml:"location"`
	DBPath        string        `yaml:"db_path"` // empty keeps history in memory
	HTTPAddr      string        `yaml:"http_addr"`
	ModelTimeout  time.Duration `yaml:"model_timeout"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	SerpAPIKey    string        `yaml:"serpapi_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	LogAddSource  bool          `yaml:"log_add_source"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxToolCalls: 5,
		Name:         "Jarvis",
		HTTPAddr:     ":8080",
		ModelTimeout: 60 * time.Second,
		ToolTimeout:  15 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load builds the configuration from defaults, .env, the optional YAML file at
// path and the environment, then validates it.
func Load(path string) (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := decodeYAMLStrict(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeYAMLStrict(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}

	return nil
}

func (c *Config) applyEnv() error {
	c.Provider = getEnv("JARVIS_PROVIDER", c.Provider)
	c.Model = getEnv("JARVIS_MODEL", c.Model)
	c.SystemPrompt = getEnv("JARVIS_SYSTEM_PROMPT", c.SystemPrompt)
	c.Name = getEnv("JARVIS_NAME", c.Name)
	c.Location = getEnv("JARVIS_LOCATION", c.Location)
	c.DBPath = getEnv("JARVIS_DB_PATH", c.DBPath)
	c.HTTPAddr = getEnv("JARVIS_HTTP_ADDR", c.HTTPAddr)
	c.SerpAPIKey = getEnv("SERPAPI_API_KEY", c.SerpAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.LogLevel = getEnv("JARVIS_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("JARVIS_LOG_FORMAT", c.LogFormat)
	c.Stream = getEnvBool("JARVIS_STREAM", c.Stream)
	c.LogAddSource = getEnvBool("JARVIS_LOG_SOURCE", c.LogAddSource)

	var err error

	if c.Temperature, err = getEnvFloat("JARVIS_TEMPERATURE", c.Temperature); err != nil {
		return err
	}

	if c.MaxToolCalls, err = getEnvInt("JARVIS_MAX_TOOL_CALLS", c.MaxToolCalls); err != nil {
		return err
	}

	if c.ModelTimeout, err = getEnvDuration("JARVIS_MODEL_TIMEOUT", c.ModelTimeout); err != nil {
		return err
	}

	if c.ToolTimeout, err = getEnvDuration("JARVIS_TOOL_TIMEOUT", c.ToolTimeout); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration fields hold usable values.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("JARVIS_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.Provider)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("JARVIS_TEMPERATURE must be between 0 and 2")
	}

	if c.MaxToolCalls <= 0 {
		return fmt.Errorf("JARVIS_MAX_TOOL_CALLS must be > 0")
	}

	if c.ModelTimeout < 0 || c.ToolTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("JARVIS_HTTP_ADDR cannot be empty")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("JARVIS_LOG_FORMAT must be text or json")
	}

	return nil
}

// ResolveProvider returns the configured provider, or detects one from the
// available API keys: Anthropic when only ANTHROPIC_API_KEY is set, OpenAI
// otherwise.
func (c *Config) ResolveProvider() string {
	if c.Provider != "" {
		return c.Provider
	}

	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") != "" {
		return ProviderAnthropic
	}

	return ProviderOpenAI
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return misc.Truthy(value)
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
