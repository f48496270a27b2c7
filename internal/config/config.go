// Package config loads service settings from defaults, an optional YAML
// file, the environment and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/p-shah256/resume-tailor/internal/extraction"
	"github.com/p-shah256/resume-tailor/internal/llm"
	"github.com/p-shah256/resume-tailor/internal/vlm"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigin      string        `yaml:"cors_origin"`
	// MaxUploadBytes caps resume uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LLMConfig struct {
	Provider      string        `yaml:"provider"`
	GeminiModel   string        `yaml:"gemini_model"`
	OpenAIModel   string        `yaml:"openai_model"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
}

type VLMConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	Domain       string        `yaml:"domain"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

type TailorConfig struct {
	// Timeout bounds a whole tailoring run, which outlives the client
	// request that started it.
	Timeout time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// DiscordConfig enables the chat bot when Token is set. The keys are used
// for every message the bot handles.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	GeminiKey string `yaml:"gemini_key"`
	VLMKey    string `yaml:"vlm_key"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	LLM      LLMConfig      `yaml:"llm"`
	VLM      VLMConfig      `yaml:"vlm"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Tailor   TailorConfig   `yaml:"tailor"`
	Database DatabaseConfig `yaml:"database"`
	Discord  DiscordConfig  `yaml:"discord"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    6 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigin:      "*",
			MaxUploadBytes:  10 << 20,
		},
		Log: LogConfig{Level: "info", Format: "color"},
		LLM: LLMConfig{
			Provider:    llm.ProviderGemini,
			GeminiModel: llm.DefaultGeminiModel,
			OpenAIModel: llm.DefaultOpenAIModel,
			CallTimeout: 60 * time.Second,
		},
		VLM: VLMConfig{
			BaseURL:      vlm.DefaultBaseURL,
			Model:        vlm.DefaultModel,
			Domain:       vlm.DefaultDomain,
			PollInterval: vlm.DefaultPollInterval,
			MaxWait:      vlm.DefaultMaxWait,
		},
		Fetch: FetchConfig{
			Timeout:      extraction.DefaultTimeout,
			UserAgent:    extraction.DefaultUserAgent,
			MaxBodyBytes: extraction.DefaultMaxBodyBytes,
		},
		Tailor: TailorConfig{Timeout: 5 * time.Minute},
	}
}

// Load returns the defaults overlaid with the YAML file at path and then
// the environment. A missing file is not an error when path is empty or
// "config.yaml".
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = "config.yaml"
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
		}
	case errors.Is(err, fs.ErrNotExist) && (path == "" || path == "config.yaml"):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("CORS_ORIGIN", &c.Server.CORSOrigin)
	str("LLM_PROVIDER", &c.LLM.Provider)
	str("GEMINI_MODEL", &c.LLM.GeminiModel)
	str("OPENAI_MODEL", &c.LLM.OpenAIModel)
	str("OPENAI_BASE_URL", &c.LLM.OpenAIBaseURL)
	str("VLM_BASE_URL", &c.VLM.BaseURL)
	str("DATABASE_URL", &c.Database.URL)
	str("DISCORD_TOKEN", &c.Discord.Token)
	str("GEMINI_KEY", &c.Discord.GeminiKey)
	str("VLM_API_KEY", &c.Discord.VLMKey)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// BindFlags registers the command-line overrides on flags. Only flags the user
// actually set are applied by ApplyFlags.
func BindFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "config.yaml", "path to the YAML config file")
	flags.IntP("port", "p", 0, "HTTP port to listen on")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (color, text, json)")
	flags.String("database-url", "", "Postgres DSN; empty keeps resumes in memory")
}

func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	if flags.Changed("port") {
		port, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		c.Server.Port = port
	}
	for name, dst := range map[string]*string{
		"log-level":    &c.Log.Level,
		"log-format":   &c.Log.Format,
		"database-url": &c.Database.URL,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// LLMFactoryConfig selects the model matching the configured provider.
func (c *Config) LLMFactoryConfig() llm.Config {
	model := c.LLM.GeminiModel
	if strings.EqualFold(c.LLM.Provider, llm.ProviderOpenAI) {
		model = c.LLM.OpenAIModel
	}
	return llm.Config{Provider: c.LLM.Provider, Model: model, BaseURL: c.LLM.OpenAIBaseURL}
}
