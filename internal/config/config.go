package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Proxy    ProxyConfig
	Generate GenerateConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxBodyBytes   int
	CORSOrigins    string
}

// Origins splits the comma-separated CORS origin list.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type ProxyConfig struct {
	OpenRouterAPIKey string
	APIKeyParam      string
	BaseURL          string
	Referer          string
	DefaultModel     string
}

type GenerateConfig struct {
	Temperature   float64
	HTMLMaxTokens int
	AppMaxTokens  int
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           3001,
			RequestTimeout: 120 * time.Second,
			MaxBodyBytes:   50 << 20,
			CORSOrigins:    "*",
		},
		Proxy: ProxyConfig{
			BaseURL:      "https://openrouter.ai/api/v1",
			Referer:      "http://localhost:5173",
			DefaultModel: "openai/gpt-4o-mini",
		},
		Generate: GenerateConfig{
			Temperature:   0.7,
			HTMLMaxTokens: 2000,
			AppMaxTokens:  3000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the JSON config file, a .env file in the
// working directory, environment variables, and the local secrets file.
//
// The config file lives at $XDG_CONFIG_HOME/muzai/config.json. Variables in
// .env never override variables already set in the environment. Environment
// variables (MUZAI_* and the legacy OPENROUTER_API_KEY, HTTP_REFERER and
// PORT) override file values.
//
// A missing API key is not an error; callers decide whether to warn or fall
// back to ResolveAPIKey.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), secretsFile{path: secretsFilePath()}, ".env")
}

// secretStore abstracts the local secrets file for testing.
type secretStore interface {
	Get(name string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretStore, dotenv string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("could not load env file", "path", dotenv, "error", err)
		}
	}
	applyEnvOverrides(&cfg)

	if cfg.Proxy.OpenRouterAPIKey == "" {
		if key, err := secrets.Get(apiKeyName); err == nil && key != "" {
			cfg.Proxy.OpenRouterAPIKey = key
		}
	}

	return cfg, nil
}

// SecretGetter fetches a named secret from a remote parameter store.
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ResolveAPIKey fills in the OpenRouter API key from the parameter store
// when it is still empty and proxy.api_key_param names a parameter.
func ResolveAPIKey(ctx context.Context, cfg *Config, g SecretGetter) error {
	if cfg.Proxy.OpenRouterAPIKey != "" || cfg.Proxy.APIKeyParam == "" {
		return nil
	}
	if g == nil {
		return fmt.Errorf("no parameter store configured for %s", cfg.Proxy.APIKeyParam)
	}
	key, err := g.GetParameter(ctx, cfg.Proxy.APIKeyParam)
	if err != nil {
		return fmt.Errorf("resolving API key: %w", err)
	}
	cfg.Proxy.OpenRouterAPIKey = strings.TrimSpace(key)
	return nil
}
