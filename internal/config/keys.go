package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	aliases []string // legacy variable names, consulted when env is unset
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "MUZAI_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "MUZAI_SERVER_PORT", aliases: []string{"PORT"},
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.request_timeout", typ: kDuration, env: "MUZAI_SERVER_REQUEST_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.RequestTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Server.RequestTimeout },
	},
	{
		key: "server.max_body_bytes", typ: kInt, env: "MUZAI_SERVER_MAX_BODY_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxBodyBytes = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxBodyBytes },
	},
	{
		key: "server.cors_origins", typ: kString, env: "MUZAI_SERVER_CORS_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.CORSOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.CORSOrigins },
	},
	{
		key: "proxy.openrouter_api_key", typ: kString, env: "MUZAI_OPENROUTER_API_KEY", aliases: []string{"OPENROUTER_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Proxy.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.OpenRouterAPIKey },
	},
	{
		key: "proxy.api_key_param", typ: kString, env: "MUZAI_PROXY_API_KEY_PARAM",
		apply:   func(cfg *Config, v any) { cfg.Proxy.APIKeyParam = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.APIKeyParam },
	},
	{
		key: "proxy.base_url", typ: kString, env: "MUZAI_PROXY_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Proxy.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.BaseURL },
	},
	{
		key: "proxy.referer", typ: kString, env: "MUZAI_PROXY_REFERER", aliases: []string{"HTTP_REFERER"},
		apply:   func(cfg *Config, v any) { cfg.Proxy.Referer = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.Referer },
	},
	{
		key: "proxy.default_model", typ: kString, env: "MUZAI_PROXY_DEFAULT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Proxy.DefaultModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.DefaultModel },
	},
	{
		key: "generate.temperature", typ: kFloat, env: "MUZAI_GENERATE_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Generate.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generate.Temperature },
	},
	{
		key: "generate.html_max_tokens", typ: kInt, env: "MUZAI_GENERATE_HTML_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generate.HTMLMaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.HTMLMaxTokens },
	},
	{
		key: "generate.app_max_tokens", typ: kInt, env: "MUZAI_GENERATE_APP_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generate.AppMaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.AppMaxTokens },
	},
	{
		key: "log.level", typ: kString, env: "MUZAI_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "MUZAI_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
}

// parseValue converts raw into the Go type of typ. A duration given as a
// bare integer is a number of seconds.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		if secs, err := strconv.Atoi(raw); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

// applyBackend copies file settings into cfg. A malformed file value is an
// error; a malformed environment value only logs a warning.
func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Lookup(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			return fmt.Errorf("reading %s: invalid value %q", s.key, raw)
		}
		s.apply(cfg, v)
	}
	return nil
}

// lookupEnv returns the first non-empty value among the primary variable
// and its aliases.
func (s keySpec) lookupEnv() (name, value string) {
	for _, n := range append([]string{s.env}, s.aliases...) {
		if n == "" {
			continue
		}
		if v := os.Getenv(n); v != "" {
			return n, v
		}
	}
	return "", ""
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := s.lookupEnv()
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			slog.Warn("could not parse env var, using default", "var", name, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}
