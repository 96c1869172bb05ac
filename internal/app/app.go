// Package app assembles the proxy from configuration. Both the CLI server
// and the Lambda entry point build their handlers here.
package app

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mufasai/server-ai/internal/api"
	"github.com/mufasai/server-ai/internal/codegen"
	"github.com/mufasai/server-ai/internal/config"
	"github.com/mufasai/server-ai/internal/proxy"
)

// SetupLogging installs the default slog logger writing to w.
func SetupLogging(w io.Writer, cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// WarnMissingKey logs a warning when no OpenRouter API key is configured.
// Requests still go upstream and fail there with 401.
func WarnMissingKey(cfg config.Config) {
	if cfg.Proxy.OpenRouterAPIKey == "" {
		slog.Warn("OpenRouter API key is not set; upstream requests will be rejected",
			"env", "MUZAI_OPENROUTER_API_KEY or OPENROUTER_API_KEY")
	}
}

// NewProxyClient builds the upstream client from cfg.
func NewProxyClient(cfg config.Config) *proxy.Client {
	return proxy.NewClient(proxy.Options{
		APIKey:  cfg.Proxy.OpenRouterAPIKey,
		BaseURL: cfg.Proxy.BaseURL,
		Referer: cfg.Proxy.Referer,
	})
}

func generateSettings(cfg config.Config) codegen.Settings {
	return codegen.Settings{
		Temperature:   cfg.Generate.Temperature,
		HTMLMaxTokens: cfg.Generate.HTMLMaxTokens,
		AppMaxTokens:  cfg.Generate.AppMaxTokens,
	}
}

// HandlerOptions maps cfg onto the HTTP API options.
func HandlerOptions(cfg config.Config) api.Options {
	return api.Options{
		DefaultModel:   cfg.Proxy.DefaultModel,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   int64(cfg.Server.MaxBodyBytes),
		CORSOrigins:    cfg.Server.Origins(),
		Generate:       generateSettings(cfg),
	}
}

// NewHTTPHandler returns the complete HTTP API for cfg.
func NewHTTPHandler(cfg config.Config) http.Handler {
	return api.NewHandler(NewProxyClient(cfg), HandlerOptions(cfg))
}

// NewMCPServer returns the MCP tool server for cfg.
func NewMCPServer(cfg config.Config, version string) *server.MCPServer {
	return api.NewMCPServerFromClient(NewProxyClient(cfg), cfg.Proxy.DefaultModel, version, generateSettings(cfg))
}
