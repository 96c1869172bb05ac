package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mufasai/server-ai/internal/app"
	"github.com/mufasai/server-ai/internal/config"
	"github.com/mufasai/server-ai/internal/paramstore"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP proxy server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return runServer(cmd.Context(), addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the generation tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.host:server.port)")
}

// loadServerConfig loads config, sets up logging and resolves the API key
// from Parameter Store when one is configured.
func loadServerConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	app.SetupLogging(os.Stderr, cfg.Log)

	if cfg.Proxy.OpenRouterAPIKey == "" && cfg.Proxy.APIKeyParam != "" {
		store, err := paramstore.NewFromDefaultConfig(ctx)
		if err != nil {
			return config.Config{}, err
		}
		if err := config.ResolveAPIKey(ctx, &cfg, store); err != nil {
			return config.Config{}, err
		}
		slog.Info("API key loaded from parameter store", "param", cfg.Proxy.APIKeyParam)
	}
	app.WarnMissingKey(cfg)
	return cfg, nil
}

func runServer(ctx context.Context, addr string) error {
	fmt.Fprintf(os.Stderr, "muzai version %s\n", version)

	cfg, err := loadServerConfig(ctx)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           app.NewHTTPHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("muzai listening", "addr", addr, "default_model", cfg.Proxy.DefaultModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		printStep("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP(ctx context.Context) error {
	cfg, err := loadServerConfig(ctx)
	if err != nil {
		return err
	}

	// stdout carries the protocol; logs go to stderr.
	stdio := server.NewStdioServer(app.NewMCPServer(cfg, version))
	slog.Info("MCP server started (stdio transport)")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	base := serverURL
	if base == "" {
		base = localURL(cfg.Server)
	}
	client := &apiClient{baseURL: base, httpClient: &http.Client{Timeout: 2 * time.Second}}

	var health struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	resp, err := client.get(ctx, "/health")
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case decodeJSON(resp, &health) != nil:
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	default:
		printStatus("Server", "%s at %s (%s)", health.Status, base, health.Message)
	}

	printStatus("Upstream", "%s", cfg.Proxy.BaseURL)
	printStatus("Default model", "%s", cfg.Proxy.DefaultModel)
	switch {
	case cfg.Proxy.OpenRouterAPIKey != "":
		printStatus("API key", "set")
	case cfg.Proxy.APIKeyParam != "":
		printStatus("API key", "from parameter %s", cfg.Proxy.APIKeyParam)
	default:
		printWarning("API key not set; upstream requests will fail with 401")
	}
	return nil
}
