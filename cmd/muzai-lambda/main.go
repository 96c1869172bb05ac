// Command muzai-lambda serves the proxy from an AWS Lambda Function URL with
// response streaming enabled.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mufasai/server-ai/internal/app"
	"github.com/mufasai/server-ai/internal/config"
	"github.com/mufasai/server-ai/internal/lambdaurl"
	"github.com/mufasai/server-ai/internal/paramstore"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	app.SetupLogging(os.Stderr, cfg.Log)

	if cfg.Proxy.OpenRouterAPIKey == "" && cfg.Proxy.APIKeyParam != "" {
		store, err := paramstore.NewFromDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to create parameter store client", "err", err)
			os.Exit(1)
		}
		if err := config.ResolveAPIKey(ctx, &cfg, store); err != nil {
			slog.Error("failed to resolve API key", "err", err, "param", cfg.Proxy.APIKeyParam)
			os.Exit(1)
		}
	}
	app.WarnMissingKey(cfg)

	lambda.Start(lambdaurl.Wrap(app.NewHTTPHandler(cfg)))
}
