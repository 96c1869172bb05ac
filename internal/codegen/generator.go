// Package codegen asks the upstream model for web code and turns its reply
// into structured payloads.
package codegen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mufasai/server-ai/internal/proxy"
)

// Kind selects what a generation request produces.
type Kind int

const (
	KindHTML Kind = iota
	KindApp
)

func (k Kind) String() string {
	if k == KindApp {
		return "app"
	}
	return "html"
}

// Completer is the non-streaming upstream call used for generation.
type Completer interface {
	Complete(ctx context.Context, req proxy.ChatRequest) (proxy.Completion, error)
}

// Settings holds the sampling parameters for generation requests.
type Settings struct {
	Temperature   float64
	HTMLMaxTokens int
	AppMaxTokens  int
}

// DefaultSettings mirrors the parameters the web client was tuned against.
func DefaultSettings() Settings {
	return Settings{
		Temperature:   0.7,
		HTMLMaxTokens: 2000,
		AppMaxTokens:  3000,
	}
}

// Generator produces HTML pages and React apps. Each kind has its own
// completer so requests can identify themselves differently upstream.
type Generator struct {
	html     Completer
	app      Completer
	settings Settings
}

// NewGenerator creates a Generator. Zero-valued settings fall back to
// DefaultSettings.
func NewGenerator(html, app Completer, s Settings) *Generator {
	d := DefaultSettings()
	if s.Temperature == 0 {
		s.Temperature = d.Temperature
	}
	if s.HTMLMaxTokens == 0 {
		s.HTMLMaxTokens = d.HTMLMaxTokens
	}
	if s.AppMaxTokens == 0 {
		s.AppMaxTokens = d.AppMaxTokens
	}
	return &Generator{html: html, app: app, settings: s}
}

// HTML generates a static page for prompt.
func (g *Generator) HTML(ctx context.Context, model, prompt string) (HTMLPayload, error) {
	raw, err := g.complete(ctx, KindHTML, model, prompt)
	if err != nil {
		return HTMLPayload{}, err
	}
	return ParseHTML(raw)
}

// App generates a multi-file React app for prompt.
func (g *Generator) App(ctx context.Context, model, prompt string) (AppPayload, error) {
	raw, err := g.complete(ctx, KindApp, model, prompt)
	if err != nil {
		return AppPayload{}, err
	}
	return ParseApp(raw)
}

func (g *Generator) complete(ctx context.Context, kind Kind, model, prompt string) (string, error) {
	msgs, err := proxy.EncodeMessages(BuildPrompt(kind, prompt)...)
	if err != nil {
		return "", fmt.Errorf("encoding prompt: %w", err)
	}

	client, maxTokens := g.html, g.settings.HTMLMaxTokens
	if kind == KindApp {
		client, maxTokens = g.app, g.settings.AppMaxTokens
	}

	temp := g.settings.Temperature
	c, err := client.Complete(ctx, proxy.ChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: &temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	slog.Debug("generated content",
		"kind", kind.String(),
		"model", model,
		"finish_reason", c.FinishReason,
		"preview", truncate(c.Content, 200),
	)
	return c.Content, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
