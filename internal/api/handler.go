package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mufasai/server-ai/internal/codegen"
	"github.com/mufasai/server-ai/internal/proxy"
)

// X-Title values identifying each endpoint upstream.
const (
	TitleChat = "MUZ AI"
	TitleHTML = "MUZ AI Chat"
	TitleApp  = "MUZ AI App Builder"
)

const (
	defaultMaxBodyBytes   = 50 << 20
	defaultRequestTimeout = 120 * time.Second
)

// Options configures the HTTP handler.
type Options struct {
	// DefaultModel is used by generation requests that name no model.
	DefaultModel string
	// RequestTimeout bounds generation requests. Chat streams are unbounded.
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	Generate       codegen.Settings
}

type handler struct {
	chat      *proxy.Client
	generator *codegen.Generator
	opts      Options
}

// NewHandler returns the proxy's HTTP API: health, streaming chat, code
// generation and PDF text extraction.
func NewHandler(p *proxy.Client, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	h := &handler{
		chat:      p.WithTitle(TitleChat),
		generator: codegen.NewGenerator(p.WithTitle(TitleHTML), p.WithTitle(TitleApp), opts.Generate),
		opts:      opts,
	}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}))

	r.Get("/health", handleHealth)
	r.Post("/api/chat", h.handleChat)
	r.Post("/api/generate-html", handleGenerate(h, codegen.KindHTML, h.generator.HTML))
	r.Post("/api/generate-app", handleGenerate(h, codegen.KindApp, h.generator.App))
	r.Post("/api/extract-pdf", h.handleExtractPDF)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Agent Router Proxy is running",
	})
}
