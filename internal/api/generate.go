package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mufasai/server-ai/internal/codegen"
	"github.com/mufasai/server-ai/internal/proxy"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// generateMessages holds the user-facing texts for one generation kind.
type generateMessages struct {
	upstreamFallback string
	parseFailed      string
}

var generateText = map[codegen.Kind]generateMessages{
	codegen.KindHTML: {
		upstreamFallback: "Failed to generate code",
		parseFailed:      "Failed to parse generated code",
	},
	codegen.KindApp: {
		upstreamFallback: "Failed to generate app",
		parseFailed:      "Failed to parse generated code. The model may have returned the wrong format. Try again or use another model.",
	},
}

func handleGenerate[T any](h *handler, kind codegen.Kind, generate func(ctx context.Context, model, prompt string) (T, error)) http.HandlerFunc {
	text := generateText[kind]

	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !decodeBody(w, r, h.opts.MaxBodyBytes, &req, "Invalid request body") {
			return
		}
		if req.Prompt == "" {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "Prompt is required"})
			return
		}
		if req.Model == "" {
			req.Model = h.opts.DefaultModel
		}

		slog.Info("generate request", "kind", kind.String(), "model", req.Model, "prompt_chars", len([]rune(req.Prompt)))

		ctx, cancel := context.WithTimeout(r.Context(), h.opts.RequestTimeout)
		defer cancel()

		out, err := generate(ctx, req.Model, req.Prompt)
		if err != nil {
			writeGenerateError(w, r, kind, text, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeGenerateError(w http.ResponseWriter, r *http.Request, kind codegen.Kind, text generateMessages, err error) {
	var (
		se *proxy.StatusError
		pe *codegen.ParseError
	)
	switch {
	case errors.As(err, &se):
		slog.Error("upstream error", "kind", kind.String(), "status", se.StatusCode, "body", se.Body)
		writeError(w, se.StatusCode, errorResponse{
			Error:   se.Message(text.upstreamFallback),
			Details: se.Body,
		})
	case errors.As(err, &pe):
		slog.Error("parsing generated code", "kind", kind.String(), "error", pe.Err)
		writeError(w, http.StatusInternalServerError, errorResponse{
			Error:   text.parseFailed,
			Details: pe.Details(),
		})
	case r.Context().Err() != nil:
		slog.Info("client disconnected during generation", "kind", kind.String())
	case errors.Is(err, context.DeadlineExceeded):
		slog.Error("generation timed out", "kind", kind.String(), "error", err)
		writeError(w, http.StatusGatewayTimeout, errorResponse{
			Error:   "Upstream request timed out",
			Message: err.Error(),
		})
	default:
		slog.Error("generation failed", "kind", kind.String(), "error", err)
		writeError(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}
