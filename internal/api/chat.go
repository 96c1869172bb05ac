package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mufasai/server-ai/internal/proxy"
	"github.com/mufasai/server-ai/internal/relay"
)

const msgInvalidChat = "Invalid request. Required: model (string) and messages (array)"

type chatRequest struct {
	Model    string          `json:"model"`
	Messages json.RawMessage `json:"messages"`
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, h.opts.MaxBodyBytes, &req, msgInvalidChat) {
		return
	}
	n, ok := countMessages(req.Messages)
	if req.Model == "" || !ok || n == 0 {
		writeError(w, http.StatusBadRequest, errorResponse{Error: msgInvalidChat})
		return
	}

	slog.Info("chat request", "model", req.Model, "messages", n)

	ctx := r.Context()
	stream, err := h.chat.Stream(ctx, proxy.ChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
	})
	if err != nil {
		var se *proxy.StatusError
		switch {
		case errors.As(err, &se):
			slog.Error("upstream error", "status", se.StatusCode, "body", se.Body)
			writeError(w, se.StatusCode, errorResponse{
				Error:   fmt.Sprintf("OpenRouter API error: %d", se.StatusCode),
				Details: se.Body,
			})
		case ctx.Err() != nil:
			slog.Info("client disconnected before upstream responded")
		default:
			slog.Error("proxy error", "error", err)
			writeError(w, http.StatusInternalServerError, errorResponse{
				Error:   "Internal proxy error",
				Message: err.Error(),
			})
		}
		return
	}
	defer stream.Body.Close()

	slog.Debug("upstream response", "status", stream.StatusCode)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	stats, err := relay.Copy(ctx, w, stream.Body)
	attrs := []any{
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"skipped", stats.Skipped,
		"duration_ms", stats.Duration.Milliseconds(),
	}
	switch {
	case err == nil:
		slog.Info("stream completed", attrs...)
	case errors.Is(err, relay.ErrSinkClosed), errors.Is(err, context.Canceled):
		slog.Info("client disconnected, stream closed", attrs...)
	default:
		slog.Error("stream error", append(attrs, "error", err)...)
	}
}

// countMessages reports the length of raw when it is a JSON array.
func countMessages(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return 0, false
	}
	return len(arr), true
}
