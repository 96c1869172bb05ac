// Package relay forwards an upstream event stream to a client connection.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ProcessingMarker is the keep-alive comment OpenRouter emits while a model
// is warming up. Chunks containing it are never forwarded.
//
// The match is a plain substring test per chunk, so a marker split across
// two reads slips through.
const ProcessingMarker = "OPENROUTER PROCESSING"

const readBufferSize = 32 << 10

// ErrSinkClosed is returned when a write to the client fails, which means
// the client connection is gone.
var ErrSinkClosed = errors.New("client connection closed")

// Stats describes a finished relay.
type Stats struct {
	Chunks   int // upstream reads that returned data
	Skipped  int // chunks dropped because they carried the marker
	Bytes    int // bytes read from upstream
	Duration time.Duration
}

// Copy reads src until EOF and writes every chunk to dst, flushing after
// each write when dst is an http.Flusher.
//
// ctx is the cancellation token for the client connection: once it is done
// src is closed, which unblocks a pending read, and no further reads are
// issued. Copy returns nil on upstream EOF, ctx.Err() after cancellation,
// ErrSinkClosed when dst rejects a write, or the upstream read error.
func Copy(ctx context.Context, dst io.Writer, src io.ReadCloser) (Stats, error) {
	start := time.Now()
	var stats Stats

	stop := context.AfterFunc(ctx, func() {
		src.Close()
	})
	defer stop()

	flusher, _ := dst.(http.Flusher)
	var dec Decoder
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			stats.Chunks++
			stats.Bytes += n

			text := dec.Decode(buf[:n])
			if stats.Chunks == 1 {
				slog.Debug("first upstream chunk", "preview", preview(text, 100))
			}

			switch {
			case text == "":
			case strings.Contains(text, ProcessingMarker):
				stats.Skipped++
				slog.Debug("skipping upstream processing marker")
			default:
				if err := write(dst, flusher, []byte(text)); err != nil {
					stats.Duration = time.Since(start)
					return stats, err
				}
			}
		}

		if readErr == nil {
			continue
		}

		stats.Duration = time.Since(start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stats, ctxErr
		}
		if readErr != io.EOF {
			return stats, fmt.Errorf("reading upstream: %w", readErr)
		}
		if rest := dec.Flush(); len(rest) > 0 {
			if err := write(dst, flusher, rest); err != nil {
				return stats, err
			}
		}
		return stats, nil
	}
}

func write(dst io.Writer, flusher http.Flusher, p []byte) error {
	if _, err := dst.Write(p); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkClosed, err)
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
