// Package lambdaurl serves an http.Handler behind an AWS Lambda Function URL
// configured for response streaming.
package lambdaurl

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
)

// HandlerFunc is the Lambda handler signature for streaming Function URLs.
type HandlerFunc func(ctx context.Context, req *events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error)

// Wrap adapts h. The returned handler yields as soon as h commits its status
// line, so everything h writes afterwards reaches the caller as it is
// flushed.
func Wrap(h http.Handler) HandlerFunc {
	return func(ctx context.Context, req *events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error) {
		r, err := NewRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		w := newStreamWriter()
		stop := context.AfterFunc(ctx, func() {
			w.pr.CloseWithError(ctx.Err())
		})

		go func() {
			defer stop()
			defer w.finish()
			defer func() {
				if p := recover(); p != nil {
					slog.Error("handler panic", "panic", p, "path", r.URL.Path)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			h.ServeHTTP(w, r)
		}()

		select {
		case <-w.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return &events.LambdaFunctionURLStreamingResponse{
			StatusCode: w.status,
			Headers:    w.headers,
			Cookies:    w.cookies,
			Body:       w.pr,
		}, nil
	}
}

// NewRequest converts a Function URL event into an *http.Request.
func NewRequest(ctx context.Context, req *events.LambdaFunctionURLRequest) (*http.Request, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding request body: %w", err)
		}
		body = decoded
	}

	path := req.RawPath
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: req.RawQueryString}
	if p, err := url.PathUnescape(path); err == nil && p != path {
		u.Path, u.RawPath = p, path
	}

	method := req.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	r, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range req.Headers {
		r.Header.Set(k, v)
	}
	if len(req.Cookies) > 0 {
		r.Header.Set("Cookie", strings.Join(req.Cookies, "; "))
	}

	r.Host = req.RequestContext.DomainName
	if host := r.Header.Get("Host"); host != "" {
		r.Host = host
	}
	r.RemoteAddr = req.RequestContext.HTTP.SourceIP
	r.RequestURI = u.RequestURI()
	if id := req.RequestContext.RequestID; id != "" && r.Header.Get("X-Request-Id") == "" {
		r.Header.Set("X-Request-Id", id)
	}
	return r, nil
}

// streamWriter is an http.ResponseWriter whose body is a pipe. The status
// line and headers are fixed on the first WriteHeader, Write or Flush.
type streamWriter struct {
	header http.Header
	pr     *io.PipeReader
	pw     *io.PipeWriter

	once  sync.Once
	ready chan struct{}

	// Set once before ready is closed.
	status  int
	headers map[string]string
	cookies []string
}

func newStreamWriter() *streamWriter {
	pr, pw := io.Pipe()
	return &streamWriter{
		header: make(http.Header),
		pr:     pr,
		pw:     pw,
		ready:  make(chan struct{}),
	}
}

func (w *streamWriter) Header() http.Header {
	return w.header
}

func (w *streamWriter) WriteHeader(code int) {
	if code < 200 {
		return
	}
	w.once.Do(func() {
		w.status = code
		w.headers = make(map[string]string, len(w.header))
		for k, v := range w.header {
			if k == "Set-Cookie" {
				w.cookies = append(w.cookies, v...)
				continue
			}
			w.headers[k] = strings.Join(v, ",")
		}
		close(w.ready)
	})
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.pw.Write(p)
}

func (w *streamWriter) Flush() {
	w.WriteHeader(http.StatusOK)
}

func (w *streamWriter) finish() {
	w.WriteHeader(http.StatusOK)
	w.pw.Close()
}
