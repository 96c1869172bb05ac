// Package pdftext pulls selectable text out of PDF documents.
package pdftext

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MinTextLength is the number of characters below which a document is
// treated as a scan.
const MinTextLength = 50

const (
	Placeholder = "[This PDF appears to be a scan or contains only images. Please use a PDF with selectable text, " +
		"or try uploading the image directly using the vision model (GPT-4o Mini or Qwen 2.5 VL).]"
	NoTextMessage = "PDF contains no selectable text. Try using vision model with image upload instead."
	Suggestion    = "Make sure the PDF contains selectable text (not a scan). " +
		"For scanned PDFs, try uploading as an image with a vision model instead."
)

// Result is the outcome of a text extraction.
type Result struct {
	Text    string            `json:"text"`
	Pages   int               `json:"pages"`
	Info    map[string]string `json:"info"`
	UsedOCR bool              `json:"usedOCR"`
	Message string            `json:"message,omitempty"`
}

// DocumentError reports input that could not be decoded or parsed as a PDF.
type DocumentError struct {
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("reading pdf: %v", e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

var errEmpty = errors.New("empty document")

// DecodeBase64 decodes a base64 payload, optionally prefixed with a data URL
// header such as "data:application/pdf;base64,". Whitespace is ignored and
// padding is optional.
func DecodeBase64(s string) ([]byte, error) {
	if _, after, ok := strings.Cut(s, ","); ok && strings.HasPrefix(strings.TrimSpace(s), "data:") {
		s = after
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)

	var firstErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, &DocumentError{Err: fmt.Errorf("decoding base64: %w", firstErr)}
}

// ExtractBase64 decodes s and extracts its text.
func ExtractBase64(s string) (Result, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return Result{}, err
	}
	return Extract(data)
}

// Extract returns the trimmed plain text of every page joined by blank
// lines. When that text is shorter than MinTextLength, Text is replaced with
// Placeholder and Message is set.
func Extract(data []byte) (res Result, err error) {
	if len(data) == 0 {
		return Result{}, &DocumentError{Err: errEmpty}
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, &DocumentError{Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, &DocumentError{Err: err}
	}

	n := r.NumPage()
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			slog.Debug("skipping unreadable page", "page", i, "error", err)
			continue
		}
		texts = append(texts, text)
	}

	res = Result{
		Text:  strings.TrimSpace(strings.Join(texts, "\n\n")),
		Pages: n,
		Info:  documentInfo(r),
	}

	if utf8.RuneCountInString(res.Text) < MinTextLength {
		res.Text = Placeholder
		res.Message = NoTextMessage
	}
	return res, nil
}

func documentInfo(r *pdf.Reader) map[string]string {
	info := make(map[string]string)
	v := r.Trailer().Key("Info")
	if v.IsNull() {
		return info
	}
	for _, k := range v.Keys() {
		if s := v.Key(k).Text(); s != "" {
			info[k] = s
		}
	}
	return info
}
