package codegen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MaxDetailRunes bounds the raw completion text carried by a ParseError.
const MaxDetailRunes = 500

// EntryPoint is the one file allowed to import stylesheets in a generated app.
const EntryPoint = "/App.js"

// fenceMarkers are removed in order; the longer variants go first so their
// newline is consumed along with the fence.
var fenceMarkers = []string{"```json\n", "```\n", "\n```", "```"}

// sourceExts are the generated file types whose stylesheet imports are stripped.
var sourceExts = []string{".js", ".jsx", ".ts", ".tsx"}

// stylesheetImport matches side-effect imports of a sibling or parent-directory
// stylesheet, e.g. `import './Card.css';` or `import "../theme.css"`.
var stylesheetImport = regexp.MustCompile(`import\s+['"]\.\.?/[^'"]*\.css['"];?\n?`)

// HTMLPayload is a generated static page.
type HTMLPayload struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// AppPayload is a generated React app keyed by file path.
type AppPayload struct {
	Files map[string]string `json:"files"`
}

// ParseError reports a completion that does not contain parseable JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing generated JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Details returns at most MaxDetailRunes characters of the raw completion.
func (e *ParseError) Details() string {
	r := []rune(e.Raw)
	if len(r) <= MaxDetailRunes {
		return e.Raw
	}
	return string(r[:MaxDetailRunes])
}

// StripFences removes markdown code fence markers wherever they occur.
func StripFences(s string) string {
	for _, m := range fenceMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	return s
}

// ExtractJSON strips fences and narrows s to the span between the first '{'
// and the last '}'. Prose around the object is dropped. With several
// top-level objects the span covers all of them and will not parse.
func ExtractJSON(s string) string {
	s = StripFences(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// ParseHTML extracts an HTMLPayload from a raw completion.
func ParseHTML(raw string) (HTMLPayload, error) {
	var p HTMLPayload
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &p); err != nil {
		return HTMLPayload{}, &ParseError{Raw: raw, Err: err}
	}
	return p, nil
}

// ParseApp extracts an AppPayload from a raw completion and removes
// stylesheet imports from every source file except the entry point.
func ParseApp(raw string) (AppPayload, error) {
	var p AppPayload
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &p); err != nil {
		return AppPayload{}, &ParseError{Raw: raw, Err: err}
	}
	StripStylesheetImports(p.Files)
	return p, nil
}

// StripStylesheetImports rewrites files in place.
func StripStylesheetImports(files map[string]string) {
	for path, src := range files {
		if path == EntryPoint || !isSourceFile(path) {
			continue
		}
		files[path] = stylesheetImport.ReplaceAllString(src, "")
	}
}

func isSourceFile(path string) bool {
	for _, ext := range sourceExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
