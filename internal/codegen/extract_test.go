package codegen

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseHTML_FencedWithProse(t *testing.T) {
	raw := "Here:\n```json\n{\"html\":\"<p>x</p>\",\"css\":\"\"}\n```"

	got, err := ParseHTML(raw)
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}

	want := HTMLPayload{HTML: "<p>x</p>", CSS: ""}
	if got != want {
		t.Errorf("ParseHTML() = %+v, want %+v", got, want)
	}
}

func TestParseHTML_FencedMatchesUnfenced(t *testing.T) {
	plain := `{"html":"<main>hi</main>","css":"main{color:red}","js":"console.log(1)"}`
	variants := []string{
		plain,
		"```json\n" + plain + "\n```",
		"```\n" + plain + "\n```",
		"Sure! Here is your page:\n```json\n" + plain + "\n```\nLet me know if you need changes.",
		"```json" + plain + "```",
	}

	want, err := ParseHTML(plain)
	if err != nil {
		t.Fatalf("ParseHTML(plain): %v", err)
	}

	for _, v := range variants {
		got, err := ParseHTML(v)
		if err != nil {
			t.Errorf("ParseHTML(%q): %v", v, err)
			continue
		}
		if got != want {
			t.Errorf("ParseHTML(%q) = %+v, want %+v", v, got, want)
		}
	}
}

func TestParseHTML_MissingOptionalFields(t *testing.T) {
	got, err := ParseHTML(`{"html":"<p>only html</p>"}`)
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	if got.HTML != "<p>only html</p>" || got.CSS != "" || got.JS != "" {
		t.Errorf("ParseHTML() = %+v", got)
	}
}

func TestParseHTML_TruncatedObject(t *testing.T) {
	raw := "```json\n{\"html\":\"<div>" + strings.Repeat("x", 800)

	_, err := ParseHTML(raw)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Raw != raw {
		t.Error("ParseError.Raw should hold the raw completion")
	}
	if got := len([]rune(pe.Details())); got != MaxDetailRunes {
		t.Errorf("len(Details) = %d, want %d", got, MaxDetailRunes)
	}
	if !strings.HasPrefix(raw, pe.Details()) {
		t.Error("Details should be a prefix of the raw completion")
	}
}

func TestParseError_ShortDetails(t *testing.T) {
	_, err := ParseHTML("not json at all")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Details() != "not json at all" {
		t.Errorf("Details() = %q", pe.Details())
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"leading prose", `Result: {"a":1}`, `{"a":1}`},
		{"trailing prose", `{"a":1} hope this helps`, `{"a":1}`},
		{"nested", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`},
		{"no braces", "```json\nnull\n```", "null"},
		{"only open", `{"a":`, `{"a":`},
		{"reversed", `} then {`, `} then {`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseApp_StripsComponentStylesheetImports(t *testing.T) {
	raw := "```json\n" + `{"files":{` +
		`"/App.js":"import './styles.css';\nimport Foo from './components/Foo';\nexport default function App(){return <Foo/>}",` +
		`"/components/Foo.js":"import React from 'react';\nimport './Foo.css';\nimport \"../shared.css\"\nexport default function Foo(){return <div/>}",` +
		`"/styles.css":"body{margin:0}"` +
		"}}\n```"

	got, err := ParseApp(raw)
	if err != nil {
		t.Fatalf("ParseApp: %v", err)
	}

	want := map[string]string{
		"/App.js":            "import './styles.css';\nimport Foo from './components/Foo';\nexport default function App(){return <Foo/>}",
		"/components/Foo.js": "import React from 'react';\nexport default function Foo(){return <div/>}",
		"/styles.css":        "body{margin:0}",
	}
	if !reflect.DeepEqual(got.Files, want) {
		t.Errorf("Files = %#v\nwant %#v", got.Files, want)
	}
}

func TestStripStylesheetImports_LeavesNonRelativeAndNonSource(t *testing.T) {
	files := map[string]string{
		"/components/Bar.jsx": "import 'bootstrap/dist/css/bootstrap.css';\nimport './Bar.css';\n",
		"/notes.md":           "import './Bar.css';\n",
	}
	StripStylesheetImports(files)

	if files["/components/Bar.jsx"] != "import 'bootstrap/dist/css/bootstrap.css';\n" {
		t.Errorf("Bar.jsx = %q", files["/components/Bar.jsx"])
	}
	if files["/notes.md"] != "import './Bar.css';\n" {
		t.Errorf("notes.md should be untouched, got %q", files["/notes.md"])
	}
}

func TestParseApp_NoFiles(t *testing.T) {
	got, err := ParseApp(`{"message":"nothing"}`)
	if err != nil {
		t.Fatalf("ParseApp: %v", err)
	}
	if got.Files != nil {
		t.Errorf("Files = %v, want nil", got.Files)
	}
}

func TestParseApp_NonStringFile(t *testing.T) {
	_, err := ParseApp(`{"files":{"/App.js":42}}`)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}
