package pdftext

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/mufasai/server-ai/internal/pdftext/pdftest"
)

const longLine = "The quick brown fox jumps over the lazy dog near the river bank"

func TestExtract_TextPages(t *testing.T) {
	data := pdftest.Build("Report", longLine, "Second page")

	res, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}
	if !strings.Contains(res.Text, "quick brown fox") {
		t.Errorf("Text = %q, want first page text", res.Text)
	}
	if !strings.Contains(res.Text, "Second page") {
		t.Errorf("Text = %q, want second page text", res.Text)
	}
	if res.Message != "" {
		t.Errorf("Message = %q, want empty", res.Message)
	}
	if res.UsedOCR {
		t.Error("UsedOCR should be false")
	}
	if res.Info["Title"] != "Report" {
		t.Errorf("Info = %v, want Title=Report", res.Info)
	}
}

func TestExtract_ShortTextUsesPlaceholder(t *testing.T) {
	res, err := Extract(pdftest.Build("Scan", "Hi"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != Placeholder {
		t.Errorf("Text = %q, want placeholder", res.Text)
	}
	if res.Message != NoTextMessage {
		t.Errorf("Message = %q, want %q", res.Message, NoTextMessage)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
}

func TestExtract_NotAPDF(t *testing.T) {
	_, err := Extract([]byte("hello, definitely not a pdf"))
	var de *DocumentError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DocumentError", err)
	}
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract(nil)
	var de *DocumentError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DocumentError", err)
	}
}

func TestDecodeBase64(t *testing.T) {
	raw := []byte("%PDF-1.4 binary \x00\xff payload!")
	std := base64.StdEncoding.EncodeToString(raw)

	cases := []struct {
		name string
		in   string
	}{
		{"standard", std},
		{"data url", "data:application/pdf;base64," + std},
		{"unpadded", base64.RawStdEncoding.EncodeToString(raw)},
		{"url alphabet", base64.URLEncoding.EncodeToString(raw)},
		{"wrapped", std[:10] + "\n" + std[10:20] + "\r\n " + std[20:]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeBase64(tc.in)
			if err != nil {
				t.Fatalf("DecodeBase64: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Errorf("decoded %q, want %q", got, raw)
			}
		})
	}
}

func TestDecodeBase64_Invalid(t *testing.T) {
	_, err := DecodeBase64("!!!not base64!!!")
	var de *DocumentError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DocumentError", err)
	}
}

func TestExtractBase64(t *testing.T) {
	enc := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdftest.Build("B64", longLine))

	res, err := ExtractBase64(enc)
	if err != nil {
		t.Fatalf("ExtractBase64: %v", err)
	}
	if !strings.Contains(res.Text, "lazy dog") {
		t.Errorf("Text = %q", res.Text)
	}
}
