package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mufasai/server-ai/internal/codegen"
	"github.com/mufasai/server-ai/internal/pdftext"
	"github.com/mufasai/server-ai/internal/proxy"
)

// MCPGenerator abstracts code generation for the MCP layer.
type MCPGenerator interface {
	HTML(ctx context.Context, model, prompt string) (codegen.HTMLPayload, error)
	App(ctx context.Context, model, prompt string) (codegen.AppPayload, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Generator    MCPGenerator
	Asker        codegen.Completer // non-streaming completions for the ask tool
	DefaultModel string
	Version      string
}

// NewMCPServerFromClient wires MCPDeps from an upstream client, using the
// same per-endpoint titles as the HTTP API.
func NewMCPServerFromClient(p *proxy.Client, defaultModel, version string, gen codegen.Settings) *server.MCPServer {
	return NewMCPServer(MCPDeps{
		Generator:    codegen.NewGenerator(p.WithTitle(TitleHTML), p.WithTitle(TitleApp), gen),
		Asker:        p.WithTitle(TitleChat),
		DefaultModel: defaultModel,
		Version:      version,
	})
}

// NewMCPServer creates an MCP server with the generation, PDF and ask tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"muzai",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("muzai: generate web pages and React apps, extract PDF text, and ask OpenRouter models."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_html",
			mcp.WithDescription("Generate a static web page. Returns JSON with html, css and js fields."),
			mcp.WithString("prompt", mcp.Description("Description of the page to build"), mcp.Required()),
			mcp.WithString("model", mcp.Description("OpenRouter model id (defaults to the configured model)")),
		),
		mcpGenerateHTML(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_app",
			mcp.WithDescription("Generate a multi-file React app. Returns JSON with a files map keyed by path."),
			mcp.WithString("prompt", mcp.Description("Description of the app to build"), mcp.Required()),
			mcp.WithString("model", mcp.Description("OpenRouter model id (defaults to the configured model)")),
		),
		mcpGenerateApp(deps),
	)

	s.AddTool(
		mcp.NewTool("extract_pdf",
			mcp.WithDescription("Extract selectable text from a PDF given as base64 or a local file path."),
			mcp.WithString("pdf_base64", mcp.Description("Base64 PDF data, optionally a data URL")),
			mcp.WithString("path", mcp.Description("Path to a PDF file on the local machine")),
		),
		mcpExtractPDF(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a single prompt to an OpenRouter model and return the answer."),
			mcp.WithString("prompt", mcp.Description("The question or instruction"), mcp.Required()),
			mcp.WithString("system", mcp.Description("Optional system prompt")),
			mcp.WithString("model", mcp.Description("OpenRouter model id (defaults to the configured model)")),
		),
		mcpAsk(deps),
	)

	return s
}

func mcpGenerateHTML(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil || prompt == "" {
			return mcpError("prompt is required"), nil
		}
		out, err := deps.Generator.HTML(ctx, modelArg(req, deps), prompt)
		if err != nil {
			return mcpError(describeError("generation failed", err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpGenerateApp(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil || prompt == "" {
			return mcpError("prompt is required"), nil
		}
		out, err := deps.Generator.App(ctx, modelArg(req, deps), prompt)
		if err != nil {
			return mcpError(describeError("generation failed", err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpExtractPDF() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b64 := req.GetString("pdf_base64", "")
		path := req.GetString("path", "")

		var (
			res pdftext.Result
			err error
		)
		switch {
		case b64 != "":
			res, err = pdftext.ExtractBase64(b64)
		case path != "":
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return mcpError(fmt.Sprintf("reading %s: %v", path, readErr)), nil
			}
			res, err = pdftext.Extract(data)
		default:
			return mcpError("one of pdf_base64 or path is required"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("Failed to extract PDF: %v. %s", err, pdftext.Suggestion)), nil
		}
		return mcpJSON(res)
	}
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil || prompt == "" {
			return mcpError("prompt is required"), nil
		}

		var msgs []proxy.Message
		if system := req.GetString("system", ""); system != "" {
			msgs = append(msgs, proxy.Message{Role: "system", Content: system})
		}
		msgs = append(msgs, proxy.Message{Role: "user", Content: prompt})

		raw, err := proxy.EncodeMessages(msgs...)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding messages: %v", err)), nil
		}

		c, err := deps.Asker.Complete(ctx, proxy.ChatRequest{
			Model:    modelArg(req, deps),
			Messages: raw,
		})
		if err != nil {
			return mcpError(describeError("request failed", err)), nil
		}
		return mcpText(c.Content), nil
	}
}

// describeError renders the same explanations the HTTP API gives.
func describeError(prefix string, err error) string {
	var (
		se *proxy.StatusError
		pe *codegen.ParseError
	)
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("%s: %s (status %d)", prefix, se.Message(se.Body), se.StatusCode)
	case errors.As(err, &pe):
		return fmt.Sprintf("%s: model output was not valid JSON: %s", prefix, pe.Details())
	default:
		return fmt.Sprintf("%s: %v", prefix, err)
	}
}

func modelArg(req mcp.CallToolRequest, deps MCPDeps) string {
	if m := req.GetString("model", ""); m != "" {
		return m
	}
	return deps.DefaultModel
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
