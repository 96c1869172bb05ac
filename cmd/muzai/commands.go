package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mufasai/server-ai/internal/codegen"
	"github.com/mufasai/server-ai/internal/config"
	"github.com/mufasai/server-ai/internal/pdftext"
	"github.com/mufasai/server-ai/internal/proxy"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message and stream the reply",
	Long: `Send a single user message through the proxy and stream the reply.

Examples:
  muzai chat "Explain goroutines in one paragraph"
  muzai chat --model anthropic/claude-3.5-sonnet --system "Answer in French" "Hello"
  muzai chat --raw "Hi" > events.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		system, _ := cmd.Flags().GetString("system")
		raw, _ := cmd.Flags().GetBool("raw")

		model, err := resolveModel(model)
		if err != nil {
			return err
		}

		var msgs []proxy.Message
		if system != "" {
			msgs = append(msgs, proxy.Message{Role: "system", Content: system})
		}
		msgs = append(msgs, proxy.Message{Role: "user", Content: strings.Join(args, " ")})

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/chat", map[string]any{
			"model":    model,
			"messages": msgs,
		})
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		defer resp.Body.Close()

		out := cmd.OutOrStdout()
		if raw {
			_, err = io.Copy(out, resp.Body)
			return err
		}
		if err := printStream(resp.Body, out); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("model", "", "model id (default: proxy.default_model)")
	chatCmd.Flags().String("system", "", "optional system message")
	chatCmd.Flags().Bool("raw", false, "print the raw event stream")
}

// resolveModel returns model, or the configured default when it is empty.
func resolveModel(model string) (string, error) {
	if model != "" {
		return model, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return cfg.Proxy.DefaultModel, nil
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a web page or a React app",
}

var generateHTMLCmd = &cobra.Command{
	Use:   "html <prompt>",
	Short: "Generate a static page (html, css, js)",
	Long: `Generate a static page from a prompt.

Without --out the JSON payload is printed. With --out the page is written as
index.html, style.css and script.js.

Examples:
  muzai generate html "landing page for a coffee shop"
  muzai generate html --out ./site "pricing table with three tiers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var page codegen.HTMLPayload
		if err := runGenerate(cmd, "/api/generate-html", args, &page); err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return printJSON(cmd.OutOrStdout(), page)
		}
		return writeFiles(out, pageFiles(page))
	},
}

var generateAppCmd = &cobra.Command{
	Use:   "app <prompt>",
	Short: "Generate a multi-file React app",
	Long: `Generate a React app from a prompt.

Without --out the JSON payload is printed. With --out every generated file is
written below the directory.

Examples:
  muzai generate app "todo list with filters"
  muzai generate app --out ./todo --model openai/gpt-4o "todo list"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var app codegen.AppPayload
		if err := runGenerate(cmd, "/api/generate-app", args, &app); err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return printJSON(cmd.OutOrStdout(), app)
		}
		return writeFiles(out, app.Files)
	},
}

func init() {
	for _, c := range []*cobra.Command{generateHTMLCmd, generateAppCmd} {
		c.Flags().String("model", "", "model id (default: server default)")
		c.Flags().String("out", "", "write generated files to this directory")
		generateCmd.AddCommand(c)
	}
}

func runGenerate(cmd *cobra.Command, path string, args []string, v any) error {
	model, _ := cmd.Flags().GetString("model")

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	printStep("Generating...")
	body := map[string]string{"prompt": strings.Join(args, " ")}
	if model != "" {
		body["model"] = model
	}
	resp, err := client.post(cmd.Context(), path, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, v)
}

func pageFiles(p codegen.HTMLPayload) map[string]string {
	files := map[string]string{"index.html": p.HTML}
	if p.CSS != "" {
		files["style.css"] = p.CSS
	}
	if p.JS != "" {
		files["script.js"] = p.JS
	}
	return files
}

// writeFiles writes files below dir. Generated paths are rooted at "/" and
// must stay inside dir.
func writeFiles(dir string, files map[string]string) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rel := filepath.FromSlash(strings.TrimPrefix(name, "/"))
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("refusing to write %q outside %s", name, dir)
		}
		target := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	}
	printSuccess("Wrote %d files to %s", len(names), dir)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// --- extract-pdf ---

var extractPDFCmd = &cobra.Command{
	Use:   "extract-pdf <file>",
	Short: "Extract text from a PDF",
	Long: `Extract the text layer of a PDF.

The file is sent to the running server unless --local is given, in which case
it is parsed in-process.

Examples:
  muzai extract-pdf ./report.pdf
  muzai extract-pdf --local --json ./report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")
		asJSON, _ := cmd.Flags().GetBool("json")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		var res pdftext.Result
		if local {
			res, err = pdftext.Extract(data)
			if err != nil {
				return err
			}
		} else {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.post(cmd.Context(), "/api/extract-pdf", map[string]string{
				"pdfBase64": base64.StdEncoding.EncodeToString(data),
			})
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &res); err != nil {
				return err
			}
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printStatus("Pages", "%d", res.Pages)
		if title := res.Info["Title"]; title != "" {
			printStatus("Title", "%s", title)
		}
		if res.Message != "" {
			printWarning("%s", res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}

func init() {
	extractPDFCmd.Flags().Bool("local", false, "parse the file in-process instead of calling the server")
	extractPDFCmd.Flags().Bool("json", false, "print the full result as JSON")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
