// Package llmconvert implements the LLM-driven source transformation
// tool, ported from tools/raw_source_to_cargo_llm/src/lib.rs. Where
// the original reaches for the `llm` crate to talk to a
// locally-served Ollama backend, this module uses the Gemini SDK the
// way pkg/index/llm.go (teacher) does, since that is the LLM client
// actually present in the example pack.
package llmconvert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/core/fs"
	"github.com/foundryrun/harvest/pkg/repr"
)

const toolName = "raw_source_to_generated_package"

const systemPromptExecutable = `You are translating a source tree into an equivalent, buildable Go program with a main package. Respond only with JSON of the form {"files":[{"path":"...","contents":"..."}]}, with a go.mod and at least one .go file declaring package main.`

const systemPromptLibrary = `You are translating a source tree into an equivalent, buildable Go library package. Respond only with JSON of the form {"files":[{"path":"...","contents":"..."}]}, with a go.mod and at least one non-main .go file.`

// Config configures the LLM backend. It is decoded from the
// tools.raw_source_to_generated_package TOML table via
// Config.DecodeToolConfig.
type Config struct {
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	Thinking string `toml:"thinking"` // NONE, LOW, NORMAL, HIGH
	TimeoutS int    `toml:"timeout_seconds"`
}

func defaultConfig() Config {
	return Config{
		Model:    "gemini-3-flash-preview",
		Thinking: "NORMAL",
		TimeoutS: 60,
	}
}

// Tool asks an LLM to rewrite the loaded RawSource into a buildable Go
// package once both a RawSource and a ProjectKind classification are
// present, producing a GeneratedPackage representation.
type Tool struct {
	cfg *core.Config
}

// New constructs an llmconvert.Tool. Per-invocation LLM configuration
// is decoded lazily from cfg in Run, matching the original's
// Config::deserialize call inside run rather than at construction.
func New(cfg *core.Config) core.Tool {
	return &Tool{cfg: cfg}
}

func (t *Tool) Name() string { return toolName }

func (t *Tool) MightWrite(ctx core.MightWriteContext) core.MightWriteOutcome {
	kinds := core.ByType[repr.ProjectKind](ctx.IR)
	sources := core.ByType[repr.RawSource](ctx.IR)
	if len(kinds) == 0 || len(sources) == 0 {
		return core.OutcomeTryAgain{}
	}
	return core.OutcomeRunnable{IDs: map[core.ID]struct{}{}}
}

func (t *Tool) Run(ctx core.RunContext) error {
	llmCfg := defaultConfig()
	if err := t.cfg.DecodeToolConfig(toolName, &llmCfg); err != nil {
		return fmt.Errorf("llmconvert: decode tool config: %w", err)
	}
	if llmCfg.APIKey == "" {
		return fmt.Errorf("llmconvert: no api_key configured for tools.%s", toolName)
	}

	sources := core.ByType[repr.RawSource](ctx.Snapshot)
	kinds := core.ByType[repr.ProjectKind](ctx.Snapshot)
	if len(sources) == 0 || len(kinds) == 0 {
		return fmt.Errorf("llmconvert: missing raw_source or project_kind at run time")
	}
	inDir := sources[len(sources)-1].Repr.Dir
	kind := kinds[len(kinds)-1].Repr

	systemPrompt := systemPromptLibrary
	if kind == repr.ProjectKindExecutable {
		systemPrompt = systemPromptExecutable
	}

	timeout := time.Duration(llmCfg.TimeoutS) * time.Second
	gctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := genai.NewClient(gctx, &genai.ClientConfig{
		APIKey:  llmCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("llmconvert: new genai client: %w", err)
	}

	type outputFile struct {
		Path     string `json:"path"`
		Contents string `json:"contents"`
	}
	reqFiles := make([]outputFile, 0)
	for _, f := range inDir.FilesRecursive() {
		reqFiles = append(reqFiles, outputFile{Path: f.Path, Contents: string(f.Contents)})
	}
	reqBody, err := json.Marshal(struct {
		Files []outputFile `json:"files"`
	}{Files: reqFiles})
	if err != nil {
		return fmt.Errorf("llmconvert: marshal request: %w", err)
	}

	prompt := "Please translate the following project into a Go project including go.mod:\n" +
		string(reqBody) + "\nreturn as JSON"

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingLevel: thinkingLevel(llmCfg.Thinking),
		},
	}

	model := llmCfg.Model
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	result, err := client.Models.GenerateContent(gctx, model, genai.Text(prompt), genCfg)
	if err != nil {
		return fmt.Errorf("llmconvert: generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return fmt.Errorf("llmconvert: empty response from model")
	}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	response := stripCodeFence(text.String())
	if response == "" {
		return fmt.Errorf("llmconvert: no text in response")
	}

	var parsed struct {
		Files []outputFile `json:"files"`
	}
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return fmt.Errorf("llmconvert: parse LLM response: %w", err)
	}

	ctx.Reporter.Logf("LLM response contains %d files", len(parsed.Files))
	outDir := fs.NewRawDir()
	for _, f := range parsed.Files {
		if err := outDir.SetFile(f.Path, []byte(f.Contents)); err != nil {
			return fmt.Errorf("llmconvert: set file %q: %w", f.Path, err)
		}
	}
	ctx.Edit.AddRepresentation(repr.GeneratedPackage{Dir: outDir})
	return nil
}

// stripCodeFence strips a leading/trailing ``` or ```json fence, the
// way the original strips Ollama's markdown fencing around its JSON
// response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func thinkingLevel(level string) genai.ThinkingLevel {
	switch strings.ToUpper(level) {
	case "NONE":
		return genai.ThinkingLevelMinimal
	case "LOW":
		return genai.ThinkingLevelLow
	case "NORMAL":
		return genai.ThinkingLevelMedium
	case "HIGH":
		return genai.ThinkingLevelHigh
	default:
		return genai.ThinkingLevelMedium
	}
}
