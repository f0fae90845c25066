package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/dialoguegen/internal/dialogue"
	"github.com/apresai/dialoguegen/internal/record"
)

var tracer = otel.Tracer("dialoguegen-mcp")

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "list_characters",
			Description: "List the character archetypes that dialogue can be generated for, with the number of canned lines each has.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
		},
		{
			Name:        "generate_dialogue",
			Description: "Generate one line of NPC dialogue for a character. Waits for the simulated generation delay. Unknown characters yield an error line instead of failing.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"character": map[string]any{
						"type":        "string",
						"description": "Character id as returned by list_characters, e.g. \"City Guard\"",
					},
					"player_input": map[string]any{
						"type":        "string",
						"description": "What the player said. Recorded in logs only.",
					},
				},
				Required: []string{"character"},
			},
		},
		{
			Name:        "save_dialogue",
			Description: "Save a dialogue line as a Dialogue_<Name><NNNN>.json file in the output directory. Never overwrites an existing file.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"character": map[string]any{
						"type":        "string",
						"description": "Character id the line belongs to",
					},
					"text": map[string]any{
						"type":        "string",
						"description": "Dialogue text to save, usually the output of generate_dialogue",
					},
					"output_dir": map[string]any{
						"type":        "string",
						"description": "Subdirectory of the server output directory to write into; absolute paths and .. are rejected",
					},
				},
				Required: []string{"character", "text"},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	picker  *dialogue.Picker
	storage *Storage
	delay   time.Duration
	log     *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(picker *dialogue.Picker, storage *Storage, delay time.Duration, logger *slog.Logger) *Handlers {
	return &Handlers{picker: picker, storage: storage, delay: delay, log: logger}
}

// HandleListCharacters returns the catalog summary.
func (h *Handlers) HandleListCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.list_characters")
	defer span.End()

	profiles := h.picker.Catalog().Profiles()
	characters := make([]map[string]any, 0, len(profiles))
	for _, p := range profiles {
		characters = append(characters, map[string]any{
			"id":    p.ID,
			"lines": len(p.Lines),
		})
	}
	span.SetAttributes(attribute.Int("result_count", len(characters)))

	return jsonResult(map[string]any{
		"characters": characters,
		"count":      len(characters),
	})
}

// HandleGenerateDialogue runs one generation and returns its text.
func (h *Handlers) HandleGenerateDialogue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_dialogue")
	defer span.End()

	character := mcp.ParseString(req, "character", "")
	input := mcp.ParseString(req, "player_input", "")
	span.SetAttributes(attribute.String("character", character))

	if character == "" {
		span.SetStatus(codes.Error, "missing character")
		return mcp.NewToolResultError("character is required"), nil
	}

	// one generator per call, so concurrent calls never see ErrBusy
	gen := dialogue.NewGenerator(h.picker, dialogue.WithDelay(h.delay), dialogue.WithLogger(h.log))
	res, err := gen.Generate(ctx, character)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate dialogue: %v", err)), nil
	}

	span.SetAttributes(attribute.String("generation_id", res.ID))
	h.log.InfoContext(ctx, "Dialogue generated", "generation_id", res.ID, "character", character, "player_input", input)

	return jsonResult(map[string]any{
		"generation_id": res.ID,
		"character":     character,
		"text":          res.Text,
	})
}

// HandleSaveDialogue writes a dialogue record file.
func (h *Handlers) HandleSaveDialogue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.save_dialogue")
	defer span.End()

	character := mcp.ParseString(req, "character", "")
	text := mcp.ParseString(req, "text", "")
	dir := mcp.ParseString(req, "output_dir", "")
	span.SetAttributes(
		attribute.String("character", character),
		attribute.String("output_dir", dir),
	)

	path, err := h.storage.Save(character, text, dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")

		var werr *record.WriteError
		if errors.As(err, &werr) {
			h.log.ErrorContext(ctx, "Dialogue write failed", "path", werr.Path, "error", werr.Err)
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to save dialogue: %v", err)), nil
	}

	span.SetAttributes(attribute.String("path", path))
	h.log.InfoContext(ctx, "Dialogue saved", "character", character, "path", path)

	return jsonResult(map[string]any{
		"path": path,
		"file": filepath.Base(path),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
