package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/dialoguegen/internal/config"
	"github.com/apresai/dialoguegen/internal/dialogue"
	"github.com/apresai/dialoguegen/internal/record"
)

// Server is the stdio MCP server for dialogue generation.
type Server struct {
	cfg      config.Config
	mcp      *server.MCPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server.
func New(ctx context.Context, cfg config.Config, version string, logger *slog.Logger) (*Server, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}

	picker := dialogue.NewPicker(catalog, cfg.Seed)
	writer := record.NewWriter(
		record.WithSeed(cfg.Seed),
		record.WithKnownCharacters(catalog),
	)
	storage := NewStorage(writer, cfg.OutputDir, cfg.TimeLayout)
	handlers := NewHandlers(picker, storage, cfg.Delay, logger)

	mcpServer := server.NewMCPServer(
		"dialoguegen",
		version,
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleListCharacters)
	mcpServer.AddTool(tools[1], handlers.HandleGenerateDialogue)
	mcpServer.AddTool(tools[2], handlers.HandleSaveDialogue)

	logger.InfoContext(ctx, "MCP server configured",
		"characters", catalog.Len(),
		"output_dir", cfg.OutputDir,
		"delay", cfg.Delay.String(),
	)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		handlers: handlers,
		log:      logger,
	}, nil
}

// Start serves MCP over stdin/stdout until the input closes.
func (s *Server) Start() error {
	s.log.Info("Starting MCP server on stdio")
	return server.ServeStdio(s.mcp)
}
