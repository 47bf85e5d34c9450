// Package mcpsrv implements the optional Model Context Protocol front
// end, ported from index/mcp_server.go (teacher): same
// mark3labs/mcp-go server.NewMCPServer + mcp.NewTool + AddTool
// registration shape, generalized from the teacher's read-only
// search/deps/impact tool set to this module's two pipeline
// operations, run_pipeline and inspect_ir.
package mcpsrv

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/foundryrun/harvest/internal/status"
	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/pipeline"
)

// Server wraps the pipeline driver and tool registry to provide MCP
// tool access.
type Server struct {
	cfg      *core.Config
	registry *pipeline.Registry
	view     *status.View

	mu      sync.Mutex // serializes concurrent run_pipeline invocations
	server  *server.MCPServer
}

// NewServer creates a new MCP server. view, if non-nil, is updated
// with every run's final IR snapshot so the status server (if also
// running) stays current.
func NewServer(cfg *core.Config, registry *pipeline.Registry, view *status.View) *Server {
	s := &Server{cfg: cfg, registry: registry, view: view}

	mcpServer := server.NewMCPServer(
		"harvest",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("run_pipeline",
			mcp.WithDescription("Run the transformation pipeline to completion over the configured input/output directories, using every registered tool."),
		),
		s.handleRunPipeline,
	)

	mcpServer.AddTool(
		mcp.NewTool("inspect_ir",
			mcp.WithDescription("Inspect the IR produced by the most recent run_pipeline call, one line per representation."),
		),
		s.handleInspectIR,
	)
}

func (s *Server) handleRunPipeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tools, err := s.registry.Build(s.cfg, s.registry.SortedNames())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build tool set: %v", err)), nil
	}

	result, err := pipeline.Run(s.cfg, tools)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pipeline run failed: %v", err)), nil
	}
	if s.view != nil {
		s.view.Store(result.IR, result.IRVersion)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Pipeline completed at IR version %d with %d representation(s). Diagnostics: %s",
		result.IRVersion, result.IR.Len(), result.Diagnostics.Dir,
	)), nil
}

func (s *Server) handleInspectIR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil {
		return mcp.NewToolResultError("no pipeline run has completed yet"), nil
	}
	ir, version := s.view.Snapshot()
	if ir == nil {
		return mcp.NewToolResultError("no pipeline run has completed yet"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("IR version %d:\n%s", version, ir.String())), nil
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}
