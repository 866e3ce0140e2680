package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/replbox/replbox/config"
	"github.com/replbox/replbox/protocol"
	"github.com/replbox/replbox/worker"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	backend   worker.Backend
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, backend worker.Backend) (*MCPServer, error) {
	s := &MCPServer{
		config:  cfg,
		logger:  logger,
		backend: backend,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("worker.binary", s.config.Worker.Binary),
		zap.String("worker.project", s.config.Worker.Project),
		zap.Int("worker.ready_timeout_sec", s.config.Worker.ReadyTimeoutSec),
		zap.Int("worker.max_trace_frames", s.config.Worker.MaxTraceFrames),
		zap.String("environments.root", s.config.Environments.Root),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("replbox", "A persistent code-execution session server")

	s.registerTools()

	return s, nil
}

// registerTools registers the session tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "eval",
		Description: "Evaluate Go code in the persistent worker session. Definitions persist across calls.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Code to evaluate",
				},
			},
			Required: []string{"code"},
		},
	}, s.handleEval)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Hard-reset the session: kill the worker process and start a fresh one. All variables, packages, and type definitions are lost; the activated project is re-applied.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}, s.handleReset)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "info",
		Description: "Report the worker's runtime version, active project, user-defined symbols, and loaded module count.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
		},
	}, s.handleInfo)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "pkg",
		Description: "Run a package-manager action in the active project.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"action": map[string]any{
					"type":        "string",
					"description": "Package action",
					"enum":        pkgActionNames(),
				},
				"packages": map[string]any{
					"type":        "string",
					"description": "Comma- or space-separated package list (required by add, rm, dev, undev)",
				},
			},
			Required: []string{"action"},
		},
	}, s.handlePkg)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "activate",
		Description: "Activate a project environment: a directory path, '.' for the current directory, or @name for a named shared environment.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Project path or @name shorthand",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleActivate)
}

func pkgActionNames() []string {
	names := make([]string, len(protocol.PkgActions))
	for i, a := range protocol.PkgActions {
		names[i] = string(a)
	}
	return names
}

// textResult wraps text in a tool result, marking it as a user-visible
// error when isError is set.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
		IsError: isError,
	}
}

// handleEval handles the eval tool
func (s *MCPServer) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return textResult("code parameter is required", true), nil
	}
	if strings.TrimSpace(code) == "" {
		return textResult("code must not be empty or whitespace-only", true), nil
	}

	s.logger.Info("evaluation requested", zap.Int("code_len", len(code)))

	result, err := s.backend.Eval(ctx, code)
	if err != nil {
		s.logger.Error("evaluation failed", zap.Error(err))
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	s.logger.Info("evaluation completed",
		zap.Bool("errored", result.Error != ""),
		zap.Int("output_len", len(result.Output)))

	return textResult(formatEvalResult(result), result.Error != ""), nil
}

// handleReset handles the reset tool
func (s *MCPServer) handleReset(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("reset requested")

	report, err := s.backend.Reset(ctx)
	if err != nil {
		s.logger.Error("reset failed", zap.Error(err))
		return nil, fmt.Errorf("reset failed: %w", err)
	}

	s.logger.Info("worker reset",
		zap.String("old_worker_id", report.OldID),
		zap.String("new_worker_id", report.NewID))

	return textResult(formatReset(report), false), nil
}

// handleInfo handles the info tool
func (s *MCPServer) handleInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.backend.Info(ctx)
	if err != nil {
		s.logger.Error("info query failed", zap.Error(err))
		return nil, fmt.Errorf("info query failed: %w", err)
	}

	return textResult(formatInfo(info), false), nil
}

// handlePkg handles the pkg tool
func (s *MCPServer) handlePkg(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return textResult("action parameter is required", true), nil
	}
	if !protocol.ValidPkgAction(action) {
		return textResult(fmt.Sprintf("invalid action %q, must be one of: %s",
			action, strings.Join(pkgActionNames(), ", ")), true), nil
	}

	packages := splitPackages(request.GetString("packages", ""))
	if protocol.NeedsPackages(action) && len(packages) == 0 {
		return textResult(fmt.Sprintf("action %q requires at least one package", action), true), nil
	}

	s.logger.Info("package action requested",
		zap.String("action", action),
		zap.Strings("packages", packages))

	result, err := s.backend.PkgAction(ctx, action, packages)
	if err != nil {
		s.logger.Error("package action failed", zap.Error(err), zap.String("action", action))
		return nil, fmt.Errorf("package action failed: %w", err)
	}

	return textResult(formatPkgResult(result), result.Error != ""), nil
}

// handleActivate handles the activate tool
func (s *MCPServer) handleActivate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return textResult("path parameter is required", true), nil
	}
	if strings.TrimSpace(path) == "" {
		return textResult("path must not be empty", true), nil
	}

	s.logger.Info("activation requested", zap.String("path", path))

	result, err := s.backend.Activate(ctx, path)
	if err != nil {
		s.logger.Error("activation failed", zap.Error(err), zap.String("path", path))
		return nil, fmt.Errorf("activation failed: %w", err)
	}

	return textResult(formatActivate(result), !result.OK), nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
