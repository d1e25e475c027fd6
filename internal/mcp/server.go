// Package mcp exposes bulk assignment as Model Context Protocol tools served
// over SSE.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/directory"
	"github.com/JaimeStill/kontrib/pkg/pagination"
)

// BasePath is the path prefix of the SSE transport endpoints.
const BasePath = "/mcp"

// Server registers assignment and directory tools on an MCP server.
type Server struct {
	mcpServer   *server.MCPServer
	assignments assignment.System
	directory   directory.System
	logger      *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(
	version string,
	assignments assignment.System,
	dir directory.System,
	logger *slog.Logger,
) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"kontrib",
			version,
			server.WithToolCapabilities(true),
		),
		assignments: assignments,
		directory:   dir,
		logger:      logger.With("system", "mcp"),
	}

	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Routes returns the SSE transport handlers keyed by ServeMux pattern.
func (s *Server) Routes() map[string]http.HandlerFunc {
	sse := server.NewSSEServer(s.mcpServer, server.WithStaticBasePath(BasePath))
	return map[string]http.HandlerFunc{
		"GET " + BasePath + "/sse":      sse.ServeHTTP,
		"POST " + BasePath + "/message": sse.ServeHTTP,
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"assign_contributors",
			mcp.WithDescription("Replace the contributors of content item variants. Items in published, scheduled or archived steps are moved to draft first."),
			mcp.WithArray("items",
				mcp.Required(),
				mcp.Description("Variants to update: objects with id, language (codename or id) and optional codename"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":       map[string]any{"type": "string"},
						"codename": map[string]any{"type": "string"},
						"language": map[string]any{"type": "string"},
					},
					"required": []string{"id", "language"},
				}),
			),
			mcp.WithArray("contributors",
				mcp.Required(),
				mcp.Description("Contributor email addresses"),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		s.handleAssign,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"retry_failed",
			mcp.WithDescription("Re-run the failed and manual-intervention items of the latest batch"),
		),
		s.handleRetry,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"latest_batch",
			mcp.WithDescription("Return the report of the latest assignment batch"),
		),
		s.handleLatest,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List workflow definitions with their draft step"),
			mcp.WithString("search", mcp.Description("Filter by name or codename")),
		),
		s.handleListWorkflows,
	)
}

func (s *Server) handleAssign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	cmd, err := commandFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.assignments.Assign(context.WithoutCancel(ctx), cmd)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Assignment failed: %v", err)), nil
	}

	return jsonResult(report)
}

func (s *Server) handleRetry(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.assignments.RetryFailed(context.WithoutCancel(ctx))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Retry failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleLatest(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.assignments.Latest()
	if err != nil {
		if errors.Is(err, assignment.ErrNoBatch) {
			return mcp.NewToolResultText("No batch has been run"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := pagination.PageRequest{Page: 1, PageSize: 100}
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if search, ok := args["search"].(string); ok && search != "" {
			page.Search = &search
		}
	}

	result, err := s.directory.Workflows(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}
	return jsonResult(result.Data)
}

func commandFromArgs(args map[string]interface{}) (assignment.Command, error) {
	var cmd assignment.Command
	if _, ok := args["items"]; !ok {
		return cmd, errors.New("Missing required parameter: items")
	}
	if _, ok := args["contributors"]; !ok {
		return cmd, errors.New("Missing required parameter: contributors")
	}

	data, err := json.Marshal(map[string]interface{}{
		"items":        args["items"],
		"contributors": args["contributors"],
	})
	if err != nil {
		return cmd, fmt.Errorf("Invalid arguments: %v", err)
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("Invalid arguments: %v", err)
	}
	return cmd, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
