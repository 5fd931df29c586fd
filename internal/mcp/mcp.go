// Package mcp implements the Model Context Protocol server for GeneTree.
//
// The MCP server exposes the same family tree capabilities as the HTTP API
// through MCP resources and tools, allowing MCP-compatible AI agents to read
// and edit a user's tree. Every call runs through the same validation and
// execution path as the chat assistant's tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/genetree-ai/genetree/internal/assistant"
	"github.com/genetree-ai/genetree/internal/ctxutil"
)

// Server wraps the MCP server with GeneTree's assistant action layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	store     assistant.Store
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(store assistant.Store, logger *slog.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"genetree",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// userID extracts the authenticated user from the context populated by the
// HTTP auth middleware. The MCP transport is mounted behind that middleware,
// so a zero id means the request never passed authentication.
func (s *Server) userID(ctx context.Context) (int64, error) {
	id := ctxutil.UserIDFromContext(ctx)
	if id == 0 {
		return 0, fmt.Errorf("mcp: unauthenticated request")
	}
	return id, nil
}

// runAction validates and executes one action for the authenticated user.
// Mutating actions are checked against a fresh tree snapshot first; blocked
// actions come back as tool errors listing every violated rule. The verdict's
// warnings ride along on success so the caller sees them too.
func (s *Server) runAction(ctx context.Context, a assistant.Action) (*mcplib.CallToolResult, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	if !a.ReadOnly() {
		snap, err := s.loadSnapshot(ctx, userID)
		if err != nil {
			return errorResult(fmt.Sprintf("load tree: %v", err)), nil
		}
		verdict := assistant.NewValidator(snap).Validate(a)
		if !verdict.Valid() {
			data, _ := json.Marshal(map[string]any{
				"error":    "validation failed",
				"warnings": verdict.Errors,
			})
			return errorResult(string(data)), nil
		}
		res := assistant.NewExecutor(userID, s.store, s.logger).Execute(ctx, a)
		res.Warnings = append(res.Warnings, verdict.Warnings...)
		return resultJSON(res), nil
	}

	res := assistant.NewExecutor(userID, s.store, s.logger).Execute(ctx, a)
	return resultJSON(res), nil
}

func (s *Server) loadSnapshot(ctx context.Context, userID int64) (assistant.Snapshot, error) {
	relatives, err := s.store.ListRelatives(ctx, userID, true)
	if err != nil {
		return assistant.Snapshot{}, err
	}
	relationships, err := s.store.ListRelationships(ctx, userID)
	if err != nil {
		return assistant.Snapshot{}, err
	}
	return assistant.Snapshot{Relatives: relatives, Relationships: relationships}, nil
}

func resultJSON(res assistant.Result) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(res, "", "  ")
	if res.Error != "" {
		return errorResult(string(data))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
