package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// genetree://tree is the authenticated user's full tree.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"genetree://tree",
			"Family Tree",
			mcplib.WithResourceDescription("All relatives and relationships in the current user's family tree"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTreeResource,
	)

	// genetree://relative/{id} resolves one relative with stories.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"genetree://relative/{id}",
			"Relative",
			mcplib.WithTemplateDescription("A single relative, including all stories"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleRelativeResource,
	)
}

func (s *Server) handleTreeResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("mcp: read tree: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"relatives":     snap.Relatives,
		"relationships": snap.Relationships,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal tree: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "genetree://tree",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRelativeResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	uri := request.Params.URI
	idStr := strings.TrimPrefix(uri, "genetree://relative/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("mcp: invalid relative URI: %s", uri)
	}

	rel, err := s.store.GetRelative(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("mcp: read relative %d: %w", id, err)
	}

	data, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal relative: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
