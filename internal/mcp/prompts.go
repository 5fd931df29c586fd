package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// record-family-story guides the agent through capturing an oral account.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("record-family-story",
			mcplib.WithPromptDescription("Capture a family story told about a relative and file it on the right person"),
			mcplib.WithArgument("relative",
				mcplib.ArgumentDescription("Who the story is about, by id or name"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleRecordStoryPrompt,
	)

	// agent-setup: system prompt snippet explaining the GeneTree editing workflow.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining how to read and edit the family tree safely"),
		),
		s.handleAgentSetupPrompt,
	)
}

func (s *Server) handleRecordStoryPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	relative := request.Params.Arguments["relative"]
	if relative == "" {
		return nil, fmt.Errorf("relative argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Record a story about %s", relative),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`You are about to record a family story about %s. Follow these steps:

1. CALL genetree_get_relative with relative_id="%s" to confirm the person
   exists and see what stories they already have.

2. If the person is missing, ask the user whether to create them first
   rather than guessing at a new entry.

3. CHOOSE a short, descriptive title for the story ("War years",
   "How they met"). Reuse an existing title only if the user wants to
   replace that story; writing to an existing key overwrites it.

4. CALL genetree_add_story with the relative, the title as key, and the
   full story text as value. Keep the user's own words where possible.`, relative, relative),
				},
			},
		},
	}, nil
}

func (s *Server) handleAgentSetupPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "GeneTree family tree editing workflow for AI agents",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to GeneTree, a family tree the user builds by talking
about their relatives. You can read the tree and edit it on their behalf.

## Reading before writing

Start by reading genetree://tree or calling genetree_get_all_relatives so
you know who already exists. Never create a person the tree already has;
search first with genetree_search_relatives.

## Relationship direction

Relationships read as: from_relative is <type> of to_relative.
"My mother Anna" becomes from=Anna, to=the user, type=mother.

Every new relationship is validated before it is written:
- gendered kinds must match the target person's gender
- a person has at most two biological parents
- a pair cannot hold contradictory kinds, and parent/child cycles are rejected

If a call is rejected, read the listed violations and fix the request
instead of retrying it unchanged.

## Available tools

- genetree_get_all_relatives / genetree_get_relative / genetree_search_relatives:
  read the tree (always safe)
- genetree_get_relationships: list every link in the tree
- genetree_create_relative / genetree_update_relative / genetree_delete_relative:
  manage people
- genetree_create_relationship / genetree_delete_relationship: manage links
- genetree_add_story / genetree_delete_story: attach titled stories to people

## Conventions

- Dates are YYYY-MM-DD; leave unknown dates out rather than inventing them.
- Generation counts from the tree owner: 0 = owner, 1 = parents,
  2 = grandparents, -1 = children.
- People can be referenced by numeric id or by name; ids are unambiguous,
  prefer them when you know them.`,
				},
			},
		},
	}, nil
}
