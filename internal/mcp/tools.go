package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/genetree-ai/genetree/internal/assistant"
	"github.com/genetree-ai/genetree/internal/kinship"
)

func (s *Server) registerTools() {
	// genetree_create_relative: add a person to the tree.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_create_relative",
			mcplib.WithDescription(`Add a person to the family tree.

Names may be left empty to create a placeholder slot that gets filled in
later. Dates use YYYY-MM-DD. Generation counts from the tree owner:
0 = the owner's generation, 1 = parents, 2 = grandparents, -1 = children.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("first_name", mcplib.Description("First name")),
			mcplib.WithString("last_name", mcplib.Description("Last name")),
			mcplib.WithString("middle_name", mcplib.Description("Middle or patronymic name")),
			mcplib.WithString("gender", mcplib.Description("male, female or other"),
				mcplib.Enum("male", "female", "other")),
			mcplib.WithString("birth_date", mcplib.Description("Birth date, YYYY-MM-DD")),
			mcplib.WithString("death_date", mcplib.Description("Death date, YYYY-MM-DD")),
			mcplib.WithNumber("generation", mcplib.Description("Generation relative to the tree owner")),
		),
		s.handleCreateRelative,
	)

	// genetree_update_relative: patch fields on an existing person.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_update_relative",
			mcplib.WithDescription(`Update fields on an existing relative. Only the fields you pass change.

The relative is referenced by numeric id or by name; names are matched
case-insensitively against first, last and middle names.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("relative_id", mcplib.Description("Relative id or name"), mcplib.Required()),
			mcplib.WithString("first_name", mcplib.Description("New first name")),
			mcplib.WithString("last_name", mcplib.Description("New last name")),
			mcplib.WithString("middle_name", mcplib.Description("New middle name")),
			mcplib.WithString("gender", mcplib.Description("male, female or other"),
				mcplib.Enum("male", "female", "other")),
			mcplib.WithString("birth_date", mcplib.Description("New birth date, YYYY-MM-DD")),
			mcplib.WithString("death_date", mcplib.Description("New death date, YYYY-MM-DD")),
			mcplib.WithNumber("generation", mcplib.Description("New generation value")),
		),
		s.handleUpdateRelative,
	)

	// genetree_delete_relative: remove a person and their relationships.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_delete_relative",
			mcplib.WithDescription("Remove a relative from the tree. All relationships touching them are removed too. The record is deactivated, not destroyed."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("relative_id", mcplib.Description("Relative id or name"), mcplib.Required()),
		),
		s.handleDeleteRelative,
	)

	// genetree_create_relationship: link two people.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_create_relationship",
			mcplib.WithDescription(`Create a relationship between two relatives.

Read as: from_relative is <type> of to_relative. Example: from=Anna,
to=Ivan, type=mother records that Anna is Ivan's mother.

The link is checked against the tree before it is written: gendered kinds
must match the target's gender, a person has at most two biological
parents, and contradictory or cyclic links are rejected.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("from_relative_id", mcplib.Description("Relative bearing the kinship, by id or name"), mcplib.Required()),
			mcplib.WithString("to_relative_id", mcplib.Description("Relative the kinship points at, by id or name"), mcplib.Required()),
			mcplib.WithString("relationship_type", mcplib.Description("Kinship term, e.g. mother, father, son, sister, husband, grandmother, stepfather"), mcplib.Required()),
		),
		s.handleCreateRelationship,
	)

	// genetree_delete_relationship: unlink two people.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_delete_relationship",
			mcplib.WithDescription("Remove the relationship between two relatives. The pair is matched in either direction."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("from_relative_id", mcplib.Description("One endpoint, by id or name"), mcplib.Required()),
			mcplib.WithString("to_relative_id", mcplib.Description("The other endpoint, by id or name"), mcplib.Required()),
		),
		s.handleDeleteRelationship,
	)

	// genetree_add_story: attach a titled story to a person.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_add_story",
			mcplib.WithDescription("Attach a titled story to a relative, e.g. key=\"War years\", value=\"Evacuated in 1941...\". Writing an existing key overwrites it."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("relative_id", mcplib.Description("Relative id or name"), mcplib.Required()),
			mcplib.WithString("key", mcplib.Description("Story title"), mcplib.Required()),
			mcplib.WithString("value", mcplib.Description("Story text"), mcplib.Required()),
		),
		s.handleAddStory,
	)

	// genetree_delete_story: remove a story by title.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_delete_story",
			mcplib.WithDescription("Remove a story from a relative by its title."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("relative_id", mcplib.Description("Relative id or name"), mcplib.Required()),
			mcplib.WithString("key", mcplib.Description("Story title"), mcplib.Required()),
		),
		s.handleDeleteStory,
	)

	// genetree_get_relative: one person in full.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_get_relative",
			mcplib.WithDescription("Fetch one relative's details including all stories."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("relative_id", mcplib.Description("Relative id or name"), mcplib.Required()),
		),
		s.handleGetRelative,
	)

	// genetree_get_all_relatives: the whole cast.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_get_all_relatives",
			mcplib.WithDescription("List all relatives in the tree. Pass only_active=false to include removed ones."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithBoolean("only_active", mcplib.Description("Skip removed relatives"), mcplib.DefaultBool(true)),
		),
		s.handleGetAllRelatives,
	)

	// genetree_get_relationships: all edges.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_get_relationships",
			mcplib.WithDescription("List all relationships in the tree. Each reads as: from_relative is <type> of to_relative."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleGetRelationships,
	)

	// genetree_search_relatives: find people by name fragment.
	s.mcpServer.AddTool(
		mcplib.NewTool("genetree_search_relatives",
			mcplib.WithDescription("Search relatives by name fragment, matched case-insensitively against first, last and middle names."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("search_term", mcplib.Description("Name fragment to search for"), mcplib.Required()),
		),
		s.handleSearchRelatives,
	)
}

func (s *Server) handleCreateRelative(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	act := &assistant.CreateRelative{
		FirstName: request.GetString("first_name", ""),
		LastName:  request.GetString("last_name", ""),
		Gender:    request.GetString("gender", ""),
		BirthDate: request.GetString("birth_date", ""),
		DeathDate: request.GetString("death_date", ""),
	}
	if mid := request.GetString("middle_name", ""); mid != "" {
		act.MiddleName = &mid
	}
	args := request.GetArguments()
	if _, ok := args["generation"]; ok {
		gen := request.GetInt("generation", 0)
		act.Generation = &gen
	}
	return s.runAction(ctx, act)
}

func (s *Server) handleUpdateRelative(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	act := &assistant.UpdateRelative{
		Relative: assistant.RefName(request.GetString("relative_id", "")),
	}

	// Absent and empty are different things for a patch: only fields the
	// caller actually passed make it into the update.
	args := request.GetArguments()
	strField := func(key string) *string {
		if _, ok := args[key]; !ok {
			return nil
		}
		v := request.GetString(key, "")
		return &v
	}
	act.FirstName = strField("first_name")
	act.LastName = strField("last_name")
	act.MiddleName = strField("middle_name")
	act.Gender = strField("gender")
	act.BirthDate = strField("birth_date")
	act.DeathDate = strField("death_date")
	if _, ok := args["generation"]; ok {
		gen := request.GetInt("generation", 0)
		act.Generation = &gen
	}
	return s.runAction(ctx, act)
}

func (s *Server) handleDeleteRelative(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.DeleteRelative{
		Relative: assistant.RefName(request.GetString("relative_id", "")),
	})
}

func (s *Server) handleCreateRelationship(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.CreateRelationship{
		From: assistant.RefName(request.GetString("from_relative_id", "")),
		To:   assistant.RefName(request.GetString("to_relative_id", "")),
		Kind: kinship.Kind(request.GetString("relationship_type", "")),
	})
}

func (s *Server) handleDeleteRelationship(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.DeleteRelationship{
		From: assistant.RefName(request.GetString("from_relative_id", "")),
		To:   assistant.RefName(request.GetString("to_relative_id", "")),
	})
}

func (s *Server) handleAddStory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.AddStory{
		Relative: assistant.RefName(request.GetString("relative_id", "")),
		Key:      request.GetString("key", ""),
		Value:    request.GetString("value", ""),
	})
}

func (s *Server) handleDeleteStory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.DeleteStory{
		Relative: assistant.RefName(request.GetString("relative_id", "")),
		Key:      request.GetString("key", ""),
	})
}

func (s *Server) handleGetRelative(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.GetRelative{
		Relative: assistant.RefName(request.GetString("relative_id", "")),
	})
}

func (s *Server) handleGetAllRelatives(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	onlyActive := request.GetBool("only_active", true)
	return s.runAction(ctx, &assistant.GetAllRelatives{OnlyActive: &onlyActive})
}

func (s *Server) handleGetRelationships(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.GetRelationships{})
}

func (s *Server) handleSearchRelatives(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.runAction(ctx, &assistant.SearchRelatives{
		SearchTerm: request.GetString("search_term", ""),
	})
}
