package assistant

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/genetree-ai/genetree/internal/kinship"
)

// The tool catalog the model sees. Each schema's required list mirrors the
// validator's hard requirements: the schema is a hint, the validator is
// the enforcement point. create_relative deliberately requires nothing:
// empty "slot" relatives are legal (the validator soft-warns instead).

func refSchema(desc string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.String,
		Description: desc + " (numeric id or full name)",
	}
}

func strSchema(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func fn(name, desc string, params jsonschema.Definition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: desc,
			Parameters:  params,
		},
	}
}

// ToolCatalog returns the function definitions for every action.
func ToolCatalog() []openai.Tool {
	kinds := make([]string, len(kinship.All))
	for i, k := range kinship.All {
		kinds[i] = string(k)
	}

	return []openai.Tool{
		fn("get_all_relatives",
			"List ALL of the user's relatives. Use this whenever the user asks to show, fetch or look up relatives.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"only_active": {Type: jsonschema.Boolean, Description: "Only active relatives (default true)"},
				},
			}),
		fn("search_relatives",
			"Search relatives by first or last name.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"search_term": strSchema("Name, surname or a fragment to search for"),
				},
				Required: []string{"search_term"},
			}),
		fn("get_relative",
			"Get detailed information about one relative, including stories.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"relative_id": refSchema("The relative"),
				},
				Required: []string{"relative_id"},
			}),
		fn("create_relative",
			"Create a new relative. Names may be left empty to reserve a slot to fill in later.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"first_name":  strSchema("First name"),
					"last_name":   strSchema("Last name"),
					"middle_name": strSchema("Middle name / patronymic"),
					"gender": {
						Type: jsonschema.String,
						Enum: []string{"male", "female", "other"},
					},
					"birth_date": strSchema("Birth date, YYYY-MM-DD"),
					"death_date": strSchema("Death date, YYYY-MM-DD"),
					"generation": {
						Type:        jsonschema.Integer,
						Description: "Generation: 0=user, 1=parents, 2=grandparents, -1=children",
					},
				},
			}),
		fn("update_relative",
			"Update fields of an existing relative.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"relative_id": refSchema("The relative to update"),
					"first_name":  strSchema("First name"),
					"last_name":   strSchema("Last name"),
					"middle_name": strSchema("Middle name / patronymic"),
					"gender": {
						Type: jsonschema.String,
						Enum: []string{"male", "female", "other"},
					},
					"birth_date": strSchema("Birth date, YYYY-MM-DD"),
					"death_date": strSchema("Death date, YYYY-MM-DD"),
					"generation": {Type: jsonschema.Integer},
				},
				Required: []string{"relative_id"},
			}),
		fn("delete_relative",
			"Delete a relative.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"relative_id": refSchema("The relative to delete"),
				},
				Required: []string{"relative_id"},
			}),
		fn("get_relationships",
			"List all relationships between relatives.",
			jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}),
		fn("create_relationship",
			"Create a relationship between two relatives. Read as: from_relative is <type> of to_relative (from=Anna, to=Ivan, type=mother: Anna is Ivan's mother).",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"from_relative_id": refSchema("Source of the relationship"),
					"to_relative_id":   refSchema("Target of the relationship"),
					"relationship_type": {
						Type:        jsonschema.String,
						Enum:        kinds,
						Description: "Relationship type",
					},
				},
				Required: []string{"from_relative_id", "to_relative_id", "relationship_type"},
			}),
		fn("delete_relationship",
			"Delete the relationship between two relatives.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"from_relative_id": refSchema("First relative"),
					"to_relative_id":   refSchema("Second relative"),
				},
				Required: []string{"from_relative_id", "to_relative_id"},
			}),
		fn("add_story",
			"Attach a story or biography entry to a relative.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"relative_id": refSchema("The relative"),
					"key":         strSchema("Story title, e.g. 'Biography' or 'War years'"),
					"value":       strSchema("Story text"),
				},
				Required: []string{"relative_id", "key", "value"},
			}),
		fn("delete_story",
			"Delete a story from a relative.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"relative_id": refSchema("The relative"),
					"key":         strSchema("Title of the story to delete"),
				},
				Required: []string{"relative_id", "key"},
			}),
	}
}
