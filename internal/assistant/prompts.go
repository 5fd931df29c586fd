package assistant

import (
	"fmt"
	"strings"

	"github.com/genetree-ai/genetree/internal/kinship"
)

const chatSystemPrompt = `You are the GeneTree assistant, a knowledgeable and patient genealogist helping the user build and maintain their family tree.

Language: answer in the language of the last user message. Use Markdown.

RULES FOR USING TOOLS:
1. When the user asks to fetch, search, create, update or delete anything, CALL the corresponding tool. Never claim you did something without calling it.
2. You may chain tools across turns: find a person, read their id from the result, then act on that id.
3. If you need an id you don't know, call search_relatives or get_all_relatives first.
4. Set generation correctly: user=0, parents=1, grandparents=2, children=-1.
5. Before creating a relative, check the current tree below for duplicates; reuse the existing id instead of creating a copy.
6. A relative created this turn gets its id in the tool result — use that id for follow-up actions on the next turn.
7. If the relationship type is unclear ("a relative of mine"), ask who the person is rather than guessing.
8. When actions are pending user confirmation this is normal; do not apologize, just ask the user to approve.
9. Relationship direction: from_relative is <type> of to_relative. "My mother Anna" becomes from=Anna, to=the user, type=mother.

Keep action commentary short — the user sees each action as a card. Confirm briefly: "Found 2 relatives." or "Story deleted."

USER'S CURRENT TREE
%s

AVAILABLE RELATIONSHIP TYPES
%s`

const generateSystemPrompt = `You are an assistant that turns a prose description of a family into structured tree data.

RULES:
1. Assign each person a unique temp_id (person_1, person_2, ...).
2. "I" / "my" is the user; mark them with is_user: true.
3. Infer gender from names and roles (father/mother, brother/sister).
4. Extract middle names / patronymics when present.
5. Estimate generation relative to the user (user=0, parents=1, children=-1).
6. Relationships read as: from is <type> of to ("my mother Anna" = from Anna, to the user, type mother).

AVAILABLE RELATIONSHIP TYPES
%s

Respond ONLY with valid JSON, no markdown:
{
  "relatives": [{"temp_id": "person_1", "first_name": "...", "last_name": "...", "gender": "male", "is_user": false}],
  "relationships": [{"from_temp_id": "person_1", "to_temp_id": "person_2", "relationship_type": "mother"}],
  "validation_warnings": []
}`

func kindList() string {
	var b strings.Builder
	for _, k := range kinship.All {
		fmt.Fprintf(&b, "- %s\n", k)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ChatSystemPrompt renders the tool-mode system prompt with the user's
// current tree inlined.
func ChatSystemPrompt(snap Snapshot) string {
	return fmt.Sprintf(chatSystemPrompt, formatTreeContext(snap), kindList())
}

// GenerateSystemPrompt renders the tree-generation system prompt.
func GenerateSystemPrompt() string {
	return fmt.Sprintf(generateSystemPrompt, kindList())
}

// formatTreeContext summarizes the snapshot for the system prompt: one line
// per relative, one per relationship.
func formatTreeContext(snap Snapshot) string {
	if len(snap.Relatives) == 0 {
		return "The tree is empty. The user has not added any relatives yet."
	}

	var b strings.Builder
	b.WriteString("Current relatives:\n")
	for _, r := range snap.Relatives {
		born := "not specified"
		if r.BirthDate != nil {
			born = r.BirthDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "- ID:%d | %s | %s | born %s", r.ID, r.DisplayName(), r.Gender, born)
		if r.Generation != nil {
			fmt.Fprintf(&b, " | Gen:%d", *r.Generation)
		}
		if len(r.Stories) > 0 {
			titles := make([]string, 0, len(r.Stories))
			for k := range r.Stories {
				titles = append(titles, k)
			}
			fmt.Fprintf(&b, " | Stories: %s", strings.Join(titles, ", "))
		}
		b.WriteString("\n")
	}

	if len(snap.Relationships) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, rel := range snap.Relationships {
			fmt.Fprintf(&b, "- ID:%d -> ID:%d (%s)\n", rel.FromID, rel.ToID, rel.Kind)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
