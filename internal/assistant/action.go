package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/genetree-ai/genetree/internal/kinship"
)

// PersonRef is a loose reference to a relative as supplied by the model:
// a numeric id, a numeric string, or a (possibly bracketed) name. It stays
// unresolved until the resolver turns it into a concrete id.
type PersonRef struct {
	id    int64
	hasID bool
	text  string
}

// RefID builds a PersonRef from a known id.
func RefID(id int64) PersonRef { return PersonRef{id: id, hasID: true} }

// RefName builds a PersonRef from a name.
func RefName(name string) PersonRef { return PersonRef{text: name} }

// UnmarshalJSON accepts either a JSON number or a JSON string, mirroring the
// `["integer","string"]` parameter type the tool catalog advertises.
func (r *PersonRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = PersonRef{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("person ref: %w", err)
		}
		*r = PersonRef{text: s}
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("person ref: expected id or name, got %s", string(b))
	}
	*r = PersonRef{id: n, hasID: true}
	return nil
}

// MarshalJSON writes the reference back in the form it arrived.
func (r PersonRef) MarshalJSON() ([]byte, error) {
	if r.hasID {
		return []byte(strconv.FormatInt(r.id, 10)), nil
	}
	return json.Marshal(r.text)
}

// IsZero reports whether the reference is empty.
func (r PersonRef) IsZero() bool { return !r.hasID && r.text == "" }

// NumericID returns the referenced id when the reference is already numeric,
// either a JSON number or a digits-only string.
func (r PersonRef) NumericID() (int64, bool) {
	if r.hasID {
		return r.id, true
	}
	s := strings.TrimSpace(r.text)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r PersonRef) String() string {
	if r.hasID {
		return strconv.FormatInt(r.id, 10)
	}
	return r.text
}

// Action is one requested intent from the model. The set of implementations
// is closed: ParseAction is the only constructor, and the executor's type
// switch covers every variant.
type Action interface {
	// Name is the wire-level action type, identical to the tool name.
	Name() string
	// ReadOnly reports whether the action never mutates the tree.
	// Read-only actions execute even when auto-accept is off.
	ReadOnly() bool
	isAction()
}

// CreateRelative adds a person to the tree. Names may be empty: the UI
// supports placeholder "slot" relatives that get filled in later.
type CreateRelative struct {
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	MiddleName *string `json:"middle_name,omitempty"`
	Gender     string  `json:"gender,omitempty"`
	BirthDate  string  `json:"birth_date,omitempty"`
	DeathDate  string  `json:"death_date,omitempty"`
	Generation *int    `json:"generation,omitempty"`
}

// UpdateRelative patches an existing person; nil fields are untouched.
type UpdateRelative struct {
	Relative   PersonRef `json:"relative_id"`
	FirstName  *string   `json:"first_name,omitempty"`
	LastName   *string   `json:"last_name,omitempty"`
	MiddleName *string   `json:"middle_name,omitempty"`
	Gender     *string   `json:"gender,omitempty"`
	BirthDate  *string   `json:"birth_date,omitempty"`
	DeathDate  *string   `json:"death_date,omitempty"`
	Generation *int      `json:"generation,omitempty"`
}

// DeleteRelative soft-deletes a person.
type DeleteRelative struct {
	Relative PersonRef `json:"relative_id"`
}

// CreateRelationship links From to To, read as "From is <Kind> of To":
// from=Anna, to=Ivan, kind=mother records that Anna is Ivan's mother.
type CreateRelationship struct {
	From PersonRef    `json:"from_relative_id"`
	To   PersonRef    `json:"to_relative_id"`
	Kind kinship.Kind `json:"relationship_type"`
}

// DeleteRelationship removes the link between two people. The stored edge
// may point in either direction; the executor matches the pair undirected.
type DeleteRelationship struct {
	From PersonRef `json:"from_relative_id"`
	To   PersonRef `json:"to_relative_id"`
}

// AddStory attaches a titled story to a person.
type AddStory struct {
	Relative PersonRef `json:"relative_id"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
}

// DeleteStory removes a titled story from a person.
type DeleteStory struct {
	Relative PersonRef `json:"relative_id"`
	Key      string    `json:"key"`
}

// GetRelative fetches one person's details.
type GetRelative struct {
	Relative PersonRef `json:"relative_id"`
}

// GetAllRelatives lists the user's relatives.
type GetAllRelatives struct {
	// OnlyActive defaults to true when absent.
	OnlyActive *bool `json:"only_active,omitempty"`
}

// GetRelationships lists all relationship edges.
type GetRelationships struct{}

// SearchRelatives finds relatives by name substring.
type SearchRelatives struct {
	SearchTerm string `json:"search_term"`
}

func (CreateRelative) Name() string     { return "create_relative" }
func (UpdateRelative) Name() string     { return "update_relative" }
func (DeleteRelative) Name() string     { return "delete_relative" }
func (CreateRelationship) Name() string { return "create_relationship" }
func (DeleteRelationship) Name() string { return "delete_relationship" }
func (AddStory) Name() string           { return "add_story" }
func (DeleteStory) Name() string        { return "delete_story" }
func (GetRelative) Name() string        { return "get_relative" }
func (GetAllRelatives) Name() string    { return "get_all_relatives" }
func (GetRelationships) Name() string   { return "get_relationships" }
func (SearchRelatives) Name() string    { return "search_relatives" }

func (CreateRelative) ReadOnly() bool     { return false }
func (UpdateRelative) ReadOnly() bool     { return false }
func (DeleteRelative) ReadOnly() bool     { return false }
func (CreateRelationship) ReadOnly() bool { return false }
func (DeleteRelationship) ReadOnly() bool { return false }
func (AddStory) ReadOnly() bool           { return false }
func (DeleteStory) ReadOnly() bool        { return false }
func (GetRelative) ReadOnly() bool        { return true }
func (GetAllRelatives) ReadOnly() bool    { return true }
func (GetRelationships) ReadOnly() bool   { return true }
func (SearchRelatives) ReadOnly() bool    { return true }

func (CreateRelative) isAction()     {}
func (UpdateRelative) isAction()     {}
func (DeleteRelative) isAction()     {}
func (CreateRelationship) isAction() {}
func (DeleteRelationship) isAction() {}
func (AddStory) isAction()           {}
func (DeleteStory) isAction()        {}
func (GetRelative) isAction()        {}
func (GetAllRelatives) isAction()    {}
func (GetRelationships) isAction()   {}
func (SearchRelatives) isAction()    {}

// ParseAction decodes a tool call into its typed action. Unknown names and
// malformed argument JSON are per-call errors; the loop reports them to the
// model and moves on.
func ParseAction(name string, args []byte) (Action, error) {
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}
	decode := func(dst Action) (Action, error) {
		if err := json.Unmarshal(args, dst); err != nil {
			return nil, fmt.Errorf("assistant: parse %s arguments: %w", name, err)
		}
		return dst, nil
	}

	switch name {
	case "create_relative":
		return decode(&CreateRelative{})
	case "update_relative":
		return decode(&UpdateRelative{})
	case "delete_relative":
		return decode(&DeleteRelative{})
	case "create_relationship":
		return decode(&CreateRelationship{})
	case "delete_relationship":
		return decode(&DeleteRelationship{})
	case "add_story":
		return decode(&AddStory{})
	case "delete_story":
		return decode(&DeleteStory{})
	case "get_relative":
		return decode(&GetRelative{})
	case "get_all_relatives":
		return decode(&GetAllRelatives{})
	case "get_relationships":
		return decode(&GetRelationships{})
	case "search_relatives":
		return decode(&SearchRelatives{})
	default:
		return nil, fmt.Errorf("assistant: unknown action %q", name)
	}
}
