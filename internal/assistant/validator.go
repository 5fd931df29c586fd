package assistant

import (
	"fmt"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

// Snapshot is the in-memory copy of a user's tree the validator reasons
// over. It is read once when the loop starts and not refreshed mid-request:
// ids created during the run come back to the model through tool results,
// not through the snapshot.
type Snapshot struct {
	Relatives     []model.Relative
	Relationships []model.Relationship
}

// Verdict is a validation outcome with two channels: Errors block automatic
// execution, Warnings are informational. Both are surfaced to the caller
// and to the model so it can self-correct.
type Verdict struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the action may execute automatically.
func (v Verdict) Valid() bool { return len(v.Errors) == 0 }

// All returns errors followed by warnings, for streaming to the caller.
func (v Verdict) All() []string {
	out := make([]string, 0, len(v.Errors)+len(v.Warnings))
	out = append(out, v.Errors...)
	return append(out, v.Warnings...)
}

func (v *Verdict) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Verdict) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Validator checks proposed actions against a tree snapshot.
type Validator struct {
	snap Snapshot
}

// NewValidator creates a validator over snap.
func NewValidator(snap Snapshot) *Validator {
	return &Validator{snap: snap}
}

// Validate checks a single action. Only relationship creation and the
// required-field rules produce verdicts; every other action type is
// unconditionally valid here and fails, if at all, at execution time.
func (val *Validator) Validate(a Action) Verdict {
	var v Verdict
	switch a := a.(type) {
	case *CreateRelationship:
		val.validateRelationship(a, &v)
	case *CreateRelative:
		// Placeholder "slot" relatives without names are allowed; flag
		// them but do not block.
		if a.FirstName == "" || a.LastName == "" {
			v.warnf("relative has no first or last name; it will appear as an empty slot")
		}
	case *UpdateRelative:
		if a.Relative.IsZero() {
			v.errorf("relative_id is required for update_relative")
		}
	case *AddStory:
		if a.Relative.IsZero() || a.Key == "" || a.Value == "" {
			v.errorf("relative_id, key and value are required for add_story")
		}
	case *DeleteStory:
		if a.Relative.IsZero() || a.Key == "" {
			v.errorf("relative_id and key are required for delete_story")
		}
	}
	return v
}

func (val *Validator) validateRelationship(a *CreateRelationship, v *Verdict) {
	if a.From.IsZero() || a.To.IsZero() || a.Kind == "" {
		v.errorf("from_relative_id, to_relative_id and relationship_type are required")
		return
	}
	if !kinship.Known(a.Kind) {
		v.warnf("unknown relationship type %q; gender and conflict rules were not checked", a.Kind)
	}

	fromID, fromOK := a.From.NumericID()
	toID, toOK := a.To.NumericID()

	// Self-reference is never valid, whether by id or by identical name.
	if fromOK && toOK && fromID == toID {
		v.errorf("a person cannot have a relationship with themselves")
	} else if !fromOK && !toOK && cleanReference(a.From.text) == cleanReference(a.To.text) {
		v.errorf("a person cannot have a relationship with themselves")
	}

	// Snapshot checks need concrete ids; name references are resolved later
	// by the executor and checked there against storage constraints.
	if toOK {
		// The gender rule applies to the target: for from=Ivan, to=Maria,
		// kind=mother it is Maria who must be female.
		if target := val.findRelative(toID); target != nil {
			switch {
			case target.Gender == model.GenderMale && kinship.FemaleOnly(a.Kind):
				v.errorf("a male cannot be %q", a.Kind)
			case target.Gender == model.GenderFemale && kinship.MaleOnly(a.Kind):
				v.errorf("a female cannot be %q", a.Kind)
			}
		}

		// Biological-parent edges point at the child; two of them exhaust
		// the slot.
		if kinship.IsBiologicalParent(a.Kind) {
			parents := 0
			for _, rel := range val.snap.Relationships {
				if rel.ToID == toID && kinship.IsBiologicalParent(rel.Kind) {
					parents++
				}
			}
			if parents >= 2 {
				v.errorf("this person already has 2 biological parents")
			}
		}
	}

	if fromOK && toOK {
		for _, rel := range val.snap.Relationships {
			if rel.FromID == fromID && rel.ToID == toID {
				v.errorf("a relationship already exists between these relatives")
				break
			}
		}

		// Contradictory kinds on the same ordered pair: the same person
		// cannot be both brother and sister of someone. The reverse
		// direction is a different person bearing the kind and is fine.
		for _, rel := range val.snap.Relationships {
			if rel.FromID != fromID || rel.ToID != toID {
				continue
			}
			if kinship.Excludes(rel.Kind, a.Kind) {
				v.errorf("conflict: cannot be both %q and %q for the same person", a.Kind, rel.Kind)
			}
		}

		// Parent one way plus parent (or child plus child) the other way
		// would make the pair mutually ancestral.
		for _, rel := range val.snap.Relationships {
			if rel.FromID != toID || rel.ToID != fromID {
				continue
			}
			if (kinship.IsParent(a.Kind) && kinship.IsParent(rel.Kind)) ||
				(kinship.IsChild(a.Kind) && kinship.IsChild(rel.Kind)) {
				v.errorf("conflict: a person cannot be both parent and child of the same person")
			}
		}
	}
}

func (val *Validator) findRelative(id int64) *model.Relative {
	for i := range val.snap.Relatives {
		if val.snap.Relatives[i].ID == id {
			return &val.snap.Relatives[i]
		}
	}
	return nil
}
