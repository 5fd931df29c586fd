package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

func snapshot(relatives []model.Relative, relationships []model.Relationship) Snapshot {
	return Snapshot{Relatives: relatives, Relationships: relationships}
}

func TestValidateRelationshipRequiredFields(t *testing.T) {
	v := NewValidator(Snapshot{})

	verdict := v.Validate(&CreateRelationship{})
	assert.False(t, verdict.Valid())

	verdict = v.Validate(&CreateRelationship{From: RefID(1), To: RefID(2)})
	assert.False(t, verdict.Valid(), "missing kind must be a hard error")
}

func TestValidateSelfReference(t *testing.T) {
	v := NewValidator(Snapshot{})

	verdict := v.Validate(&CreateRelationship{From: RefID(5), To: RefID(5), Kind: kinship.Brother})
	assert.False(t, verdict.Valid())

	// Same cleaned name on both sides counts as self-reference too.
	verdict = v.Validate(&CreateRelationship{From: RefName("<Anna>"), To: RefName("Anna"), Kind: kinship.Sister})
	assert.False(t, verdict.Valid())

	// Different people with a shared first name are fine.
	verdict = v.Validate(&CreateRelationship{From: RefName("Anna Petrova"), To: RefName("Anna Ivanova"), Kind: kinship.Sister})
	assert.True(t, verdict.Valid())
}

func TestValidateTargetGender(t *testing.T) {
	snap := snapshot([]model.Relative{
		{ID: 1, FirstName: "Ivan", Gender: model.GenderMale},
		{ID: 2, FirstName: "Maria", Gender: model.GenderFemale},
		{ID: 3, FirstName: "Sasha", Gender: model.GenderOther},
	}, nil)
	v := NewValidator(snap)

	// The gender rule checks the to side of the edge.
	verdict := v.Validate(&CreateRelationship{From: RefID(2), To: RefID(1), Kind: kinship.Mother})
	assert.False(t, verdict.Valid(), "male target cannot take a female-only kind")

	verdict = v.Validate(&CreateRelationship{From: RefID(1), To: RefID(2), Kind: kinship.Father})
	assert.False(t, verdict.Valid(), "female target cannot take a male-only kind")

	verdict = v.Validate(&CreateRelationship{From: RefID(1), To: RefID(2), Kind: kinship.Mother})
	assert.True(t, verdict.Valid())

	// "other" gender is never constrained.
	verdict = v.Validate(&CreateRelationship{From: RefID(1), To: RefID(3), Kind: kinship.Mother})
	assert.True(t, verdict.Valid())
}

func TestValidateUnknownKindWarnsOnly(t *testing.T) {
	v := NewValidator(Snapshot{})

	verdict := v.Validate(&CreateRelationship{From: RefID(1), To: RefID(2), Kind: "shaman"})
	assert.True(t, verdict.Valid())
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "shaman")
}

func TestValidateBiologicalParentCap(t *testing.T) {
	// Relative 1 already has two biological parents, 2 and 3.
	snap := snapshot(
		[]model.Relative{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		[]model.Relationship{
			{ID: 10, FromID: 2, ToID: 1, Kind: kinship.Mother},
			{ID: 11, FromID: 3, ToID: 1, Kind: kinship.Father},
		},
	)
	v := NewValidator(snap)

	verdict := v.Validate(&CreateRelationship{From: RefID(4), To: RefID(1), Kind: kinship.Parent})
	assert.False(t, verdict.Valid(), "third biological parent must be rejected")

	// Step-parents do not count against the cap.
	verdict = v.Validate(&CreateRelationship{From: RefID(4), To: RefID(1), Kind: kinship.Stepfather})
	assert.True(t, verdict.Valid())
}

func TestValidateDuplicatePair(t *testing.T) {
	snap := snapshot(
		[]model.Relative{{ID: 1}, {ID: 2}},
		[]model.Relationship{{ID: 10, FromID: 1, ToID: 2, Kind: kinship.Brother}},
	)
	v := NewValidator(snap)

	verdict := v.Validate(&CreateRelationship{From: RefID(1), To: RefID(2), Kind: kinship.Uncle})
	assert.False(t, verdict.Valid())

	// The reverse direction is a different edge and is allowed.
	verdict = v.Validate(&CreateRelationship{From: RefID(2), To: RefID(1), Kind: kinship.Brother})
	assert.True(t, verdict.Valid())
}

func TestValidateExclusiveKinds(t *testing.T) {
	snap := snapshot(
		[]model.Relative{{ID: 1}, {ID: 2}},
		[]model.Relationship{{ID: 10, FromID: 1, ToID: 2, Kind: kinship.Brother}},
	)
	v := NewValidator(snap)

	// 1 is already recorded as 2's brother; recording 1 as 2's sister on the
	// same ordered pair is contradictory.
	verdict := v.Validate(&CreateRelationship{From: RefID(1), To: RefID(2), Kind: kinship.Sister})
	require.False(t, verdict.Valid())
	assert.Contains(t, verdict.Errors[len(verdict.Errors)-1], "cannot be both")

	// The reverse pair describes a different person and stays legal:
	// 1 is 2's brother, 2 is 1's sister.
	verdict = v.Validate(&CreateRelationship{From: RefID(2), To: RefID(1), Kind: kinship.Sister})
	assert.True(t, verdict.Valid())
}

func TestValidateParentChildCycle(t *testing.T) {
	snap := snapshot(
		[]model.Relative{{ID: 1, Gender: model.GenderMale}, {ID: 2, Gender: model.GenderMale}},
		[]model.Relationship{{ID: 10, FromID: 1, ToID: 2, Kind: kinship.Father}},
	)
	v := NewValidator(snap)

	// 1 is father of 2, so 2 cannot also be a parent of 1.
	verdict := v.Validate(&CreateRelationship{From: RefID(2), To: RefID(1), Kind: kinship.Father})
	assert.False(t, verdict.Valid())

	// The consistent inverse edge is fine.
	verdict = v.Validate(&CreateRelationship{From: RefID(2), To: RefID(1), Kind: kinship.Son})
	assert.True(t, verdict.Valid())
}

func TestValidateCreateRelativeSlotWarning(t *testing.T) {
	v := NewValidator(Snapshot{})

	verdict := v.Validate(&CreateRelative{})
	assert.True(t, verdict.Valid(), "empty slot relatives are allowed")
	assert.NotEmpty(t, verdict.Warnings)

	verdict = v.Validate(&CreateRelative{FirstName: "Anna", LastName: "Petrova"})
	assert.Empty(t, verdict.All())
}

func TestValidateStoryActions(t *testing.T) {
	v := NewValidator(Snapshot{})

	assert.False(t, v.Validate(&AddStory{Relative: RefID(1), Key: "Biography"}).Valid())
	assert.True(t, v.Validate(&AddStory{Relative: RefID(1), Key: "Biography", Value: "Born in 1950"}).Valid())

	assert.False(t, v.Validate(&DeleteStory{Relative: RefID(1)}).Valid())
	assert.True(t, v.Validate(&DeleteStory{Relative: RefID(1), Key: "Biography"}).Valid())
}

func TestValidateReadOnlyActionsAlwaysValid(t *testing.T) {
	v := NewValidator(Snapshot{})
	for _, a := range []Action{&GetAllRelatives{}, &GetRelationships{}, &SearchRelatives{}, &GetRelative{}} {
		assert.True(t, v.Validate(a).Valid(), a.Name())
	}
}
