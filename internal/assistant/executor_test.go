package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

func newTestExecutor(store *memStore) *Executor {
	return NewExecutor(1, store, testLogger())
}

func TestExecuteCreateRelative(t *testing.T) {
	store := newMemStore()
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &CreateRelative{
		FirstName: "Anna", LastName: "Petrova", Gender: "female",
		BirthDate: "1950-03-14", Generation: intPtr(1),
	})
	require.Empty(t, res.Error)
	assert.True(t, res.Success)
	assert.Equal(t, "Anna Petrova", res.Name)

	saved, err := store.GetRelative(context.Background(), 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GenderFemale, saved.Gender)
	require.NotNil(t, saved.BirthDate)
	assert.Equal(t, "1950-03-14", saved.BirthDate.Format("2006-01-02"))
}

func TestExecuteCreateRelativeBadDateIgnored(t *testing.T) {
	store := newMemStore()
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &CreateRelative{FirstName: "Ivan", BirthDate: "March 1950"})
	require.True(t, res.Success)

	saved, err := store.GetRelative(context.Background(), 1, res.ID)
	require.NoError(t, err)
	assert.Nil(t, saved.BirthDate)
}

func TestExecuteUpdateRelativeByName(t *testing.T) {
	store := newMemStore()
	anna := store.seedRelative(model.Relative{FirstName: "Anna", LastName: "Petrova"})
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &UpdateRelative{
		Relative:  RefName("Anna"),
		BirthDate: strPtr("1950-03-14"),
	})
	require.Empty(t, res.Error)
	assert.Equal(t, anna.ID, res.ID)

	saved, _ := store.GetRelative(context.Background(), 1, anna.ID)
	require.NotNil(t, saved.BirthDate)
}

func TestExecuteUpdateRelativeNoFields(t *testing.T) {
	store := newMemStore()
	store.seedRelative(model.Relative{FirstName: "Anna"})
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &UpdateRelative{Relative: RefName("Anna")})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no fields")
}

func TestExecuteUnresolvedReference(t *testing.T) {
	store := newMemStore()
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &DeleteRelative{Relative: RefName("Nobody")})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
	assert.Empty(t, store.mutations, "failed resolution must not write")
}

func TestExecuteDeleteRelationshipUndirected(t *testing.T) {
	store := newMemStore()
	a := store.seedRelative(model.Relative{FirstName: "Anna"})
	b := store.seedRelative(model.Relative{FirstName: "Boris"})
	edge := store.seedRelationship(a.ID, b.ID, kinship.Sister)
	e := newTestExecutor(store)

	// The stored edge runs a->b; deleting "b, a" still matches it.
	res := e.Execute(context.Background(), &DeleteRelationship{From: RefID(b.ID), To: RefID(a.ID)})
	require.Empty(t, res.Error)
	assert.Equal(t, edge.ID, res.ID)

	rels, _ := store.ListRelationships(context.Background(), 1)
	assert.Empty(t, rels)
}

func TestExecuteDeleteRelationshipMissing(t *testing.T) {
	store := newMemStore()
	a := store.seedRelative(model.Relative{FirstName: "Anna"})
	b := store.seedRelative(model.Relative{FirstName: "Boris"})
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &DeleteRelationship{From: RefID(a.ID), To: RefID(b.ID)})
	assert.Contains(t, res.Error, "no relationship found")
}

func TestExecuteStoryLifecycle(t *testing.T) {
	store := newMemStore()
	anna := store.seedRelative(model.Relative{FirstName: "Anna"})
	e := newTestExecutor(store)
	ctx := context.Background()

	res := e.Execute(ctx, &AddStory{Relative: RefID(anna.ID), Key: "War years", Value: "Evacuated in 1941."})
	require.Empty(t, res.Error)

	// Deleting a key that was never added is a distinct failure.
	res = e.Execute(ctx, &DeleteStory{Relative: RefID(anna.ID), Key: "Biography"})
	assert.Contains(t, res.Error, `story "Biography" not found`)

	res = e.Execute(ctx, &DeleteStory{Relative: RefID(anna.ID), Key: "War years"})
	require.Empty(t, res.Error)
	assert.Equal(t, "War years", res.DeletedKey)

	saved, _ := store.GetRelative(ctx, 1, anna.ID)
	assert.NotContains(t, saved.Stories, "War years")
}

func TestExecuteGetAllRelativesDefaultsToActive(t *testing.T) {
	store := newMemStore()
	store.seedRelative(model.Relative{FirstName: "Anna"})
	gone := store.seedRelative(model.Relative{FirstName: "Boris"})
	e := newTestExecutor(store)
	ctx := context.Background()

	require.Empty(t, e.Execute(ctx, &DeleteRelative{Relative: RefID(gone.ID)}).Error)

	res := e.Execute(ctx, &GetAllRelatives{})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Count)

	res = e.Execute(ctx, &GetAllRelatives{OnlyActive: boolPtr(false)})
	assert.Equal(t, 2, res.Count)
}

func TestExecuteSearchRelatives(t *testing.T) {
	store := newMemStore()
	store.seedRelative(model.Relative{FirstName: "Anna", LastName: "Petrova"})
	store.seedRelative(model.Relative{FirstName: "Boris", LastName: "Petrov"})
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &SearchRelatives{SearchTerm: "petrov"})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Count)

	res = e.Execute(context.Background(), &SearchRelatives{})
	assert.Contains(t, res.Error, "search_term")
}

func TestExecuteGetRelativeIncludesStories(t *testing.T) {
	store := newMemStore()
	anna := store.seedRelative(model.Relative{FirstName: "Anna", Stories: map[string]string{"Biography": "Born 1950."}})
	e := newTestExecutor(store)

	res := e.Execute(context.Background(), &GetRelative{Relative: RefID(anna.ID)})
	require.True(t, res.Success)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	stories, ok := data["stories"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Born 1950.", stories["Biography"])
}
