package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/genetree-ai/genetree/internal/auth"
	"github.com/genetree-ai/genetree/internal/ctxutil"
	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
	"github.com/genetree-ai/genetree/internal/storage"
)

const testUserID int64 = 7

// fakeStore is an in-memory assistant.Store for handler tests.
type fakeStore struct {
	nextID        int64
	relatives     map[int64]model.Relative
	relationships map[int64]model.Relationship
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		relatives:     map[int64]model.Relative{},
		relationships: map[int64]model.Relationship{},
	}
}

func (f *fakeStore) CreateRelative(_ context.Context, userID int64, in model.RelativeCreate) (model.Relative, error) {
	f.nextID++
	gender := in.Gender
	if gender == "" {
		gender = model.GenderOther
	}
	r := model.Relative{
		ID:         f.nextID,
		UserID:     userID,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		MiddleName: in.MiddleName,
		Gender:     gender,
		BirthDate:  in.BirthDate,
		DeathDate:  in.DeathDate,
		Generation: in.Generation,
		Stories:    map[string]string{},
		IsActive:   true,
	}
	f.relatives[r.ID] = r
	return r, nil
}

func (f *fakeStore) UpdateRelative(_ context.Context, userID, relativeID int64, in model.RelativeUpdate) error {
	r, ok := f.relatives[relativeID]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	if in.FirstName != nil {
		r.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		r.LastName = *in.LastName
	}
	if in.MiddleName != nil {
		r.MiddleName = in.MiddleName
	}
	if in.Gender != nil {
		r.Gender = *in.Gender
	}
	if in.BirthDate != nil {
		r.BirthDate = in.BirthDate
	}
	if in.DeathDate != nil {
		r.DeathDate = in.DeathDate
	}
	if in.Generation != nil {
		r.Generation = in.Generation
	}
	f.relatives[relativeID] = r
	return nil
}

func (f *fakeStore) DeleteRelative(_ context.Context, userID, relativeID int64) error {
	r, ok := f.relatives[relativeID]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	r.IsActive = false
	f.relatives[relativeID] = r
	for id, rel := range f.relationships {
		if rel.FromID == relativeID || rel.ToID == relativeID {
			delete(f.relationships, id)
		}
	}
	return nil
}

func (f *fakeStore) GetRelative(_ context.Context, userID, relativeID int64) (model.Relative, error) {
	r, ok := f.relatives[relativeID]
	if !ok || r.UserID != userID {
		return model.Relative{}, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRelatives(_ context.Context, userID int64, onlyActive bool) ([]model.Relative, error) {
	var out []model.Relative
	for _, r := range f.relatives {
		if r.UserID != userID {
			continue
		}
		if onlyActive && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) SearchRelatives(_ context.Context, userID int64, term string) ([]model.Relative, error) {
	term = strings.ToLower(term)
	var out []model.Relative
	for _, r := range f.relatives {
		if r.UserID != userID || !r.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(r.FirstName), term) ||
			strings.Contains(strings.ToLower(r.LastName), term) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) SetStory(_ context.Context, userID, relativeID int64, key, value string) error {
	r, ok := f.relatives[relativeID]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	r.Stories[key] = value
	return nil
}

func (f *fakeStore) DeleteStory(_ context.Context, userID, relativeID int64, key string) error {
	r, ok := f.relatives[relativeID]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	delete(r.Stories, key)
	return nil
}

func (f *fakeStore) CreateRelationship(_ context.Context, userID, fromID, toID int64, kind kinship.Kind) (model.Relationship, error) {
	f.nextID++
	rel := model.Relationship{ID: f.nextID, UserID: userID, FromID: fromID, ToID: toID, Kind: kind, IsActive: true}
	f.relationships[rel.ID] = rel
	return rel, nil
}

func (f *fakeStore) DeleteRelationship(_ context.Context, userID, relationshipID int64) error {
	rel, ok := f.relationships[relationshipID]
	if !ok || rel.UserID != userID {
		return storage.ErrNotFound
	}
	delete(f.relationships, relationshipID)
	return nil
}

func (f *fakeStore) ListRelationships(_ context.Context, userID int64) ([]model.Relationship, error) {
	var out []model.Relationship
	for _, rel := range f.relationships {
		if rel.UserID == userID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func newTestServer() (*Server, *fakeStore) {
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger), store
}

// userCtx returns a context carrying the claims the auth middleware would set.
func userCtx() context.Context {
	return ctxutil.WithClaims(context.Background(), &auth.Claims{UserID: testUserID})
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func seedRelative(t *testing.T, store *fakeStore, first, last string, gender model.Gender) model.Relative {
	t.Helper()
	r, err := store.CreateRelative(context.Background(), testUserID, model.RelativeCreate{
		FirstName: first, LastName: last, Gender: gender,
	})
	require.NoError(t, err)
	return r
}

func TestCreateRelativeTool(t *testing.T) {
	srv, store := newTestServer()

	result, err := srv.handleCreateRelative(userCtx(), toolRequest("genetree_create_relative", map[string]any{
		"first_name": "Anna",
		"last_name":  "Petrova",
		"gender":     "female",
		"birth_date": "1950-03-14",
		"generation": 1,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var res struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &res))
	assert.True(t, res.Success)

	saved := store.relatives[res.ID]
	assert.Equal(t, "Anna", saved.FirstName)
	assert.Equal(t, model.GenderFemale, saved.Gender)
	require.NotNil(t, saved.Generation)
	assert.Equal(t, 1, *saved.Generation)
}

func TestCreateRelationshipToolBlocksDuplicatePair(t *testing.T) {
	srv, store := newTestServer()
	anna := seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)
	ivan := seedRelative(t, store, "Ivan", "Petrov", model.GenderMale)
	_, err := store.CreateRelationship(context.Background(), testUserID, anna.ID, ivan.ID, kinship.Mother)
	require.NoError(t, err)

	result, err := srv.handleCreateRelationship(userCtx(), toolRequest("genetree_create_relationship", map[string]any{
		"from_relative_id":  int(anna.ID),
		"to_relative_id":    int(ivan.ID),
		"relationship_type": "grandmother",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "already exists")
	assert.Len(t, store.relationships, 1)
}

func TestCreateRelationshipToolBlocksGenderMismatch(t *testing.T) {
	srv, store := newTestServer()
	seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)
	ivan := seedRelative(t, store, "Ivan", "Petrov", model.GenderMale)

	// mother pointing at a male target violates the gender rule.
	result, err := srv.handleCreateRelationship(userCtx(), toolRequest("genetree_create_relationship", map[string]any{
		"from_relative_id":  "Anna",
		"to_relative_id":    int(ivan.ID),
		"relationship_type": "mother",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	text := parseToolText(t, result)
	assert.Contains(t, text, "validation failed")
	assert.Contains(t, text, "male")
	assert.Empty(t, store.relationships, "nothing persisted for a blocked link")
}

func TestCreateRelationshipToolSucceeds(t *testing.T) {
	srv, store := newTestServer()
	anna := seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)
	ivan := seedRelative(t, store, "Ivan", "Petrov", model.GenderMale)

	result, err := srv.handleCreateRelationship(userCtx(), toolRequest("genetree_create_relationship", map[string]any{
		"from_relative_id":  "Anna",
		"to_relative_id":    "Ivan",
		"relationship_type": "mother",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	require.Len(t, store.relationships, 1)
	for _, rel := range store.relationships {
		assert.Equal(t, anna.ID, rel.FromID, "Anna is the mother, so the edge leaves her")
		assert.Equal(t, ivan.ID, rel.ToID)
		assert.Equal(t, kinship.Mother, rel.Kind)
	}
}

func TestCreateRelationshipToolWarnsUnknownKind(t *testing.T) {
	srv, store := newTestServer()
	seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)
	seedRelative(t, store, "Ivan", "Petrov", model.GenderMale)

	result, err := srv.handleCreateRelationship(userCtx(), toolRequest("genetree_create_relationship", map[string]any{
		"from_relative_id":  "Anna",
		"to_relative_id":    "Ivan",
		"relationship_type": "godparent",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var res struct {
		Success  bool     `json:"success"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &res))
	assert.True(t, res.Success, "unknown kinds warn but do not block")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "godparent")
}

func TestUpdateRelativeToolPatchesOnlyPassedFields(t *testing.T) {
	srv, store := newTestServer()
	anna := seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)

	result, err := srv.handleUpdateRelative(userCtx(), toolRequest("genetree_update_relative", map[string]any{
		"relative_id": "Anna",
		"last_name":   "Ivanova",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	saved := store.relatives[anna.ID]
	assert.Equal(t, "Anna", saved.FirstName, "fields not passed stay untouched")
	assert.Equal(t, "Ivanova", saved.LastName)
}

func TestStoryToolsRoundTrip(t *testing.T) {
	srv, store := newTestServer()
	anna := seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)

	result, err := srv.handleAddStory(userCtx(), toolRequest("genetree_add_story", map[string]any{
		"relative_id": int(anna.ID),
		"key":         "War years",
		"value":       "Evacuated in 1941.",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Evacuated in 1941.", store.relatives[anna.ID].Stories["War years"])

	result, err = srv.handleDeleteStory(userCtx(), toolRequest("genetree_delete_story", map[string]any{
		"relative_id": int(anna.ID),
		"key":         "Nonexistent",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "deleting a missing story reports an error")
}

func TestGetAllRelativesTool(t *testing.T) {
	srv, store := newTestServer()
	seedRelative(t, store, "Anna", "Petrova", model.GenderFemale)
	boris := seedRelative(t, store, "Boris", "Petrov", model.GenderMale)
	require.NoError(t, store.DeleteRelative(context.Background(), testUserID, boris.ID))

	result, err := srv.handleGetAllRelatives(userCtx(), toolRequest("genetree_get_all_relatives", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var res struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &res))
	assert.Equal(t, 1, res.Count, "removed relatives are hidden by default")

	result, err = srv.handleGetAllRelatives(userCtx(), toolRequest("genetree_get_all_relatives", map[string]any{
		"only_active": false,
	}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &res))
	assert.Equal(t, 2, res.Count)
}

func TestToolsRequireAuthentication(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleGetAllRelatives(context.Background(), toolRequest("genetree_get_all_relatives", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "unauthenticated")
}

func TestSearchRelativesToolRequiresTerm(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleSearchRelatives(userCtx(), toolRequest("genetree_search_relatives", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "search_term")
}
