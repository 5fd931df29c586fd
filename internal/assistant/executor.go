package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/genetree-ai/genetree/internal/model"
)

// Result is the normalized outcome of one action attempt. It is created
// fresh per attempt, never mutated after return, and serialized verbatim
// into the tool-role message the model sees on the next turn.
type Result struct {
	Success    bool     `json:"success"`
	Pending    bool     `json:"pending,omitempty"`
	ID         int64    `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Count      int      `json:"count,omitempty"`
	Data       any      `json:"data,omitempty"`
	DeletedKey string   `json:"deleted_key,omitempty"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Executor applies actions to one user's tree. Every failure below it,
// resolution, storage or bad input, is converted into a Result; nothing
// escapes the per-action boundary, so the loop can always continue.
type Executor struct {
	userID   int64
	store    Store
	resolver *Resolver
	log      *slog.Logger
}

// NewExecutor creates an executor scoped to userID.
func NewExecutor(userID int64, store Store, log *slog.Logger) *Executor {
	return &Executor{
		userID:   userID,
		store:    store,
		resolver: NewResolver(store),
		log:      log,
	}
}

// Execute dispatches the action to its handler. The switch is exhaustive
// over the sealed Action set.
func (e *Executor) Execute(ctx context.Context, a Action) Result {
	var res Result
	switch a := a.(type) {
	case *CreateRelative:
		res = e.createRelative(ctx, a)
	case *UpdateRelative:
		res = e.updateRelative(ctx, a)
	case *DeleteRelative:
		res = e.deleteRelative(ctx, a)
	case *CreateRelationship:
		res = e.createRelationship(ctx, a)
	case *DeleteRelationship:
		res = e.deleteRelationship(ctx, a)
	case *AddStory:
		res = e.addStory(ctx, a)
	case *DeleteStory:
		res = e.deleteStory(ctx, a)
	case *GetRelative:
		res = e.getRelative(ctx, a)
	case *GetAllRelatives:
		res = e.getAllRelatives(ctx, a)
	case *GetRelationships:
		res = e.getRelationships(ctx)
	case *SearchRelatives:
		res = e.searchRelatives(ctx, a)
	default:
		res = failure("unknown action %q", a.Name())
	}

	if res.Error != "" {
		e.log.Warn("action failed", "action", a.Name(), "user_id", e.userID, "error", res.Error)
	}
	return res
}

func (e *Executor) resolve(ctx context.Context, ref PersonRef) (int64, *Result) {
	id, err := e.resolver.Resolve(ctx, e.userID, ref)
	if err != nil {
		res := failure("relative not found: %s", ref)
		return 0, &res
	}
	return id, nil
}

func (e *Executor) createRelative(ctx context.Context, a *CreateRelative) Result {
	in := model.RelativeCreate{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		MiddleName: a.MiddleName,
		Gender:     model.ParseGender(a.Gender),
		BirthDate:  parseDate(a.BirthDate),
		DeathDate:  parseDate(a.DeathDate),
		Generation: a.Generation,
	}
	rel, err := e.store.CreateRelative(ctx, e.userID, in)
	if err != nil {
		return failure("create relative: %v", err)
	}
	return Result{Success: true, ID: rel.ID, Name: rel.DisplayName()}
}

func (e *Executor) updateRelative(ctx context.Context, a *UpdateRelative) Result {
	id, fail := e.resolve(ctx, a.Relative)
	if fail != nil {
		return *fail
	}

	var in model.RelativeUpdate
	in.FirstName = a.FirstName
	in.LastName = a.LastName
	in.MiddleName = a.MiddleName
	if a.Gender != nil {
		g := model.ParseGender(*a.Gender)
		in.Gender = &g
	}
	if a.BirthDate != nil {
		in.BirthDate = parseDate(*a.BirthDate)
	}
	if a.DeathDate != nil {
		in.DeathDate = parseDate(*a.DeathDate)
	}
	in.Generation = a.Generation

	if in.IsZero() {
		return failure("no fields to update")
	}
	if err := e.store.UpdateRelative(ctx, e.userID, id, in); err != nil {
		return failure("update relative: %v", err)
	}
	return Result{Success: true, ID: id}
}

func (e *Executor) deleteRelative(ctx context.Context, a *DeleteRelative) Result {
	id, fail := e.resolve(ctx, a.Relative)
	if fail != nil {
		return *fail
	}
	if err := e.store.DeleteRelative(ctx, e.userID, id); err != nil {
		return failure("delete relative: %v", err)
	}
	return Result{Success: true, ID: id}
}

func (e *Executor) createRelationship(ctx context.Context, a *CreateRelationship) Result {
	fromID, fail := e.resolve(ctx, a.From)
	if fail != nil {
		return *fail
	}
	toID, fail := e.resolve(ctx, a.To)
	if fail != nil {
		return *fail
	}
	rel, err := e.store.CreateRelationship(ctx, e.userID, fromID, toID, a.Kind)
	if err != nil {
		return failure("create relationship: %v", err)
	}
	return Result{Success: true, ID: rel.ID}
}

func (e *Executor) deleteRelationship(ctx context.Context, a *DeleteRelationship) Result {
	fromID, fail := e.resolve(ctx, a.From)
	if fail != nil {
		return *fail
	}
	toID, fail := e.resolve(ctx, a.To)
	if fail != nil {
		return *fail
	}

	// The action names the pair, not the edge. The stored edge may run in
	// either direction, so match undirected and delete by id.
	rels, err := e.store.ListRelationships(ctx, e.userID)
	if err != nil {
		return failure("list relationships: %v", err)
	}
	for _, rel := range rels {
		if rel.Links(fromID, toID) {
			if err := e.store.DeleteRelationship(ctx, e.userID, rel.ID); err != nil {
				return failure("delete relationship: %v", err)
			}
			return Result{Success: true, ID: rel.ID}
		}
	}
	return failure("no relationship found between relatives %d and %d", fromID, toID)
}

func (e *Executor) addStory(ctx context.Context, a *AddStory) Result {
	id, fail := e.resolve(ctx, a.Relative)
	if fail != nil {
		return *fail
	}
	if a.Key == "" || a.Value == "" {
		return failure("story key and value are required")
	}
	if err := e.store.SetStory(ctx, e.userID, id, a.Key, a.Value); err != nil {
		return failure("add story: %v", err)
	}
	return Result{Success: true, ID: id}
}

func (e *Executor) deleteStory(ctx context.Context, a *DeleteStory) Result {
	id, fail := e.resolve(ctx, a.Relative)
	if fail != nil {
		return *fail
	}
	if a.Key == "" {
		return failure("story key is required")
	}

	rel, err := e.store.GetRelative(ctx, e.userID, id)
	if err != nil {
		return failure("get relative: %v", err)
	}
	if _, ok := rel.Stories[a.Key]; !ok {
		return failure("story %q not found", a.Key)
	}
	if err := e.store.DeleteStory(ctx, e.userID, id, a.Key); err != nil {
		return failure("delete story: %v", err)
	}
	return Result{Success: true, ID: id, DeletedKey: a.Key}
}

func (e *Executor) getRelative(ctx context.Context, a *GetRelative) Result {
	id, fail := e.resolve(ctx, a.Relative)
	if fail != nil {
		return *fail
	}
	rel, err := e.store.GetRelative(ctx, e.userID, id)
	if err != nil {
		return failure("get relative: %v", err)
	}
	return Result{Success: true, Data: relativeDetail(rel)}
}

func (e *Executor) getAllRelatives(ctx context.Context, a *GetAllRelatives) Result {
	onlyActive := true
	if a.OnlyActive != nil {
		onlyActive = *a.OnlyActive
	}
	rels, err := e.store.ListRelatives(ctx, e.userID, onlyActive)
	if err != nil {
		return failure("list relatives: %v", err)
	}
	out := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		s := relativeSummary(r)
		s["has_stories"] = len(r.Stories) > 0
		out = append(out, s)
	}
	return Result{Success: true, Count: len(rels), Data: out}
}

func (e *Executor) getRelationships(ctx context.Context) Result {
	rels, err := e.store.ListRelationships(ctx, e.userID)
	if err != nil {
		return failure("list relationships: %v", err)
	}
	out := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		out = append(out, map[string]any{
			"id":                r.ID,
			"from_relative_id":  r.FromID,
			"to_relative_id":    r.ToID,
			"relationship_type": string(r.Kind),
		})
	}
	return Result{Success: true, Count: len(rels), Data: out}
}

func (e *Executor) searchRelatives(ctx context.Context, a *SearchRelatives) Result {
	if a.SearchTerm == "" {
		return failure("search_term is required")
	}
	rels, err := e.store.SearchRelatives(ctx, e.userID, a.SearchTerm)
	if err != nil {
		return failure("search relatives: %v", err)
	}
	out := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		out = append(out, relativeSummary(r))
	}
	return Result{Success: true, Count: len(rels), Data: out}
}

// relativeSummary flattens a relative for model consumption: dates become
// strings, enums become their plain values.
func relativeSummary(r model.Relative) map[string]any {
	m := map[string]any{
		"id":         r.ID,
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"gender":     string(r.Gender),
	}
	if r.MiddleName != nil {
		m["middle_name"] = *r.MiddleName
	}
	if r.BirthDate != nil {
		m["birth_date"] = r.BirthDate.Format("2006-01-02")
	}
	if r.DeathDate != nil {
		m["death_date"] = r.DeathDate.Format("2006-01-02")
	}
	if r.Generation != nil {
		m["generation"] = *r.Generation
	}
	return m
}

func relativeDetail(r model.Relative) map[string]any {
	m := relativeSummary(r)
	stories := map[string]string{}
	for k, v := range r.Stories {
		stories[k] = v
	}
	m["stories"] = stories
	return m
}

// parseDate parses YYYY-MM-DD into UTC midnight; anything else is treated
// as "not provided", matching how the model fills optional date fields.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
