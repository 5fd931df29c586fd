package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

// TreePlan is the structured output of generation mode. Temp ids knit the
// plan together until ApplyPlan swaps them for database ids.
type TreePlan struct {
	Relatives          []PlannedRelative     `json:"relatives"`
	Relationships      []PlannedRelationship `json:"relationships"`
	ValidationWarnings []string              `json:"validation_warnings"`
}

// PlannedRelative is one person in a TreePlan.
type PlannedRelative struct {
	TempID     string `json:"temp_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name,omitempty"`
	Gender     string `json:"gender"`
	BirthDate  string `json:"birth_date,omitempty"`
	Generation *int   `json:"generation,omitempty"`
	IsUser     bool   `json:"is_user"`
}

// PlannedRelationship is one edge in a TreePlan, read as: from is <kind>
// of to.
type PlannedRelationship struct {
	FromTempID string `json:"from_temp_id"`
	ToTempID   string `json:"to_temp_id"`
	Kind       string `json:"relationship_type"`
}

// Generate turns a prose family description into a TreePlan. The plan is
// delivered as a single result event; nothing is written to the store.
// Status events report progress, and the stream always ends with done.
func (l *Loop) Generate(ctx context.Context, userID int64, description string, sink EventSink) error {
	if err := sink.Send(Event{Type: EventStatus, Content: "Analyzing your description..."}); err != nil {
		return err
	}

	stream, err := l.client.StreamChat(ctx, openai.ChatCompletionRequest{
		Model: l.smartModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: GenerateSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: description},
		},
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		l.log.Error("assistant: generate model call failed", "user_id", userID, "error", err)
		if err := sink.Send(Event{Type: EventError, Content: fmt.Sprintf("model error: %v", err)}); err != nil {
			return err
		}
		return sink.Send(Event{Type: EventDone})
	}
	defer func() { _ = stream.Close() }()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.log.Error("assistant: generate stream failed", "user_id", userID, "error", err)
			if err := sink.Send(Event{Type: EventError, Content: fmt.Sprintf("model error: %v", err)}); err != nil {
				return err
			}
			return sink.Send(Event{Type: EventDone})
		}
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	plan, err := parseTreePlan(sb.String())
	if err != nil {
		l.log.Error("assistant: parse tree plan", "user_id", userID, "error", err)
		if err := sink.Send(Event{Type: EventError, Content: "could not understand the description, please rephrase"}); err != nil {
			return err
		}
		return sink.Send(Event{Type: EventDone})
	}
	checkPlan(&plan)

	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("assistant: marshal plan: %w", err)
	}
	if err := sink.Send(Event{Type: EventResult, Content: string(payload)}); err != nil {
		return err
	}
	return sink.Send(Event{Type: EventDone})
}

// parseTreePlan extracts the JSON object from the model's reply, tolerating
// markdown fences and surrounding prose.
func parseTreePlan(raw string) (TreePlan, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return TreePlan{}, fmt.Errorf("assistant: no JSON object in model output")
	}
	var plan TreePlan
	if err := json.Unmarshal([]byte(s[start:end+1]), &plan); err != nil {
		return TreePlan{}, fmt.Errorf("assistant: decode tree plan: %w", err)
	}
	if len(plan.Relatives) == 0 {
		return TreePlan{}, fmt.Errorf("assistant: tree plan has no relatives")
	}
	return plan, nil
}

// checkPlan appends warnings for dangling temp ids and unknown relationship
// kinds, and drops edges that cannot be applied.
func checkPlan(plan *TreePlan) {
	ids := make(map[string]bool, len(plan.Relatives))
	for _, r := range plan.Relatives {
		ids[r.TempID] = true
	}

	kept := plan.Relationships[:0]
	for _, rel := range plan.Relationships {
		if !ids[rel.FromTempID] || !ids[rel.ToTempID] {
			plan.ValidationWarnings = append(plan.ValidationWarnings,
				fmt.Sprintf("dropped relationship %s -> %s: unknown person", rel.FromTempID, rel.ToTempID))
			continue
		}
		if !kinship.Known(kinship.Kind(rel.Kind)) {
			plan.ValidationWarnings = append(plan.ValidationWarnings,
				fmt.Sprintf("relationship type %q is not in the standard list", rel.Kind))
		}
		kept = append(kept, rel)
	}
	plan.Relationships = kept
}

// ApplyPlan writes an approved TreePlan to the store: relatives first,
// building the temp-id mapping, then relationships through the validator.
// One Result per attempted write, in order.
func (l *Loop) ApplyPlan(ctx context.Context, userID int64, plan TreePlan) ([]Result, error) {
	executor := NewExecutor(userID, l.store, l.log)
	results := make([]Result, 0, len(plan.Relatives)+len(plan.Relationships))
	idByTemp := make(map[string]int64, len(plan.Relatives))

	for _, pr := range plan.Relatives {
		act := &CreateRelative{
			FirstName:  pr.FirstName,
			LastName:   pr.LastName,
			Gender:     pr.Gender,
			BirthDate:  pr.BirthDate,
			Generation: pr.Generation,
		}
		if pr.MiddleName != "" {
			mn := pr.MiddleName
			act.MiddleName = &mn
		}
		if pr.IsUser {
			if id, ok := l.existingSelf(ctx, userID); ok {
				idByTemp[pr.TempID] = id
				results = append(results, Result{Success: true, ID: id, Name: pr.FirstName + " " + pr.LastName, Message: "matched existing relative"})
				continue
			}
			zero := 0
			if act.Generation == nil {
				act.Generation = &zero
			}
		}
		res := executor.Execute(ctx, act)
		results = append(results, res)
		if res.Success {
			idByTemp[pr.TempID] = res.ID
		}
	}

	// Validate edges against the tree as it now stands, including the
	// relatives created above.
	snap, err := l.loadSnapshot(ctx, userID)
	if err != nil {
		return results, err
	}
	validator := NewValidator(snap)

	for _, rel := range plan.Relationships {
		fromID, okFrom := idByTemp[rel.FromTempID]
		toID, okTo := idByTemp[rel.ToTempID]
		if !okFrom || !okTo {
			results = append(results, failure("relationship %s -> %s skipped: person was not created", rel.FromTempID, rel.ToTempID))
			continue
		}
		act := &CreateRelationship{
			From: RefID(fromID),
			To:   RefID(toID),
			Kind: kinship.Kind(rel.Kind),
		}
		verdict := validator.Validate(act)
		if !verdict.Valid() {
			results = append(results, Result{Error: "validation failed", Warnings: verdict.Errors})
			continue
		}
		res := executor.Execute(ctx, act)
		res.Warnings = append(res.Warnings, verdict.Warnings...)
		results = append(results, res)
		if res.Success {
			// Keep the working snapshot current so later edges see this one.
			validator.snap.Relationships = append(validator.snap.Relationships, model.Relationship{
				UserID: userID, FromID: fromID, ToID: toID, Kind: kinship.Kind(rel.Kind), IsActive: true,
			})
		}
	}
	return results, nil
}

// existingSelf looks for the relative representing the user themselves
// (generation 0) so generation mode does not duplicate them.
func (l *Loop) existingSelf(ctx context.Context, userID int64) (int64, bool) {
	relatives, err := l.store.ListRelatives(ctx, userID, true)
	if err != nil {
		return 0, false
	}
	for _, r := range relatives {
		if r.Generation != nil && *r.Generation == 0 {
			return r.ID, true
		}
	}
	return 0, false
}
