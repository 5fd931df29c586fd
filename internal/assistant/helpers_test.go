package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

// memStore is an in-memory Store for tests. It also records the names of
// mutating calls so pending-action tests can assert nothing was written.
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	relatives     map[int64]model.Relative
	relationships map[int64]model.Relationship
	mutations     []string

	searchErr error
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{
		relatives:     map[int64]model.Relative{},
		relationships: map[int64]model.Relationship{},
	}
}

func (s *memStore) seedRelative(r model.Relative) model.Relative {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
	} else if r.ID > s.nextID {
		s.nextID = r.ID
	}
	r.IsActive = true
	if r.Stories == nil {
		r.Stories = map[string]string{}
	}
	s.relatives[r.ID] = r
	return r
}

func (s *memStore) seedRelationship(fromID, toID int64, kind kinship.Kind) model.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rel := model.Relationship{ID: s.nextID, FromID: fromID, ToID: toID, Kind: kind, IsActive: true}
	s.relationships[rel.ID] = rel
	return rel
}

func (s *memStore) recordMutation(name string) {
	s.mutations = append(s.mutations, name)
}

func (s *memStore) CreateRelative(_ context.Context, userID int64, in model.RelativeCreate) (model.Relative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("CreateRelative")
	s.nextID++
	r := model.Relative{
		ID:         s.nextID,
		UserID:     userID,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		MiddleName: in.MiddleName,
		Gender:     in.Gender,
		BirthDate:  in.BirthDate,
		DeathDate:  in.DeathDate,
		Generation: in.Generation,
		Stories:    map[string]string{},
		IsActive:   true,
	}
	s.relatives[r.ID] = r
	return r, nil
}

func (s *memStore) UpdateRelative(_ context.Context, _ int64, relativeID int64, in model.RelativeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("UpdateRelative")
	r, ok := s.relatives[relativeID]
	if !ok {
		return fmt.Errorf("relative %d not found", relativeID)
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
	s.relatives[relativeID] = r
	return nil
}

func (s *memStore) DeleteRelative(_ context.Context, _ int64, relativeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("DeleteRelative")
	r, ok := s.relatives[relativeID]
	if !ok {
		return fmt.Errorf("relative %d not found", relativeID)
	}
	r.IsActive = false
	s.relatives[relativeID] = r
	return nil
}

func (s *memStore) GetRelative(_ context.Context, _ int64, relativeID int64) (model.Relative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.relatives[relativeID]
	if !ok {
		return model.Relative{}, fmt.Errorf("relative %d not found", relativeID)
	}
	return r, nil
}

func (s *memStore) ListRelatives(_ context.Context, _ int64, onlyActive bool) ([]model.Relative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.Relative, 0, len(s.relatives))
	for _, r := range s.relatives {
		if onlyActive && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SearchRelatives(_ context.Context, _ int64, term string) ([]model.Relative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	t := strings.ToLower(term)
	var out []model.Relative
	for _, r := range s.relatives {
		if !r.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(r.FirstName), t) ||
			strings.Contains(strings.ToLower(r.LastName), t) ||
			(r.MiddleName != nil && strings.Contains(strings.ToLower(*r.MiddleName), t)) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SetStory(_ context.Context, _ int64, relativeID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("SetStory")
	r, ok := s.relatives[relativeID]
	if !ok {
		return fmt.Errorf("relative %d not found", relativeID)
	}
	if r.Stories == nil {
		r.Stories = map[string]string{}
	}
	r.Stories[key] = value
	s.relatives[relativeID] = r
	return nil
}

func (s *memStore) DeleteStory(_ context.Context, _ int64, relativeID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("DeleteStory")
	r, ok := s.relatives[relativeID]
	if !ok {
		return fmt.Errorf("relative %d not found", relativeID)
	}
	delete(r.Stories, key)
	s.relatives[relativeID] = r
	return nil
}

func (s *memStore) CreateRelationship(_ context.Context, userID, fromID, toID int64, kind kinship.Kind) (model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("CreateRelationship")
	s.nextID++
	rel := model.Relationship{ID: s.nextID, UserID: userID, FromID: fromID, ToID: toID, Kind: kind, IsActive: true}
	s.relationships[rel.ID] = rel
	return rel, nil
}

func (s *memStore) DeleteRelationship(_ context.Context, _ int64, relationshipID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordMutation("DeleteRelationship")
	if _, ok := s.relationships[relationshipID]; !ok {
		return fmt.Errorf("relationship %d not found", relationshipID)
	}
	delete(s.relationships, relationshipID)
	return nil
}

func (s *memStore) ListRelationships(_ context.Context, _ int64) ([]model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Relationship, 0, len(s.relationships))
	for _, rel := range s.relationships {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// scriptedStream replays a fixed chunk sequence, then io.EOF (or a final
// error when failWith is set).
type scriptedStream struct {
	chunks   []openai.ChatCompletionStreamResponse
	pos      int
	failWith error
	closed   bool
}

func (s *scriptedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos >= len(s.chunks) {
		if s.failWith != nil {
			return openai.ChatCompletionStreamResponse{}, s.failWith
		}
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// scriptedClient returns one scripted stream per model call, in order. Calls
// past the script end the conversation with a plain text reply.
type scriptedClient struct {
	streams  []*scriptedStream
	call     int
	requests []openai.ChatCompletionRequest
	err      error
}

func (c *scriptedClient) StreamChat(_ context.Context, req openai.ChatCompletionRequest) (ChatStream, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if c.call >= len(c.streams) {
		return &scriptedStream{chunks: textChunks("done")}, nil
	}
	s := c.streams[c.call]
	c.call++
	return s, nil
}

// collectSink buffers every event for assertions.
type collectSink struct {
	events []Event
	err    error
}

func (s *collectSink) Send(ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func textChunks(parts ...string) []openai.ChatCompletionStreamResponse {
	out := make([]openai.ChatCompletionStreamResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, openai.ChatCompletionStreamResponse{
			Choices: []openai.ChatCompletionStreamChoice{
				{Delta: openai.ChatCompletionStreamChoiceDelta{Content: p}},
			},
		})
	}
	return out
}

// toolChunk emits one tool-call fragment at the given stream index.
func toolChunk(index int, id, name, argFragment string) openai.ChatCompletionStreamResponse {
	idx := index
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{
				ToolCalls: []openai.ToolCall{
					{
						Index:    &idx,
						ID:       id,
						Type:     openai.ToolTypeFunction,
						Function: openai.FunctionCall{Name: name, Arguments: argFragment},
					},
				},
			}},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
func strPtr(s string) *string { return &s }
