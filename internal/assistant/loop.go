package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultMaxTurns bounds the tool-call/response cycle per chat request.
const DefaultMaxTurns = 10

// ChatMessage is one prior turn of conversation supplied by the caller.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one inbound chat request.
type ChatRequest struct {
	UserID  int64
	Message string
	History []ChatMessage
	// Mode selects the model tier: "smart" for the capable model,
	// anything else for the cheap one.
	Mode string
	// AutoAccept controls mutating actions: nil or true executes them
	// immediately, false parks them as pending. Read-only actions always
	// execute.
	AutoAccept *bool
}

func (r ChatRequest) autoAcceptOff() bool {
	return r.AutoAccept != nil && !*r.AutoAccept
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Client     ChatClient
	Store      Store
	Logger     *slog.Logger
	MaxTurns   int
	BaseModel  string
	SmartModel string
}

// Loop drives bounded multi-turn conversations with the model. One Loop is
// shared across requests; all per-request state (message log, turn counter,
// fragment buffer, snapshot) lives inside Chat.
type Loop struct {
	client     ChatClient
	store      Store
	log        *slog.Logger
	maxTurns   int
	baseModel  string
	smartModel string
}

// NewLoop creates a Loop, filling unset config with defaults.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.BaseModel == "" {
		cfg.BaseModel = DefaultBaseModel
	}
	if cfg.SmartModel == "" {
		cfg.SmartModel = DefaultSmartModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		client:     cfg.Client,
		store:      cfg.Store,
		log:        cfg.Logger,
		maxTurns:   cfg.MaxTurns,
		baseModel:  cfg.BaseModel,
		smartModel: cfg.SmartModel,
	}
}

// toolCallBuf accumulates one tool call's streamed fragments. The first
// fragment for a stream index establishes id and name; the rest append to
// the argument string, which is not parseable JSON until complete.
type toolCallBuf struct {
	id   string
	name string
	args strings.Builder
}

// Chat runs the chat request to completion, sending events to sink. The
// stream always terminates with a done event (or a sink error when the
// client is gone). The returned error reports only sink failures; model
// and action failures are delivered as events.
func (l *Loop) Chat(ctx context.Context, req ChatRequest, sink EventSink) error {
	snap, err := l.loadSnapshot(ctx, req.UserID)
	if err != nil {
		l.log.Error("assistant: load snapshot", "user_id", req.UserID, "error", err)
		if err := sink.Send(Event{Type: EventError, Content: "failed to load your tree"}); err != nil {
			return err
		}
		return sink.Send(Event{Type: EventDone})
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: ChatSystemPrompt(snap),
	})
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	validator := NewValidator(snap)
	executor := NewExecutor(req.UserID, l.store, l.log)
	tools := ToolCatalog()

	mdl := l.baseModel
	if req.Mode == "smart" {
		mdl = l.smartModel
	}

	for turn := 1; turn <= l.maxTurns; turn++ {
		stream, err := l.client.StreamChat(ctx, openai.ChatCompletionRequest{
			Model:       mdl,
			Messages:    messages,
			Temperature: 0.7,
			MaxTokens:   2000,
			Tools:       tools,
			ToolChoice:  "auto",
		})
		if err != nil {
			// A model-call failure is loop-fatal: report and stop, no
			// further turns.
			l.log.Error("assistant: model call failed", "turn", turn, "error", err)
			if err := sink.Send(Event{Type: EventError, Content: fmt.Sprintf("model error: %v", err)}); err != nil {
				return err
			}
			break
		}

		text, buffer, streamErr, sinkErr := l.consumeStream(stream, sink)
		if sinkErr != nil {
			return sinkErr
		}
		if streamErr != nil {
			l.log.Error("assistant: stream failed", "turn", turn, "error", streamErr)
			if err := sink.Send(Event{Type: EventError, Content: fmt.Sprintf("model error: %v", streamErr)}); err != nil {
				return err
			}
			break
		}

		// Echo the assistant turn, tool calls in ascending stream-index
		// order. The model expects to see its own calls replayed exactly.
		indices := make([]int, 0, len(buffer))
		for idx := range buffer {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		assistantMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: text,
		}
		for _, idx := range indices {
			tc := buffer[idx]
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, openai.ToolCall{
				ID:   tc.id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.name,
					Arguments: tc.args.String(),
				},
			})
		}
		messages = append(messages, assistantMsg)

		if len(indices) == 0 {
			// Final answer, nothing to execute.
			break
		}

		if err := sink.Send(Event{Type: EventStatus, Content: "Executing actions..."}); err != nil {
			return err
		}

		for _, idx := range indices {
			tc := buffer[idx]
			result, sinkErr := l.handleToolCall(ctx, req, validator, executor, tc, sink)
			if sinkErr != nil {
				return sinkErr
			}

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"success":false,"error":"internal: marshal result"}`)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.id,
				Content:    string(payload),
			})
		}

		if err := sink.Send(Event{Type: EventStatus, Content: "Thinking..."}); err != nil {
			return err
		}
	}

	return sink.Send(Event{Type: EventDone})
}

// consumeStream drains one model response: prose is forwarded to the sink
// as it arrives, tool-call fragments are reassembled keyed by stream index.
func (l *Loop) consumeStream(stream ChatStream, sink EventSink) (text string, buffer map[int]*toolCallBuf, streamErr, sinkErr error) {
	defer func() { _ = stream.Close() }()

	buffer = make(map[int]*toolCallBuf)
	var sb strings.Builder

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err, nil
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			sb.WriteString(delta.Content)
			if err := sink.Send(Event{Type: EventText, Content: delta.Content}); err != nil {
				return "", nil, nil, err
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			buf, ok := buffer[idx]
			if !ok {
				buf = &toolCallBuf{id: tc.ID, name: tc.Function.Name}
				buffer[idx] = buf
			}
			buf.args.WriteString(tc.Function.Arguments)
		}
	}
	return sb.String(), buffer, nil, nil
}

// handleToolCall parses, validates and (maybe) executes one reassembled
// tool call, emitting warning/error/action events along the way. Every
// outcome becomes a Result; only sink failures are returned.
func (l *Loop) handleToolCall(ctx context.Context, req ChatRequest, validator *Validator, executor *Executor, tc *toolCallBuf, sink EventSink) (Result, error) {
	rawArgs := json.RawMessage(tc.args.String())
	if len(rawArgs) == 0 {
		rawArgs = json.RawMessage(`{}`)
	}

	action, err := ParseAction(tc.name, rawArgs)
	if err != nil {
		result := failure("invalid arguments for %s: %v", tc.name, err)
		if err := sink.Send(Event{Type: EventError, Content: result.Error}); err != nil {
			return Result{}, err
		}
		return result, l.sendActionEvent(sink, tc.name, rawArgs, result)
	}

	verdict := validator.Validate(action)
	for _, w := range verdict.All() {
		if err := sink.Send(Event{Type: EventWarning, Content: w}); err != nil {
			return Result{}, err
		}
	}

	var result Result
	switch {
	case action.ReadOnly():
		result = executor.Execute(ctx, action)
	case req.autoAcceptOff():
		// Parked, not executed: no pending state is persisted; the caller
		// resubmits the same action after user confirmation.
		result = Result{
			Pending:  true,
			Message:  "awaiting user confirmation",
			Warnings: verdict.All(),
		}
	case !verdict.Valid():
		result = Result{Error: "validation failed", Warnings: verdict.Errors}
	default:
		result = executor.Execute(ctx, action)
	}

	return result, l.sendActionEvent(sink, tc.name, rawArgs, result)
}

func (l *Loop) sendActionEvent(sink EventSink, name string, args json.RawMessage, result Result) error {
	if !json.Valid(args) {
		args, _ = json.Marshal(string(args))
	}
	payload, err := json.Marshal(actionEnvelope{
		ActionType: name,
		Data:       args,
		Result:     result,
	})
	if err != nil {
		return sink.Send(Event{Type: EventError, Content: "internal: marshal action"})
	}
	return sink.Send(Event{Type: EventAction, Content: string(payload)})
}

func (l *Loop) loadSnapshot(ctx context.Context, userID int64) (Snapshot, error) {
	relatives, err := l.store.ListRelatives(ctx, userID, true)
	if err != nil {
		return Snapshot{}, fmt.Errorf("assistant: list relatives: %w", err)
	}
	relationships, err := l.store.ListRelationships(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("assistant: list relationships: %w", err)
	}
	return Snapshot{Relatives: relatives, Relationships: relationships}, nil
}
