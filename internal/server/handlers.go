package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/genetree-ai/genetree/internal/assistant"
	"github.com/genetree-ai/genetree/internal/ctxutil"
	"github.com/genetree-ai/genetree/internal/model"
)

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	store  assistant.Store
	loop   *assistant.Loop
	pinger Pinger

	logger              *slog.Logger
	version             string
	maxRequestBodyBytes int64
	startTime           time.Time
}

// HandlersDeps holds the dependencies for creating Handlers.
type HandlersDeps struct {
	Store               assistant.Store
	Loop                *assistant.Loop
	Pinger              Pinger
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		store:               deps.Store,
		loop:                deps.Loop,
		pinger:              deps.Pinger,
		logger:              deps.Logger,
		version:             deps.Version,
		maxRequestBodyBytes: deps.MaxRequestBodyBytes,
		startTime:           time.Now(),
	}
}

// chatRequest is the request body for POST /v1/assistant/chat.
type chatRequest struct {
	Message    string                  `json:"message"`
	History    []assistant.ChatMessage `json:"history,omitempty"`
	Mode       string                  `json:"mode,omitempty"`
	AutoAccept *bool                   `json:"auto_accept,omitempty"`
}

// generateRequest is the request body for POST /v1/assistant/generate.
type generateRequest struct {
	Description string `json:"description"`
}

// applyResponse is the response body for POST /v1/assistant/apply.
type applyResponse struct {
	Results []assistant.Result `json:"results"`
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pg := "ok"
	status := "ok"
	if h.pinger == nil {
		pg = "disabled"
	} else if err := h.pinger.Ping(r.Context()); err != nil {
		pg = "unreachable"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pg,
		Uptime:   int64(time.Since(h.startTime).Seconds()),
	})
}

// HandleTree handles GET /v1/tree: the caller's full tree in one response.
func (h *Handlers) HandleTree(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	relatives, err := h.store.ListRelatives(r.Context(), claims.UserID, true)
	if err != nil {
		h.logger.Error("list relatives", "user_id", claims.UserID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load tree")
		return
	}
	relationships, err := h.store.ListRelationships(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list relationships", "user_id", claims.UserID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load tree")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"relatives":     relatives,
		"relationships": relationships,
	})
}

// HandleChat handles POST /v1/assistant/chat. The response is an SSE stream
// of assistant events, terminated by a done event.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes)
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "message is required")
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming unsupported")
		return
	}

	chatErr := h.loop.Chat(r.Context(), assistant.ChatRequest{
		UserID:     claims.UserID,
		Message:    req.Message,
		History:    req.History,
		Mode:       req.Mode,
		AutoAccept: req.AutoAccept,
	}, sink)
	if chatErr != nil {
		// Sink errors mean the client went away; there is nobody to tell.
		h.logger.Info("chat stream aborted", "user_id", claims.UserID, "error", chatErr)
	}
}

// HandleGenerate handles POST /v1/assistant/generate: free text in, an SSE
// stream ending in a tree plan out.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes)
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "description is required")
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming unsupported")
		return
	}

	if err := h.loop.Generate(r.Context(), claims.UserID, req.Description, sink); err != nil {
		h.logger.Info("generate stream aborted", "user_id", claims.UserID, "error", err)
	}
}

// HandleApply handles POST /v1/assistant/apply: persists a previously
// generated tree plan. The body is the plan object as emitted by the
// generate endpoint's result event.
func (h *Handlers) HandleApply(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes)
	var plan assistant.TreePlan
	if err := decodeJSON(r, &plan); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if len(plan.Relatives) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "plan has no relatives")
		return
	}

	results, err := h.loop.ApplyPlan(r.Context(), claims.UserID, plan)
	if err != nil {
		h.logger.Error("apply plan", "user_id", claims.UserID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to apply plan")
		return
	}

	writeJSON(w, r, http.StatusOK, applyResponse{Results: results})
}

// sseSink streams assistant events as server-sent events.
type sseSink struct {
	w http.ResponseWriter
	f http.Flusher
}

var errStreamingUnsupported = errors.New("server: response writer does not support flushing")

// newSSESink prepares the response for SSE and returns a sink writing to it.
// Once this returns successfully the response status is committed.
func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseSink{w: w, f: f}, nil
}

// Send writes one event frame and flushes it to the client.
func (s *sseSink) Send(ev assistant.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("server: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("server: write event: %w", err)
	}
	s.f.Flush()
	return nil
}
