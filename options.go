package genetree

import (
	"log/slog"

	"github.com/genetree-ai/genetree/internal/assistant"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port        int
	databaseURL string
	logger      *slog.Logger
	version     string
	chatClient  assistant.ChatClient
}

// WithPort overrides the TCP port from config (GENETREE_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL overrides the database connection string from config
// (DATABASE_URL env var).
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithChatClient replaces the default OpenAI streaming client. Use for
// alternative OpenAI-compatible providers or test doubles. When set,
// OPENAI_API_KEY is not required.
func WithChatClient(c assistant.ChatClient) Option {
	return func(o *resolvedOptions) { o.chatClient = c }
}
