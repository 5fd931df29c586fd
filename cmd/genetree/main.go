// Command genetree runs the GeneTree assistant server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/genetree-ai/genetree"
	"github.com/genetree-ai/genetree/internal/auth"
	"github.com/genetree-ai/genetree/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	issueToken := flag.Int64("issue-token", 0, "issue a JWT for the given user id and exit (dev helper)")
	flag.Parse()

	if *issueToken != 0 {
		os.Exit(runIssueToken(*issueToken))
	}
	os.Exit(run())
}

func run() int {
	level := slog.LevelInfo
	if os.Getenv("GENETREE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := genetree.New(
		genetree.WithLogger(logger),
		genetree.WithVersion(version),
	)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

// runIssueToken mints a JWT with the configured signing key and prints it.
// There is no token endpoint; tokens come from the surrounding identity
// system in production and from this helper in development.
func runIssueToken(userID int64) int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 1
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		fmt.Fprintln(os.Stderr, "auth:", err)
		return 1
	}
	if cfg.JWTPrivateKeyPath == "" {
		fmt.Fprintln(os.Stderr, "warning: GENETREE_JWT_PRIVATE_KEY not set, token signed with an ephemeral key")
	}

	token, expiresAt, err := jwtMgr.IssueToken(userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		return 1
	}

	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "expires:", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return 0
}
