// Package assistant implements the chat-driven family tree assistant: the
// bounded tool-calling loop over a streaming model, entity reference
// resolution, action validation against a tree snapshot, and action
// execution against the storage layer.
package assistant

import (
	"context"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

// Store is the persistence contract the assistant executes against.
// Every call is scoped by the requesting user's id; implementations must
// never return another user's rows. internal/storage provides the Postgres
// implementation.
type Store interface {
	CreateRelative(ctx context.Context, userID int64, in model.RelativeCreate) (model.Relative, error)
	UpdateRelative(ctx context.Context, userID, relativeID int64, in model.RelativeUpdate) error
	DeleteRelative(ctx context.Context, userID, relativeID int64) error
	GetRelative(ctx context.Context, userID, relativeID int64) (model.Relative, error)
	ListRelatives(ctx context.Context, userID int64, onlyActive bool) ([]model.Relative, error)
	// SearchRelatives matches term case-insensitively against first, last
	// and middle names.
	SearchRelatives(ctx context.Context, userID int64, term string) ([]model.Relative, error)

	// SetStory upserts one story entry on a relative.
	SetStory(ctx context.Context, userID, relativeID int64, key, value string) error
	// DeleteStory removes the story key outright. Removal is explicit so a
	// missing key and a present-but-empty story stay distinguishable.
	DeleteStory(ctx context.Context, userID, relativeID int64, key string) error

	CreateRelationship(ctx context.Context, userID, fromID, toID int64, kind kinship.Kind) (model.Relationship, error)
	DeleteRelationship(ctx context.Context, userID, relationshipID int64) error
	ListRelationships(ctx context.Context, userID int64) ([]model.Relationship, error)
}
