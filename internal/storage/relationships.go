package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/genetree-ai/genetree/internal/kinship"
	"github.com/genetree-ai/genetree/internal/model"
)

// CreateRelationship inserts an edge and returns the stored row. Both
// endpoints must be active relatives of the user.
func (db *DB) CreateRelationship(ctx context.Context, userID, fromID, toID int64, kind kinship.Kind) (model.Relationship, error) {
	var rel model.Relationship
	var kindStr string
	err := db.pool.QueryRow(ctx, `
		INSERT INTO relationships (user_id, from_relative_id, to_relative_id, relationship_type)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM relatives WHERE user_id = $1 AND id = $2 AND is_active)
		  AND EXISTS (SELECT 1 FROM relatives WHERE user_id = $1 AND id = $3 AND is_active)
		RETURNING id, user_id, from_relative_id, to_relative_id, relationship_type, is_active, created_at`,
		userID, fromID, toID, string(kind)).
		Scan(&rel.ID, &rel.UserID, &rel.FromID, &rel.ToID, &kindStr, &rel.IsActive, &rel.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Relationship{}, fmt.Errorf("storage: create relationship %d -> %d: %w", fromID, toID, ErrNotFound)
	}
	if err != nil {
		return model.Relationship{}, fmt.Errorf("storage: create relationship: %w", err)
	}
	rel.Kind = kinship.Kind(kindStr)
	return rel, nil
}

// DeleteRelationship soft-deletes one edge by id.
func (db *DB) DeleteRelationship(ctx context.Context, userID, relationshipID int64) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE relationships SET is_active = FALSE
		WHERE user_id = $1 AND id = $2 AND is_active`, userID, relationshipID)
	if err != nil {
		return fmt.Errorf("storage: delete relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: delete relationship %d: %w", relationshipID, ErrNotFound)
	}
	return nil
}

// ListRelationships returns the user's active edges ordered by id.
func (db *DB) ListRelationships(ctx context.Context, userID int64) ([]model.Relationship, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, user_id, from_relative_id, to_relative_id, relationship_type, is_active, created_at
		FROM relationships
		WHERE user_id = $1 AND is_active
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list relationships: %w", err)
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var rel model.Relationship
		var kindStr string
		if err := rows.Scan(&rel.ID, &rel.UserID, &rel.FromID, &rel.ToID, &kindStr, &rel.IsActive, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan relationship: %w", err)
		}
		rel.Kind = kinship.Kind(kindStr)
		out = append(out, rel)
	}
	return out, rows.Err()
}
