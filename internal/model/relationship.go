package model

import (
	"time"

	"github.com/genetree-ai/genetree/internal/kinship"
)

// Relationship is a directed, typed edge between two relatives.
// Kind is read as "From is <kind> of To": from=mother, to=child.
type Relationship struct {
	ID       int64        `json:"id"`
	UserID   int64        `json:"user_id"`
	FromID   int64        `json:"from_relative_id"`
	ToID     int64        `json:"to_relative_id"`
	Kind     kinship.Kind `json:"relationship_type"`
	IsActive bool         `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}

// Links reports whether the relationship connects a and b in either direction.
func (r Relationship) Links(a, b int64) bool {
	return (r.FromID == a && r.ToID == b) || (r.FromID == b && r.ToID == a)
}
