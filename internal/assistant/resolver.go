package assistant

import (
	"context"
	"fmt"
	"strings"
)

// ErrUnresolved is returned when a reference matches no relative.
var ErrUnresolved = fmt.Errorf("assistant: relative not found")

// Resolver turns loose person references into concrete relative ids by
// querying the store. It never mutates anything, so repeated calls over an
// unchanged tree return the same id.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps ref to a relative id for userID. Resolution order:
// numeric id (as given or as a numeric string), then name search, then a
// first/last split search. When several relatives match, the one with the
// largest id wins. Names collide across generations and the most recently
// created relative is almost always the one the model means.
func (r *Resolver) Resolve(ctx context.Context, userID int64, ref PersonRef) (int64, error) {
	if ref.IsZero() {
		return 0, fmt.Errorf("%w: empty reference", ErrUnresolved)
	}
	if id, ok := ref.NumericID(); ok {
		return id, nil
	}

	name := cleanReference(ref.text)
	if name == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnresolved, ref.text)
	}

	matches, err := r.store.SearchRelatives(ctx, userID, name)
	if err != nil {
		return 0, fmt.Errorf("assistant: search %q: %w", name, err)
	}

	// "Anna Petrova" may be stored with the first and last name in separate
	// columns; retry on the first token and filter on the last.
	if len(matches) == 0 && strings.Contains(name, " ") {
		parts := strings.Fields(name)
		first, last := parts[0], parts[len(parts)-1]

		candidates, err := r.store.SearchRelatives(ctx, userID, first)
		if err != nil {
			return 0, fmt.Errorf("assistant: search %q: %w", first, err)
		}
		lower := strings.ToLower(last)
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.LastName), lower) {
				matches = append(matches, c)
				continue
			}
			if c.MiddleName != nil && strings.Contains(strings.ToLower(*c.MiddleName), lower) {
				matches = append(matches, c)
			}
		}
	}

	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnresolved, ref.text)
	}

	best := matches[0].ID
	for _, m := range matches[1:] {
		if m.ID > best {
			best = m.ID
		}
	}
	return best, nil
}

// cleanReference strips the angle-bracket placeholder syntax the model
// sometimes emits ("<Anna>", "undefined") down to a searchable name.
func cleanReference(s string) string {
	s = strings.Trim(s, "<> \t\r\n")
	s = strings.ReplaceAll(s, "undefined", "")
	return strings.TrimSpace(s)
}
