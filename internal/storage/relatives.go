package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/genetree-ai/genetree/internal/model"
)

const relativeColumns = `id, user_id, first_name, last_name, middle_name, gender,
	birth_date, death_date, generation, stories, is_active, created_at, updated_at`

func scanRelative(row pgx.Row) (model.Relative, error) {
	var r model.Relative
	var gender string
	err := row.Scan(&r.ID, &r.UserID, &r.FirstName, &r.LastName, &r.MiddleName,
		&gender, &r.BirthDate, &r.DeathDate, &r.Generation, &r.Stories,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Relative{}, err
	}
	r.Gender = model.Gender(gender)
	if r.Stories == nil {
		r.Stories = map[string]string{}
	}
	return r, nil
}

// CreateRelative inserts a relative and returns the stored row.
func (db *DB) CreateRelative(ctx context.Context, userID int64, in model.RelativeCreate) (model.Relative, error) {
	gender := in.Gender
	if gender == "" {
		gender = model.GenderOther
	}
	row := db.pool.QueryRow(ctx, `
		INSERT INTO relatives (user_id, first_name, last_name, middle_name, gender,
			birth_date, death_date, generation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+relativeColumns,
		userID, in.FirstName, in.LastName, in.MiddleName, string(gender),
		in.BirthDate, in.DeathDate, in.Generation)

	r, err := scanRelative(row)
	if err != nil {
		return model.Relative{}, fmt.Errorf("storage: create relative: %w", err)
	}
	return r, nil
}

// UpdateRelative patches the given fields of a relative. ErrNotFound when no
// active row matches.
func (db *DB) UpdateRelative(ctx context.Context, userID, relativeID int64, in model.RelativeUpdate) error {
	sets := []string{"updated_at = now()"}
	args := []any{userID, relativeID}

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.FirstName != nil {
		add("first_name", *in.FirstName)
	}
	if in.LastName != nil {
		add("last_name", *in.LastName)
	}
	if in.MiddleName != nil {
		add("middle_name", *in.MiddleName)
	}
	if in.Gender != nil {
		add("gender", string(*in.Gender))
	}
	if in.BirthDate != nil {
		add("birth_date", *in.BirthDate)
	}
	if in.DeathDate != nil {
		add("death_date", *in.DeathDate)
	}
	if in.Generation != nil {
		add("generation", *in.Generation)
	}

	tag, err := db.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE relatives SET %s
		WHERE user_id = $1 AND id = $2 AND is_active`, strings.Join(sets, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("storage: update relative: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: update relative %d: %w", relativeID, ErrNotFound)
	}
	return nil
}

// DeleteRelative soft-deletes a relative and deactivates the relationships
// touching it. Retries on deadlock: two concurrent deletes can take the
// relatives and relationships row locks in opposite order.
func (db *DB) DeleteRelative(ctx context.Context, userID, relativeID int64) error {
	return WithRetry(ctx, 3, 50*time.Millisecond, func() error {
		return db.deleteRelativeTx(ctx, userID, relativeID)
	})
}

func (db *DB) deleteRelativeTx(ctx context.Context, userID, relativeID int64) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: delete relative: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE relatives SET is_active = FALSE, updated_at = now()
		WHERE user_id = $1 AND id = $2 AND is_active`, userID, relativeID)
	if err != nil {
		return fmt.Errorf("storage: delete relative: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: delete relative %d: %w", relativeID, ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE relationships SET is_active = FALSE
		WHERE user_id = $1 AND (from_relative_id = $2 OR to_relative_id = $2) AND is_active`,
		userID, relativeID); err != nil {
		return fmt.Errorf("storage: deactivate relationships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: delete relative: %w", err)
	}
	return nil
}

// GetRelative returns one relative, active or not.
func (db *DB) GetRelative(ctx context.Context, userID, relativeID int64) (model.Relative, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT `+relativeColumns+`
		FROM relatives WHERE user_id = $1 AND id = $2`, userID, relativeID)

	r, err := scanRelative(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Relative{}, fmt.Errorf("storage: relative %d: %w", relativeID, ErrNotFound)
	}
	if err != nil {
		return model.Relative{}, fmt.Errorf("storage: get relative: %w", err)
	}
	return r, nil
}

// ListRelatives returns the user's relatives ordered by id.
func (db *DB) ListRelatives(ctx context.Context, userID int64, onlyActive bool) ([]model.Relative, error) {
	q := `SELECT ` + relativeColumns + ` FROM relatives WHERE user_id = $1`
	if onlyActive {
		q += ` AND is_active`
	}
	q += ` ORDER BY id`

	rows, err := db.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list relatives: %w", err)
	}
	defer rows.Close()

	var out []model.Relative
	for rows.Next() {
		r, err := scanRelative(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan relative: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchRelatives matches term case-insensitively against first, last and
// middle names of active relatives.
func (db *DB) SearchRelatives(ctx context.Context, userID int64, term string) ([]model.Relative, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	rows, err := db.pool.Query(ctx, `
		SELECT `+relativeColumns+`
		FROM relatives
		WHERE user_id = $1 AND is_active
		  AND (lower(first_name) LIKE $2
		    OR lower(last_name) LIKE $2
		    OR lower(coalesce(middle_name, '')) LIKE $2)
		ORDER BY id`, userID, pattern)
	if err != nil {
		return nil, fmt.Errorf("storage: search relatives: %w", err)
	}
	defer rows.Close()

	var out []model.Relative
	for rows.Next() {
		r, err := scanRelative(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan relative: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetStory upserts one story entry in the relative's stories map.
func (db *DB) SetStory(ctx context.Context, userID, relativeID int64, key, value string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE relatives
		SET stories = stories || jsonb_build_object($3::text, $4::text), updated_at = now()
		WHERE user_id = $1 AND id = $2 AND is_active`,
		userID, relativeID, key, value)
	if err != nil {
		return fmt.Errorf("storage: set story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: set story on relative %d: %w", relativeID, ErrNotFound)
	}
	return nil
}

// DeleteStory removes the story key outright, so a missing key stays
// distinguishable from a present-but-empty story.
func (db *DB) DeleteStory(ctx context.Context, userID, relativeID int64, key string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE relatives
		SET stories = stories - $3::text, updated_at = now()
		WHERE user_id = $1 AND id = $2 AND is_active`,
		userID, relativeID, key)
	if err != nil {
		return fmt.Errorf("storage: delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: delete story on relative %d: %w", relativeID, ErrNotFound)
	}
	return nil
}
