package model

import "time"

// Gender is a relative's recorded gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender maps a raw string onto a Gender, defaulting to GenderOther.
func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale, GenderFemale:
		return Gender(s)
	default:
		return GenderOther
	}
}

// Relative is a person in a user's family tree. Every relative is owned by
// exactly one user; all queries and mutations are scoped by that user id.
type Relative struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"user_id"`
	FirstName  string            `json:"first_name"`
	LastName   string            `json:"last_name"`
	MiddleName *string           `json:"middle_name,omitempty"`
	Gender     Gender            `json:"gender"`
	BirthDate  *time.Time        `json:"birth_date,omitempty"`
	DeathDate  *time.Time        `json:"death_date,omitempty"`
	// Generation is the signed offset from the owning user
	// (0 = user, 1 = parents, -1 = children).
	Generation *int              `json:"generation,omitempty"`
	// Stories maps a story title to its text.
	Stories  map[string]string `json:"stories,omitempty"`
	IsActive bool              `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns "First Last" with missing parts dropped.
// An entirely unnamed relative renders as "(unnamed)".
func (r Relative) DisplayName() string {
	name := r.FirstName
	if r.LastName != "" {
		if name != "" {
			name += " "
		}
		name += r.LastName
	}
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// RelativeCreate holds the fields accepted when creating a relative.
type RelativeCreate struct {
	FirstName  string
	LastName   string
	MiddleName *string
	Gender     Gender
	BirthDate  *time.Time
	DeathDate  *time.Time
	Generation *int
	Stories    map[string]string
}

// RelativeUpdate holds a partial update; nil fields are left unchanged.
type RelativeUpdate struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
	Gender     *Gender
	BirthDate  *time.Time
	DeathDate  *time.Time
	Generation *int
}

// IsZero reports whether the update carries no changes.
func (u RelativeUpdate) IsZero() bool {
	return u.FirstName == nil && u.LastName == nil && u.MiddleName == nil &&
		u.Gender == nil && u.BirthDate == nil && u.DeathDate == nil && u.Generation == nil
}
