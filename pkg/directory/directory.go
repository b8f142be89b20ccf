// Package directory defines the common types for professor-directory lookups.
package directory

import (
	"context"
	"errors"
)

// Common errors returned by directory clients.
var (
	ErrSchoolNotFound = errors.New("school not found")
	ErrUnavailable    = errors.New("directory unavailable")
)

// School identifies one institution in the directory.
type School struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	City  string `json:",omitempty"`
	State string `json:",omitempty"`
}

// Professor represents one instructor record as the directory returns it.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Professor struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:",omitempty"`
	School     School `json:",omitzero"`

	// Rating aggregates. Zero values mean "no ratings yet", not "rated zero".
	AvgRating             float64 `json:",omitempty"`
	AvgDifficulty         float64 `json:",omitempty"`
	NumRatings            int     `json:",omitempty"`
	WouldTakeAgainPercent float64 `json:",omitempty"`

	// LegacyID is the numeric identifier used in public rating-page URLs.
	LegacyID int64 `json:",omitempty"`
}

// Client is the search surface a professor directory must provide.
// Every method may legitimately return an empty result; callers must not
// assume uniqueness and must not paginate beyond the returned set.
type Client interface {
	// SearchSchool resolves an institution name to a school record.
	SearchSchool(ctx context.Context, name string) (*School, error)
	// SearchProfessors searches instructors by name within one school.
	SearchProfessors(ctx context.Context, name, schoolID string) ([]Professor, error)
	// SearchProfessorsGlobal searches instructors by name across all schools.
	SearchProfessorsGlobal(ctx context.Context, name string) ([]Professor, error)
}
