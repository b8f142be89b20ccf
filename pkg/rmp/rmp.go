// Package rmp searches the RateMyProfessors GraphQL API.
package rmp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/profstalker/pkg/directory"
	"github.com/codeGROOVE-dev/profstalker/pkg/httpcache"
)

const (
	defaultBaseURL = "https://www.ratemyprofessors.com/graphql"

	// The site front-end sends this fixed header on every anonymous
	// GraphQL call. There is no per-user credential.
	basicAuth = "Basic dGVzdDp0ZXN0"
)

// schoolQuery finds institutions by free-text name.
const schoolQuery = `query SchoolSearch($text: String!) {
  newSearch {
    schools(query: {text: $text}) {
      edges { node { id name city state } }
    }
  }
}`

// teacherQuery finds instructors by free-text name. A null schoolID
// searches across all schools.
const teacherQuery = `query TeacherSearch($text: String!, $schoolID: ID) {
  newSearch {
    teachers(query: {text: $text, schoolID: $schoolID}) {
      edges {
        node {
          id
          legacyId
          firstName
          lastName
          department
          avgRating
          avgDifficulty
          numRatings
          wouldTakeAgainPercent
          school { id name }
        }
      }
    }
  }
}`

// Client handles RateMyProfessors requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	baseURL    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	baseURL string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL overrides the GraphQL endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// New creates a RateMyProfessors client.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
	}, nil
}

// SearchSchool resolves an institution name to its best-matching school
// record. The API ranks by relevance, so the first result wins.
func (c *Client) SearchSchool(ctx context.Context, name string) (*directory.School, error) {
	c.logger.DebugContext(ctx, "searching for school", "name", name)

	data, err := c.post(ctx, schoolQuery, map[string]any{"text": name})
	if err != nil {
		return nil, err
	}

	var resp struct {
		NewSearch struct {
			Schools struct {
				Edges []struct {
					Node directory.School `json:"node"`
				} `json:"edges"`
			} `json:"schools"`
		} `json:"newSearch"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode schools: %w", directory.ErrUnavailable, err)
	}

	edges := resp.NewSearch.Schools.Edges
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: %q", directory.ErrSchoolNotFound, name)
	}
	school := edges[0].Node
	c.logger.DebugContext(ctx, "school found", "name", school.Name, "id", school.ID)
	return &school, nil
}

// SearchProfessors searches instructors by name within one school.
// No matches is an empty slice, not an error.
func (c *Client) SearchProfessors(ctx context.Context, name, schoolID string) ([]directory.Professor, error) {
	return c.searchTeachers(ctx, name, schoolID)
}

// SearchProfessorsGlobal searches instructors by name across all schools.
func (c *Client) SearchProfessorsGlobal(ctx context.Context, name string) ([]directory.Professor, error) {
	return c.searchTeachers(ctx, name, "")
}

func (c *Client) searchTeachers(ctx context.Context, name, schoolID string) ([]directory.Professor, error) {
	vars := map[string]any{"text": name}
	if schoolID != "" {
		vars["schoolID"] = schoolID
	}
	c.logger.DebugContext(ctx, "searching for professors", "name", name, "school_id", schoolID)

	data, err := c.post(ctx, teacherQuery, vars)
	if err != nil {
		return nil, err
	}

	var resp struct {
		NewSearch struct {
			Teachers struct {
				Edges []struct {
					Node teacherNode `json:"node"`
				} `json:"edges"`
			} `json:"teachers"`
		} `json:"newSearch"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode teachers: %w", directory.ErrUnavailable, err)
	}

	edges := resp.NewSearch.Teachers.Edges
	professors := make([]directory.Professor, 0, len(edges))
	for _, edge := range edges {
		professors = append(professors, edge.Node.professor())
	}
	c.logger.DebugContext(ctx, "professor search complete", "name", name, "results", len(professors))
	return professors, nil
}

// post sends one GraphQL request and unwraps the response envelope.
// Transport and API failures both surface as ErrUnavailable so callers
// can treat the directory as a single flaky dependency.
func (c *Client) post(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	header := http.Header{"Authorization": []string{basicAuth}}
	body, err := httpcache.PostJSON(ctx, c.cache, c.httpClient, c.baseURL, payload, header, c.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", directory.ErrUnavailable, err)
	}

	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", directory.ErrUnavailable, err)
	}
	if len(env.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", directory.ErrUnavailable, env.Errors[0].Message)
	}
	return env.Data, nil
}

// teacherNode is the wire shape of one teacher search result.
type teacherNode struct {
	ID                    string  `json:"id"`
	LegacyID              int64   `json:"legacyId"`
	FirstName             string  `json:"firstName"`
	LastName              string  `json:"lastName"`
	Department            string  `json:"department"`
	AvgRating             float64 `json:"avgRating"`
	AvgDifficulty         float64 `json:"avgDifficulty"`
	NumRatings            int     `json:"numRatings"`
	WouldTakeAgainPercent float64 `json:"wouldTakeAgainPercent"`
	School                struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"school"`
}

func (n teacherNode) professor() directory.Professor {
	return directory.Professor{
		ID:                    n.ID,
		FirstName:             n.FirstName,
		LastName:              n.LastName,
		Department:            n.Department,
		School:                directory.School{ID: n.School.ID, Name: n.School.Name},
		AvgRating:             n.AvgRating,
		AvgDifficulty:         n.AvgDifficulty,
		NumRatings:            n.NumRatings,
		WouldTakeAgainPercent: n.WouldTakeAgainPercent,
		LegacyID:              n.LegacyID,
	}
}

// RatingsURL returns the public ratings page for a professor, or ""
// when the record has no legacy identifier.
func RatingsURL(p directory.Professor) string {
	if p.LegacyID == 0 {
		return ""
	}
	return fmt.Sprintf("https://www.ratemyprofessors.com/professor/%d", p.LegacyID)
}
