// Package resolve turns a scraped instructor name plus noisy page
// context into ranked directory matches.
//
// Resolution runs one linear pass: pick a school (sticky domain
// binding, then hint lookup, then a global name search), then search
// professors scoped to that school with progressively broader queries.
// A directory failure never aborts the pass; the failed tier degrades
// to an empty result and the next tier runs. Nothing below retries a
// tier; retries belong to the transport layer.
package resolve

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/profstalker/pkg/directory"
	"github.com/codeGROOVE-dev/profstalker/pkg/match"
	"github.com/codeGROOVE-dev/profstalker/pkg/normalize"
)

const (
	// maxRecords caps every result list.
	maxRecords = 5
	// topMatches caps scoped results once filters have had their say.
	topMatches = 3
)

// UnscopedLabel marks results found without school confinement.
// Callers should render them with reduced confidence.
const UnscopedLabel = "unscoped"

var (
	// ErrSchoolUnresolved means no school could be determined for the
	// query and the global name search found nothing either.
	ErrSchoolUnresolved = errors.New("school unresolved")

	// ErrProfessorNotFound means every search tier came back empty.
	ErrProfessorNotFound = errors.New("professor not found")
)

// Query is one resolution request.
type Query struct {
	// Name is the raw selected text, honorifics and all.
	Name string
	// Domain is the host of the originating page. It keys the sticky
	// school cache; empty opts out of the cache.
	Domain string
	// SchoolHint is an institution name from page signals or a manual
	// override.
	SchoolHint string
	// Department is a department hint; abbreviations are canonicalized
	// before use.
	Department string
	// Course is carried through to the result untouched.
	Course string
}

// Scored is a directory record plus its match score. Scores are plain
// sums, comparable only within one result.
type Scored struct {
	directory.Professor

	Score int `json:"score"`
}

// Result is a successful resolution.
type Result struct {
	Professors []Scored
	// School is the scoping school, nil for unscoped results.
	School *directory.School
	// SchoolLabel names the scope for display: the school name, or
	// UnscopedLabel when matches were found without confinement.
	SchoolLabel string
	// Overridden reports that the department hint matched no candidate
	// and the lone one was accepted anyway.
	Overridden bool
	// Course echoes the query hint.
	Course string
}

// Resolver orchestrates school resolution and the tiered professor
// search against one directory client.
type Resolver struct {
	client directory.Client
	cache  *SchoolCache
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// Option configures a Resolver.
type Option func(*config)

type config struct {
	logger *slog.Logger
	cache  *SchoolCache
	ttl    time.Duration
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithSchoolCache shares an existing school cache.
func WithSchoolCache(cache *SchoolCache) Option {
	return func(c *config) { c.cache = cache }
}

// WithSchoolTTL bounds how long domain bindings live when the Resolver
// builds its own cache. Zero keeps bindings for the process lifetime.
func WithSchoolTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// New creates a Resolver over a directory client.
func New(client directory.Client, opts ...Option) *Resolver {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	cache := cfg.cache
	if cache == nil {
		cache = NewSchoolCache(cfg.ttl)
	}
	return &Resolver{client: client, cache: cache, logger: cfg.logger}
}

// pass carries the per-resolution derived strings between tiers.
type pass struct {
	q       Query
	cleaned string
	first   string
	last    string
	dept    string
	tokens  int
}

// Resolve runs one school-then-professor pass for the query.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Result, error) {
	cleaned := normalize.Name(q.Name)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty query name", ErrProfessorNotFound)
	}
	first, last := normalize.SplitName(cleaned)
	p := pass{
		q:       q,
		cleaned: cleaned,
		first:   first,
		last:    last,
		dept:    normalize.Department(q.Department),
		tokens:  len(strings.Fields(cleaned)),
	}

	var gen uint64
	if q.Domain != "" {
		gen = r.cache.Begin(q.Domain)

		// Sticky binding first: a domain that resolved before resolves
		// the same way again, staleness accepted, no lookup spent.
		if school, ok := r.cache.Lookup(q.Domain); ok {
			r.logger.DebugContext(ctx, "school from sticky cache",
				"domain", q.Domain, "school", school.Name)
			return r.searchScoped(ctx, p, school)
		}
	}

	if q.SchoolHint != "" {
		school, err := r.client.SearchSchool(ctx, q.SchoolHint)
		if err == nil {
			if q.Domain != "" {
				r.cache.Bind(q.Domain, *school, gen)
			}
			return r.searchScoped(ctx, p, *school)
		}
		// Not-found and unavailable degrade the same way: onward to
		// the global tier.
		r.logger.DebugContext(ctx, "school hint did not resolve",
			"hint", q.SchoolHint, "error", err)
	}

	pool, err := r.client.SearchProfessorsGlobal(ctx, cleaned)
	if err != nil {
		r.logger.WarnContext(ctx, "global search degraded", "name", cleaned, "error", err)
		pool = nil
	}
	if len(pool) > 0 {
		// Matches exist somewhere even though no school could be
		// pinned down. The department filter is skipped here: without
		// a school the hint has no authority.
		scored := scoreAndSort(pool, q.Name, p.dept)
		r.logger.DebugContext(ctx, "resolved without school scope",
			"name", cleaned, "results", len(scored))
		return &Result{
			Professors:  head(scored, maxRecords),
			SchoolLabel: UnscopedLabel,
			Course:      q.Course,
		}, nil
	}

	return nil, fmt.Errorf("%w: domain %q, hint %q", ErrSchoolUnresolved, q.Domain, q.SchoolHint)
}

// ResolveLatest is Resolve for interactive callers: starting a new
// resolution cancels the previous in-flight one, and a superseded
// resolution cannot bind the school cache.
func (r *Resolver) ResolveLatest(ctx context.Context, q Query) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.seq == seq {
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
	}()

	return r.Resolve(ctx, q)
}

// searchScoped is the tiered professor search within one school:
// last-name token first, then the full name, then one unscoped pass.
func (r *Resolver) searchScoped(ctx context.Context, p pass, school directory.School) (*Result, error) {
	pool, err := r.client.SearchProfessors(ctx, p.last, school.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "scoped search degraded",
			"name", p.last, "school", school.Name, "error", err)
		pool = nil
	}
	if len(pool) == 0 && p.cleaned != p.last {
		pool, err = r.client.SearchProfessors(ctx, p.cleaned, school.ID)
		if err != nil {
			r.logger.WarnContext(ctx, "scoped search degraded",
				"name", p.cleaned, "school", school.Name, "error", err)
			pool = nil
		}
	}
	if len(pool) == 0 {
		return r.unscopedFallback(ctx, p)
	}

	scored := scoreAndSort(pool, p.q.Name, p.dept)
	picked, overridden := filterScored(scored, p)
	r.logger.DebugContext(ctx, "resolved within school",
		"name", p.cleaned, "school", school.Name, "results", len(picked), "overridden", overridden)
	return &Result{
		Professors:  picked,
		School:      &school,
		SchoolLabel: school.Name,
		Overridden:  overridden,
		Course:      p.q.Course,
	}, nil
}

// unscopedFallback is the last tier: one global last-name search.
func (r *Resolver) unscopedFallback(ctx context.Context, p pass) (*Result, error) {
	pool, err := r.client.SearchProfessorsGlobal(ctx, p.last)
	if err != nil {
		r.logger.WarnContext(ctx, "unscoped fallback degraded", "name", p.last, "error", err)
		pool = nil
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrProfessorNotFound, p.q.Name)
	}
	scored := scoreAndSort(pool, p.q.Name, p.dept)
	r.logger.DebugContext(ctx, "resolved by unscoped fallback",
		"name", p.last, "results", len(scored))
	return &Result{
		Professors:  head(scored, maxRecords),
		SchoolLabel: UnscopedLabel,
		Course:      p.q.Course,
	}, nil
}

// filterScored applies the post-scoring selection policy to a scoped,
// sorted pool.
func filterScored(scored []Scored, p pass) (picked []Scored, overridden bool) {
	if p.dept != "" {
		if kept := keepDepartment(scored, p.dept); len(kept) > 0 {
			return head(kept, maxRecords), false
		}
		if len(scored) == 1 {
			// A lone candidate survives a department mismatch. The
			// caller sees the flag instead of a silent acceptance.
			return scored, true
		}
		return head(scored, topMatches), false
	}
	if p.tokens > 1 {
		if kept := keepGivenPrefix(scored, p.first); len(kept) > 0 {
			return head(kept, topMatches), false
		}
	}
	return head(scored, topMatches), false
}

func keepDepartment(scored []Scored, dept string) []Scored {
	var kept []Scored
	for _, s := range scored {
		if match.DepartmentsOverlap(s.Department, dept) {
			kept = append(kept, s)
		}
	}
	return kept
}

func keepGivenPrefix(scored []Scored, first string) []Scored {
	want := strings.ToLower(first)
	if want == "" {
		return nil
	}
	var kept []Scored
	for _, s := range scored {
		if strings.HasPrefix(strings.ToLower(s.FirstName), want) {
			kept = append(kept, s)
		}
	}
	return kept
}

// scoreAndSort scores a pool and orders it best first. The sort is
// stable, so equal scores keep the directory's own order.
func scoreAndSort(pool []directory.Professor, queryName, dept string) []Scored {
	scored := make([]Scored, 0, len(pool))
	for _, prof := range pool {
		scored = append(scored, Scored{
			Professor: prof,
			Score:     match.ScoreProfessor(prof, queryName, dept),
		})
	}
	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scored
}

func head(s []Scored, n int) []Scored {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
