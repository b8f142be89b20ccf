// Package profstalker resolves an instructor name selected on a web
// page to ratings-directory records.
//
// Basic usage:
//
//	result, err := profstalker.Resolve(ctx, profstalker.Request{
//	    Name:     "Dr. Stuart Reges",
//	    PageURL:  "https://canvas.uw.edu/courses/12345",
//	    PageHTML: html,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Matches[0].LastName, result.Matches[0].URL)
//
// Hold a Stalker when resolving repeatedly: school bindings stick to
// the page domain, so follow-up lookups from the same site skip the
// school search.
//
//	s, _ := profstalker.New(ctx, profstalker.WithHTTPCache(cache))
//	result, err := s.Resolve(ctx, profstalker.Request{Name: "Reges", PageURL: pageURL})
package profstalker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/profstalker/pkg/directory"
	"github.com/codeGROOVE-dev/profstalker/pkg/hint"
	"github.com/codeGROOVE-dev/profstalker/pkg/httpcache"
	"github.com/codeGROOVE-dev/profstalker/pkg/pagescan"
	"github.com/codeGROOVE-dev/profstalker/pkg/resolve"
	"github.com/codeGROOVE-dev/profstalker/pkg/rmp"
	"github.com/codeGROOVE-dev/profstalker/pkg/signal"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentResolutions bounds ResolveAll's parallelism.
const maxConcurrentResolutions = 4

type (
	// Professor re-exports directory.Professor for convenience.
	Professor = directory.Professor
	// School re-exports directory.School for convenience.
	School = directory.School
	// HTTPCache re-exports httpcache.Cache for convenience.
	HTTPCache = httpcache.Cache
	// SchoolCache re-exports resolve.SchoolCache for convenience.
	SchoolCache = resolve.SchoolCache
)

// Re-export common errors.
var (
	ErrSchoolUnresolved     = resolve.ErrSchoolUnresolved
	ErrProfessorNotFound    = resolve.ErrProfessorNotFound
	ErrDirectoryUnavailable = directory.ErrUnavailable
)

// Request is one resolution request.
type Request struct {
	// Name is the selected text, honorifics and all. Required.
	Name string
	// PageHTML is the page around the selection; it feeds school,
	// department, and course hint extraction. Optional.
	PageHTML string
	// PageURL is the page address. Its host keys the sticky school
	// binding, and an educational domain loosens signal filtering.
	PageURL string
	// School overrides school detection with a trusted name.
	School string
	// Department pre-seeds the department hint; abbreviations like
	// "cse" are canonicalized.
	Department string
	// Course pre-seeds the course hint.
	Course string
}

// Match is one directory record with its score and ratings page.
type Match struct {
	resolve.Scored

	URL string `json:"url,omitempty"`
}

// Result is a resolution outcome plus the hints that produced it.
type Result struct {
	Matches []Match `json:"matches"`
	// SchoolLabel names the scope: a school name, or "unscoped" for
	// matches found without school confinement.
	SchoolLabel string  `json:"school_label"`
	School      *School `json:"school,omitempty"`
	// Overridden flags a lone candidate accepted despite a department
	// mismatch.
	Overridden bool `json:"overridden,omitempty"`
	// SchoolHint, Department, and Course echo the hints used, whether
	// supplied or extracted from the page.
	SchoolHint string `json:"school_hint,omitempty"`
	Department string `json:"department,omitempty"`
	Course     string `json:"course,omitempty"`
}

// Outcome pairs one ResolveAll entry with its error.
type Outcome struct {
	Result *Result
	Err    error
}

// Option configures a Stalker.
type Option func(*config)

//nolint:govet // fieldalignment: intentional layout for readability
type config struct {
	cache       httpcache.Cacher
	logger      *slog.Logger
	directory   directory.Client
	schoolCache *resolve.SchoolCache
	schoolTTL   time.Duration
}

// WithHTTPCache sets the HTTP cache for directory and page responses.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDirectory swaps in another directory client.
func WithDirectory(client directory.Client) Option {
	return func(c *config) { c.directory = client }
}

// WithSchoolCache shares a sticky school cache across Stalkers.
func WithSchoolCache(cache *resolve.SchoolCache) Option {
	return func(c *config) { c.schoolCache = cache }
}

// WithSchoolTTL bounds how long a domain's school binding lives.
// Zero keeps bindings for the process lifetime.
func WithSchoolTTL(ttl time.Duration) Option {
	return func(c *config) { c.schoolTTL = ttl }
}

// Stalker resolves instructor names through one directory client with
// session-sticky school bindings.
type Stalker struct {
	directory  directory.Client
	resolver   *resolve.Resolver
	cache      httpcache.Cacher
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Stalker. Without options it talks to RateMyProfessors
// with no response caching.
func New(ctx context.Context, opts ...Option) (*Stalker, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	cache := cfg.cache
	if cache == nil {
		cache = httpcache.NewNull()
	}

	client := cfg.directory
	if client == nil {
		rmpClient, err := rmp.New(ctx, rmp.WithHTTPCache(cache), rmp.WithLogger(cfg.logger))
		if err != nil {
			return nil, err
		}
		client = rmpClient
	}

	resolverOpts := []resolve.Option{resolve.WithLogger(cfg.logger)}
	if cfg.schoolCache != nil {
		resolverOpts = append(resolverOpts, resolve.WithSchoolCache(cfg.schoolCache))
	}
	if cfg.schoolTTL > 0 {
		resolverOpts = append(resolverOpts, resolve.WithSchoolTTL(cfg.schoolTTL))
	}

	return &Stalker{
		directory:  client,
		resolver:   resolve.New(client, resolverOpts...),
		cache:      cache,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     cfg.logger,
	}, nil
}

// Resolve runs the full pipeline for one selection: scan the page for
// signals, extract hints around the name, then resolve against the
// directory.
func (s *Stalker) Resolve(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name is required")
	}

	q := s.buildQuery(ctx, req)
	res, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.buildResult(q, res), nil
}

// ResolveLatest is Resolve for interactive callers: a new call cancels
// the previous in-flight one.
func (s *Stalker) ResolveLatest(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name is required")
	}

	q := s.buildQuery(ctx, req)
	res, err := s.resolver.ResolveLatest(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.buildResult(q, res), nil
}

// ResolveAll resolves several requests concurrently under a small
// worker cap. Outcomes hold position with their requests; one failed
// entry does not stop the rest.
func (s *Stalker) ResolveAll(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentResolutions)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Resolve(ctx, req)
			outcomes[i] = Outcome{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through outcomes
	return outcomes
}

// FetchPage retrieves a page so its HTML can feed hint extraction.
func (s *Stalker) FetchPage(ctx context.Context, pageURL string) (string, error) {
	body, err := httpcache.Get(ctx, s.cache, s.httpClient, pageURL, s.logger)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// buildQuery turns a request plus its page into a resolver query.
func (s *Stalker) buildQuery(ctx context.Context, req Request) resolve.Query {
	domain := pageDomain(req.PageURL)
	q := resolve.Query{
		Name:       req.Name,
		Domain:     domain,
		SchoolHint: req.School,
		Department: req.Department,
		Course:     req.Course,
	}
	if req.PageHTML == "" {
		return q
	}

	// A manual school override bypasses signal scoring entirely.
	if q.SchoolHint == "" {
		if best := signal.Best(pagescan.Signals(req.PageHTML), domain); best != nil {
			q.SchoolHint = best.Name
			s.logger.DebugContext(ctx, "school hint from page signals",
				"school", best.Name, "weight", best.Weight, "sources", best.Sources)
		}
	}

	if q.Department == "" || q.Course == "" {
		found := hint.FromBlocks(pagescan.BlocksAround(req.PageHTML, req.Name))
		if found.Department == "" {
			found.Department = hint.FromHeadings(pagescan.Headings(req.PageHTML)).Department
		}
		if q.Department == "" {
			q.Department = found.Department
		}
		if q.Course == "" {
			q.Course = found.Course
		}
		if found.Department != "" || found.Course != "" {
			s.logger.DebugContext(ctx, "context hints from page",
				"department", found.Department, "course", found.Course)
		}
	}
	return q
}

func (s *Stalker) buildResult(q resolve.Query, res *resolve.Result) *Result {
	matches := make([]Match, 0, len(res.Professors))
	for _, p := range res.Professors {
		matches = append(matches, Match{Scored: p, URL: rmp.RatingsURL(p.Professor)})
	}
	return &Result{
		Matches:     matches,
		SchoolLabel: res.SchoolLabel,
		School:      res.School,
		Overridden:  res.Overridden,
		SchoolHint:  q.SchoolHint,
		Department:  q.Department,
		Course:      res.Course,
	}
}

// pageDomain extracts the host from a page URL, tolerating bare hosts.
func pageDomain(pageURL string) string {
	if pageURL == "" {
		return ""
	}
	u, err := url.Parse(pageURL)
	if err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	if !strings.Contains(pageURL, "/") {
		return strings.ToLower(pageURL)
	}
	return ""
}

// Resolve is a one-shot helper that builds a default Stalker per call.
// School bindings do not persist across calls; hold a Stalker for that.
func Resolve(ctx context.Context, req Request, opts ...Option) (*Result, error) {
	s, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, req)
}
