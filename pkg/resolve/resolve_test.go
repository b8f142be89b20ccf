package resolve

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/codeGROOVE-dev/profstalker/pkg/directory"
)

// fakeDirectory serves canned search results and records every call.
type fakeDirectory struct {
	schools map[string]directory.School     // hint -> school
	scoped  map[string][]directory.Professor // "name@schoolID" -> pool
	global  map[string][]directory.Professor // name -> pool

	schoolErr error
	scopedErr error
	globalErr error

	mu          sync.Mutex
	schoolCalls []string
	scopedCalls []string
	globalCalls []string
}

func (f *fakeDirectory) SearchSchool(_ context.Context, name string) (*directory.School, error) {
	f.mu.Lock()
	f.schoolCalls = append(f.schoolCalls, name)
	f.mu.Unlock()
	if f.schoolErr != nil {
		return nil, f.schoolErr
	}
	if school, ok := f.schools[name]; ok {
		return &school, nil
	}
	return nil, directory.ErrSchoolNotFound
}

func (f *fakeDirectory) SearchProfessors(_ context.Context, name, schoolID string) ([]directory.Professor, error) {
	f.mu.Lock()
	f.scopedCalls = append(f.scopedCalls, name+"@"+schoolID)
	f.mu.Unlock()
	if f.scopedErr != nil {
		return nil, f.scopedErr
	}
	return f.scoped[name+"@"+schoolID], nil
}

func (f *fakeDirectory) SearchProfessorsGlobal(_ context.Context, name string) ([]directory.Professor, error) {
	f.mu.Lock()
	f.globalCalls = append(f.globalCalls, name)
	f.mu.Unlock()
	if f.globalErr != nil {
		return nil, f.globalErr
	}
	return f.global[name], nil
}

func prof(id, first, last, dept string) directory.Professor {
	return directory.Professor{ID: id, FirstName: first, LastName: last, Department: dept}
}

var uw = directory.School{ID: "school-uw", Name: "University of Washington"}

func TestResolveHintedSchool(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		scoped: map[string][]directory.Professor{
			"Reges@school-uw": {
				prof("p2", "Sturgis", "Regis", "Mathematics"),
				prof("p1", "Stuart", "Reges", "Computer Science"),
			},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Dr. Stuart Reges",
		Domain:     "canvas.uw.edu",
		SchoolHint: "University of Washington",
		Department: "CS",
		Course:     "CSE 142",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if res.SchoolLabel != "University of Washington" {
		t.Errorf("SchoolLabel = %q", res.SchoolLabel)
	}
	if res.School == nil || res.School.ID != uw.ID {
		t.Errorf("School = %+v, want %q", res.School, uw.ID)
	}
	if len(res.Professors) != 1 {
		t.Fatalf("len(Professors) = %d, want 1 after department filter", len(res.Professors))
	}
	if got := res.Professors[0]; got.LastName != "Reges" || got.Score < 105 {
		t.Errorf("top match = %s %s score %d, want Reges with score >= 105",
			got.FirstName, got.LastName, got.Score)
	}
	if res.Overridden {
		t.Error("Overridden = true for a department-agreeing match")
	}
	if res.Course != "CSE 142" {
		t.Errorf("Course = %q, want passthrough", res.Course)
	}

	// Last-name token is always the first scoped query.
	if len(fake.scopedCalls) == 0 || fake.scopedCalls[0] != "Reges@school-uw" {
		t.Errorf("scopedCalls = %v, want last-name search first", fake.scopedCalls)
	}
	if len(fake.schoolCalls) != 1 {
		t.Errorf("schoolCalls = %v, want exactly one lookup", fake.schoolCalls)
	}
}

func TestResolveStickyDomain(t *testing.T) {
	cache := NewSchoolCache(0)
	cache.Bind("canvas.uw.edu", uw, cache.Begin("canvas.uw.edu"))

	fake := &fakeDirectory{
		scoped: map[string][]directory.Professor{
			"Reges@school-uw": {prof("p1", "Stuart", "Reges", "Computer Science")},
		},
	}
	r := New(fake, WithSchoolCache(cache))

	res, err := r.Resolve(context.Background(), Query{Name: "Stuart Reges", Domain: "canvas.uw.edu"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.School == nil || res.School.ID != uw.ID {
		t.Errorf("School = %+v, want cached binding %q", res.School, uw.ID)
	}
	if len(fake.schoolCalls) != 0 {
		t.Errorf("schoolCalls = %v, want none on a cache hit", fake.schoolCalls)
	}
}

func TestResolveBindsDomainAfterHint(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		scoped: map[string][]directory.Professor{
			"Reges@school-uw": {prof("p1", "Stuart", "Reges", "Computer Science")},
		},
	}
	r := New(fake)

	q := Query{Name: "Stuart Reges", Domain: "canvas.uw.edu", SchoolHint: "University of Washington"}
	if _, err := r.Resolve(context.Background(), q); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Second request from the same domain, no hint this time.
	q.SchoolHint = ""
	if _, err := r.Resolve(context.Background(), q); err != nil {
		t.Fatalf("Resolve() second error = %v", err)
	}
	if len(fake.schoolCalls) != 1 {
		t.Errorf("schoolCalls = %v, want the binding to cover the second request", fake.schoolCalls)
	}
}

func TestResolveGlobalShortCircuit(t *testing.T) {
	pool := []directory.Professor{
		prof("p1", "Quinn", "Reges", "History"),
		prof("p2", "Quinn", "Reges", "History"),
		prof("p3", "Quinn", "Reges", "History"),
		prof("p4", "Stuart", "Reges", "History"),
		prof("p5", "Quinn", "Reges", "History"),
		prof("p6", "Quinn", "Reges", "History"),
		prof("p7", "Quinn", "Reges", "History"),
	}
	fake := &fakeDirectory{global: map[string][]directory.Professor{"Stuart Reges": pool}}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{Name: "Stuart Reges", Department: "CS"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if res.SchoolLabel != UnscopedLabel {
		t.Errorf("SchoolLabel = %q, want %q", res.SchoolLabel, UnscopedLabel)
	}
	if res.School != nil {
		t.Errorf("School = %+v, want nil for unscoped", res.School)
	}
	// Department filtering is skipped on this branch: every record has a
	// mismatching department, yet five still come back.
	if len(res.Professors) != 5 {
		t.Fatalf("len(Professors) = %d, want 5", len(res.Professors))
	}
	if res.Professors[0].FirstName != "Stuart" {
		t.Errorf("top match = %q, want the best-scored first", res.Professors[0].FirstName)
	}
	if len(fake.scopedCalls) != 0 {
		t.Errorf("scopedCalls = %v, want none on the global short-circuit", fake.scopedCalls)
	}
}

func TestResolveSchoolUnresolved(t *testing.T) {
	fake := &fakeDirectory{}
	r := New(fake)

	_, err := r.Resolve(context.Background(), Query{
		Name:       "Jane Doe",
		Domain:     "lms.nowhere.test",
		SchoolHint: "Nowhere University",
	})
	if !errors.Is(err, ErrSchoolUnresolved) {
		t.Errorf("Resolve() error = %v, want ErrSchoolUnresolved", err)
	}

	if got := fake.schoolCalls; len(got) != 1 || got[0] != "Nowhere University" {
		t.Errorf("schoolCalls = %v", got)
	}
	if got := fake.globalCalls; len(got) != 1 || got[0] != "Jane Doe" {
		t.Errorf("globalCalls = %v, want one global attempt", got)
	}
}

func TestResolveSchoolLookupUnavailable(t *testing.T) {
	fake := &fakeDirectory{
		schoolErr: directory.ErrUnavailable,
		global: map[string][]directory.Professor{
			"Stuart Reges": {prof("p1", "Stuart", "Reges", "Computer Science")},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Stuart Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want degradation to the global tier", err)
	}
	if res.SchoolLabel != UnscopedLabel {
		t.Errorf("SchoolLabel = %q, want %q", res.SchoolLabel, UnscopedLabel)
	}
}

func TestResolveFullNameRetry(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		scoped: map[string][]directory.Professor{
			"Stuart Reges@school-uw": {prof("p1", "Stuart", "Reges", "Computer Science")},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Stuart Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Professors) != 1 {
		t.Fatalf("len(Professors) = %d, want 1", len(res.Professors))
	}

	want := []string{"Reges@school-uw", "Stuart Reges@school-uw"}
	if len(fake.scopedCalls) != 2 || fake.scopedCalls[0] != want[0] || fake.scopedCalls[1] != want[1] {
		t.Errorf("scopedCalls = %v, want %v", fake.scopedCalls, want)
	}
}

func TestResolveUnscopedFallback(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		global: map[string][]directory.Professor{
			"Reges": {
				prof("p1", "Stuart", "Reges", "Computer Science"),
				prof("p2", "Quinn", "Reges", "History"),
				prof("p3", "Quinn", "Reges", "History"),
				prof("p4", "Quinn", "Reges", "History"),
				prof("p5", "Quinn", "Reges", "History"),
				prof("p6", "Quinn", "Reges", "History"),
			},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Stuart Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SchoolLabel != UnscopedLabel {
		t.Errorf("SchoolLabel = %q, want %q", res.SchoolLabel, UnscopedLabel)
	}
	if len(res.Professors) != 5 {
		t.Errorf("len(Professors) = %d, want cap of 5", len(res.Professors))
	}
	if res.Professors[0].FirstName != "Stuart" {
		t.Errorf("top match = %q, want best-scored first", res.Professors[0].FirstName)
	}
	if got := fake.globalCalls; len(got) != 1 || got[0] != "Reges" {
		t.Errorf("globalCalls = %v, want one last-name fallback", got)
	}
}

func TestResolveProfessorNotFound(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
	}
	r := New(fake)

	_, err := r.Resolve(context.Background(), Query{
		Name:       "Stuart Reges",
		SchoolHint: "University of Washington",
	})
	if !errors.Is(err, ErrProfessorNotFound) {
		t.Errorf("Resolve() error = %v, want ErrProfessorNotFound", err)
	}
}

func TestResolveScopedUnavailableDegrades(t *testing.T) {
	fake := &fakeDirectory{
		schools:   map[string]directory.School{"University of Washington": uw},
		scopedErr: directory.ErrUnavailable,
		global: map[string][]directory.Professor{
			"Reges": {prof("p1", "Stuart", "Reges", "Computer Science")},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Stuart Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want unscoped fallback success", err)
	}
	if res.SchoolLabel != UnscopedLabel {
		t.Errorf("SchoolLabel = %q, want %q", res.SchoolLabel, UnscopedLabel)
	}
}

func TestResolveAllTiersUnavailable(t *testing.T) {
	fake := &fakeDirectory{
		schools:   map[string]directory.School{"University of Washington": uw},
		scopedErr: directory.ErrUnavailable,
		globalErr: directory.ErrUnavailable,
	}
	r := New(fake)

	_, err := r.Resolve(context.Background(), Query{
		Name:       "Stuart Reges",
		SchoolHint: "University of Washington",
	})
	if !errors.Is(err, ErrProfessorNotFound) {
		t.Errorf("Resolve() error = %v, want ErrProfessorNotFound", err)
	}
	if errors.Is(err, directory.ErrUnavailable) {
		t.Error("transport failure leaked out of the waterfall")
	}
}

func TestResolveSingleCandidateOverride(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"State College": {ID: "school-sc", Name: "State College"}},
		scoped: map[string][]directory.Professor{
			"Stewart@school-sc": {prof("p1", "Martha", "Stewart", "Culinary Arts")},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Martha Stewart",
		SchoolHint: "State College",
		Department: "Computer Science",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Professors) != 1 {
		t.Fatalf("len(Professors) = %d, want the lone candidate", len(res.Professors))
	}
	if !res.Overridden {
		t.Error("Overridden = false, want true for a department-mismatched lone candidate")
	}
}

func TestResolveDepartmentMismatchPool(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"State College": {ID: "school-sc", Name: "State College"}},
		scoped: map[string][]directory.Professor{
			"Stewart@school-sc": {
				prof("p1", "Martha", "Stewart", "Culinary Arts"),
				prof("p2", "May", "Stewart", "Business"),
			},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Martha Stewart",
		SchoolHint: "State College",
		Department: "Computer Science",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Professors) != 2 {
		t.Fatalf("len(Professors) = %d, want top matches despite the mismatch", len(res.Professors))
	}
	if res.Overridden {
		t.Error("Overridden = true, want false when more than one candidate exists")
	}
	if res.Professors[0].FirstName != "Martha" {
		t.Errorf("top match = %q, want the better-scored name first", res.Professors[0].FirstName)
	}
}

func TestResolveGivenNamePrefixPreference(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		scoped: map[string][]directory.Professor{
			"Reges@school-uw": {
				prof("p1", "Amy", "Reges", ""),
				prof("p2", "Stuart", "Reges", ""),
				prof("p3", "Sturgis", "Reges", ""),
			},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Stu Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Professors) != 2 {
		t.Fatalf("len(Professors) = %d, want only prefix matches", len(res.Professors))
	}
	for _, p := range res.Professors {
		if p.FirstName != "Stuart" && p.FirstName != "Sturgis" {
			t.Errorf("unexpected match %q, want Stu-prefixed first names", p.FirstName)
		}
	}
}

func TestResolveSingleTokenTopThree(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		scoped: map[string][]directory.Professor{
			"Reges@school-uw": {
				prof("p1", "Amy", "Reges", ""),
				prof("p2", "Bea", "Reges", ""),
				prof("p3", "Cal", "Reges", ""),
				prof("p4", "Dot", "Reges", ""),
			},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Professors) != 3 {
		t.Fatalf("len(Professors) = %d, want top 3", len(res.Professors))
	}
}

func TestResolveTieStability(t *testing.T) {
	fake := &fakeDirectory{
		schools: map[string]directory.School{"University of Washington": uw},
		scoped: map[string][]directory.Professor{
			"Reges@school-uw": {
				prof("a", "Stuart", "Reges", ""),
				prof("b", "Stuart", "Reges", ""),
				prof("c", "Stuart", "Reges", ""),
				prof("d", "Stuart", "Reges", ""),
			},
		},
	}
	r := New(fake)

	res, err := r.Resolve(context.Background(), Query{
		Name:       "Reges",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(res.Professors) != len(want) {
		t.Fatalf("len(Professors) = %d, want %d", len(res.Professors), len(want))
	}
	for i, p := range res.Professors {
		if p.ID != want[i] {
			t.Errorf("Professors[%d].ID = %q, want %q (directory order on ties)", i, p.ID, want[i])
		}
	}
}

func TestResolveEmptyName(t *testing.T) {
	r := New(&fakeDirectory{})
	_, err := r.Resolve(context.Background(), Query{Name: "  Dr.  "})
	if !errors.Is(err, ErrProfessorNotFound) {
		t.Errorf("Resolve() error = %v, want ErrProfessorNotFound", err)
	}
}

// blockingDirectory stalls a designated school lookup until its context
// is cancelled.
type blockingDirectory struct {
	fakeDirectory

	entered chan struct{}
	once    sync.Once
}

func (b *blockingDirectory) SearchSchool(ctx context.Context, name string) (*directory.School, error) {
	if name == "Slow University" {
		b.once.Do(func() { close(b.entered) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.fakeDirectory.SearchSchool(ctx, name)
}

func TestResolveLatestSupersedes(t *testing.T) {
	blocker := &blockingDirectory{entered: make(chan struct{})}
	blocker.schools = map[string]directory.School{"University of Washington": uw}
	blocker.scoped = map[string][]directory.Professor{
		"Reges@school-uw": {prof("p1", "Stuart", "Reges", "Computer Science")},
	}

	cache := NewSchoolCache(0)
	r := New(blocker, WithSchoolCache(cache))

	type outcome struct {
		res *Result
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := r.ResolveLatest(context.Background(), Query{
			Name:       "Stuart Reges",
			Domain:     "canvas.uw.edu",
			SchoolHint: "Slow University",
		})
		firstDone <- outcome{res, err}
	}()
	<-blocker.entered

	// A new selection supersedes the stalled resolution.
	res, err := r.ResolveLatest(context.Background(), Query{
		Name:       "Stuart Reges",
		Domain:     "canvas.uw.edu",
		SchoolHint: "University of Washington",
	})
	if err != nil {
		t.Fatalf("ResolveLatest() error = %v", err)
	}
	if res.School == nil || res.School.ID != uw.ID {
		t.Errorf("School = %+v, want %q", res.School, uw.ID)
	}

	first := <-firstDone
	if first.err == nil {
		t.Error("superseded resolution returned success, want cancellation failure")
	}

	// The superseded resolution must not have disturbed the binding.
	school, ok := cache.Lookup("canvas.uw.edu")
	if !ok || school.ID != uw.ID {
		t.Errorf("cache binding = %+v ok=%v, want the newer resolution's school", school, ok)
	}
}
