package resolve

import (
	"sync"
	"time"

	"github.com/codeGROOVE-dev/profstalker/pkg/directory"
)

// SchoolCache remembers which school each page domain resolved to, so
// repeat lookups from the same site skip the school search entirely.
// Bindings expire after a TTL and carry a per-domain generation: a
// resolution that has been superseded by a newer one for the same
// domain cannot overwrite the newer binding.
type SchoolCache struct {
	entries map[string]*domainBinding
	ttl     time.Duration
	mu      sync.Mutex
}

type domainBinding struct {
	school  directory.School
	expires time.Time
	gen     uint64
	bound   bool
}

// NewSchoolCache creates an empty cache. A zero TTL means bindings
// never expire.
func NewSchoolCache(ttl time.Duration) *SchoolCache {
	return &SchoolCache{entries: make(map[string]*domainBinding), ttl: ttl}
}

// Begin opens a new resolution round for the domain and returns its
// generation. A later Bind presenting an older generation is discarded.
func (c *SchoolCache) Begin(domain string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[domain]
	if entry == nil {
		entry = &domainBinding{}
		c.entries[domain] = entry
	}
	entry.gen++
	return entry.gen
}

// Lookup returns the school bound to the domain while the binding is
// live. Expired bindings clear lazily.
func (c *SchoolCache) Lookup(domain string) (directory.School, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[domain]
	if entry == nil || !entry.bound {
		return directory.School{}, false
	}
	if c.ttl > 0 && time.Now().After(entry.expires) {
		entry.bound = false
		return directory.School{}, false
	}
	return entry.school, true
}

// Bind records the school for a domain, unless a newer round has begun
// since gen was issued.
func (c *SchoolCache) Bind(domain string, school directory.School, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[domain]
	if entry == nil || entry.gen != gen {
		return
	}
	entry.school = school
	entry.bound = true
	if c.ttl > 0 {
		entry.expires = time.Now().Add(c.ttl)
	}
}
