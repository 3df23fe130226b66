package status

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// Control is the three-way classification of a path.
type Control int

const (
	// Controlled paths are known to git.
	Controlled Control = iota
	// Ignored paths are excluded from version control.
	Ignored
	// NotControlled paths are outside any repository root or simply
	// not tracked.
	NotControlled
)

func (c Control) String() string {
	switch c {
	case Controlled:
		return "controlled"
	case Ignored:
		return "ignored"
	default:
		return "not-controlled"
	}
}

// Queryer is the slice of the git facade the cache needs: a read-only
// "does git know this file" query.
type Queryer interface {
	FileKnown(ctx context.Context, path string) (bool, error)
}

// Resolver maps an absolute path to the facade of its owning repository
// root, or nil when the path is outside every root.
type Resolver func(path string) Queryer

// Cache memoizes the control classification of paths. A path is in
// exactly one of the three sets at any time. Entries never expire on
// their own; callers invalidate explicitly on structural changes.
type Cache struct {
	mu            sync.Mutex
	controlled    map[string]struct{}
	ignored       map[string]struct{}
	notControlled map[string]struct{}
	resolve       Resolver
	logf          func(string, ...any)
}

// NewCache builds an empty cache that resolves owning roots through
// resolve. logf may be nil.
func NewCache(resolve Resolver, logf func(string, ...any)) *Cache {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Cache{
		controlled:    make(map[string]struct{}),
		ignored:       make(map[string]struct{}),
		notControlled: make(map[string]struct{}),
		resolve:       resolve,
		logf:          logf,
	}
}

// Classify returns the memoized classification of path, computing and
// memoizing it on a miss. The lock is not held across the status query:
// two goroutines may race to classify the same path and both issue the
// query, which is wasteful but harmless.
func (c *Cache) Classify(ctx context.Context, path string) Control {
	c.mu.Lock()
	if _, ok := c.controlled[path]; ok {
		c.mu.Unlock()
		return Controlled
	}
	if _, ok := c.ignored[path]; ok {
		c.mu.Unlock()
		return Ignored
	}
	if _, ok := c.notControlled[path]; ok {
		c.mu.Unlock()
		return NotControlled
	}
	c.mu.Unlock()

	if insideMetadataDir(path) {
		c.memoize(path, Ignored)
		return Ignored
	}

	q := c.resolve(path)
	if q == nil {
		c.memoize(path, NotControlled)
		return NotControlled
	}

	known, err := q.FileKnown(ctx, path)
	if err != nil {
		// Do not memoize on a failed query; the next caller retries.
		c.logf("status query failed for %s: %v", path, err)
		return NotControlled
	}
	if known {
		c.memoize(path, Controlled)
		return Controlled
	}
	c.memoize(path, NotControlled)
	return NotControlled
}

// SetControl moves path into the Controlled set (controlled=true) or
// the Ignored set (controlled=false).
func (c *Cache) SetControl(path string, controlled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.controlled, path)
	delete(c.ignored, path)
	delete(c.notControlled, path)
	if controlled {
		c.controlled[path] = struct{}{}
	} else {
		c.ignored[path] = struct{}{}
	}
}

// IsIgnored reports whether path classifies as Ignored.
func (c *Cache) IsIgnored(ctx context.Context, path string) bool {
	return c.Classify(ctx, path) == Ignored
}

// Invalidate drops any memoized classification for path. Renames and
// deletions must invalidate, the cache never expires entries itself.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.controlled, path)
	delete(c.ignored, path)
	delete(c.notControlled, path)
}

func (c *Cache) memoize(path string, ctl Control) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ctl {
	case Controlled:
		c.controlled[path] = struct{}{}
	case Ignored:
		c.ignored[path] = struct{}{}
	default:
		c.notControlled[path] = struct{}{}
	}
}

// insideMetadataDir reports whether path names the git metadata
// directory or anything inside one.
func insideMetadataDir(path string) bool {
	p := strings.ReplaceAll(path, "\\", "/")
	return filepath.Base(p) == ".git" || strings.Contains(p, "/.git/")
}
