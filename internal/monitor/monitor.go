// Package monitor polls repository roots in the background and reports
// when their working-tree state changes.
package monitor

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/chmouel/gitmon/internal/log"
)

const (
	// DefaultInterval is the pause between scan cycles.
	DefaultInterval = 60 * time.Second
	// DefaultSettle is the grace period after scanning before an
	// invalidation is published, giving git time to finish writing its
	// own on-disk state.
	DefaultSettle = 5 * time.Second
)

// Lister is the slice of the repository facade a scanner needs: the
// queries whose results define the working-tree snapshot.
type Lister interface {
	Root() string
	UncachedFiles(ctx context.Context) ([]string, error)
	OtherFiles(ctx context.Context) ([]string, error)
}

// Invalidation reports that the snapshot of a repository root changed.
type Invalidation struct {
	Root string
}

// Scanner polls one repository root. It keeps the last observed
// uncached and unversioned file lists and publishes an Invalidation on
// its Events channel after every completed cycle. Publishing is
// unconditional: equal name lists do not mean an unchanged root (a
// file already on the list may have been modified again), so deciding
// whether anything actually moved is the consumer's job.
type Scanner struct {
	lister   Lister
	interval time.Duration
	settle   time.Duration
	events   chan Invalidation
	wake     chan struct{}

	mu       sync.Mutex
	uncached []string
	other    []string
	started  bool
	stopped  bool

	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewScanner builds a scanner for the given lister. Non-positive
// interval or negative settle fall back to the defaults.
func NewScanner(lister Lister, interval, settle time.Duration) *Scanner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if settle < 0 {
		settle = DefaultSettle
	}
	return &Scanner{
		lister:   lister,
		interval: interval,
		settle:   settle,
		events:   make(chan Invalidation, 1),
		wake:     make(chan struct{}, 1),
	}
}

// Events is the channel invalidations are published on. It is never
// closed; consumers stop reading after Stop.
func (s *Scanner) Events() <-chan Invalidation {
	return s.events
}

// Start launches the scan loop. Starting an already-running scanner is
// a no-op; a stopped scanner stays stopped.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	go s.loop(ctx)
}

// Stop ends the scan loop and waits for it to exit. A stopped scanner
// cannot be restarted.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	done := s.loopDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wake requests an immediate rescan, cutting the current interval
// sleep short. Safe to call from any goroutine.
func (s *Scanner) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// UncachedSnapshot returns the last observed uncached-file list.
func (s *Scanner) UncachedSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.uncached)
}

// OtherSnapshot returns the last observed unversioned-file list.
func (s *Scanner) OtherSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.other)
}

func (s *Scanner) loop(ctx context.Context) {
	defer close(s.loopDone)
	for {
		s.scan(ctx)
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-time.After(s.interval):
		}
	}
}

// scan runs one cycle: query, replace the snapshot wholesale, wait out
// the settle grace, then publish the root's invalidation. Query errors
// are logged and leave the previous snapshot in place, with nothing
// published for the cycle.
func (s *Scanner) scan(ctx context.Context) {
	uncached, err := s.lister.UncachedFiles(ctx)
	if err != nil {
		log.Printf("monitor %s: uncached query: %v", s.lister.Root(), err)
		return
	}
	other, err := s.lister.OtherFiles(ctx)
	if err != nil {
		log.Printf("monitor %s: unversioned query: %v", s.lister.Root(), err)
		return
	}

	s.mu.Lock()
	s.uncached = uncached
	s.other = other
	s.mu.Unlock()

	if s.settle > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.settle):
		}
	}

	select {
	case <-ctx.Done():
	case s.events <- Invalidation{Root: s.lister.Root()}:
	}
}

// Registry owns the scanners of an embedding host, one per repository
// root.
type Registry struct {
	interval time.Duration
	settle   time.Duration

	mu       sync.Mutex
	scanners map[string]*Scanner
}

// NewRegistry builds a registry whose scanners use the given timings.
func NewRegistry(interval, settle time.Duration) *Registry {
	return &Registry{
		interval: interval,
		settle:   settle,
		scanners: make(map[string]*Scanner),
	}
}

// Get returns the scanner for lister's root, creating and starting one
// on first use.
func (r *Registry) Get(lister Lister) *Scanner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sc, ok := r.scanners[lister.Root()]; ok {
		return sc
	}
	sc := NewScanner(lister, r.interval, r.settle)
	r.scanners[lister.Root()] = sc
	sc.Start()
	return sc
}

// Remove stops and forgets the scanner for root, if any.
func (r *Registry) Remove(root string) {
	r.mu.Lock()
	sc := r.scanners[root]
	delete(r.scanners, root)
	r.mu.Unlock()
	if sc != nil {
		sc.Stop()
	}
}

// Close stops every scanner.
func (r *Registry) Close() {
	r.mu.Lock()
	scanners := make([]*Scanner, 0, len(r.scanners))
	for _, sc := range r.scanners {
		scanners = append(scanners, sc)
	}
	r.scanners = make(map[string]*Scanner)
	r.mu.Unlock()
	for _, sc := range scanners {
		sc.Stop()
	}
}
