package git

import "sync"

// WriteGate serializes repository-mutating invocations. The on-disk
// index and lock files of the external tool are not safe against
// concurrent mutation from this process, so one coarse gate covers
// every write, even across unrelated repository roots. Reads never take
// the gate and may observe a partially-completed write; callers accept
// that.
//
// Hosts embedding several Services share a single gate by passing the
// same instance to each NewService call.
type WriteGate struct {
	mu sync.Mutex
}

// NewWriteGate returns a gate ready for sharing across services.
func NewWriteGate() *WriteGate {
	return &WriteGate{}
}

func (g *WriteGate) lock()   { g.mu.Lock() }
func (g *WriteGate) unlock() { g.mu.Unlock() }
