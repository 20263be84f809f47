// Package logbuf implements the bounded log ring and fan-out broadcaster
// shared by process and session records (SPEC_FULL.md §4.4).
package logbuf

import "sync"

// MaxLines is the ring's capacity; the oldest entry is evicted on overflow.
const MaxLines = 10000

// Ring is a bounded, ordered sequence of raw tagged log lines.
// Safe for concurrent use: appends take an exclusive lock, reads take a
// read-only one.
type Ring struct {
	mu    sync.RWMutex
	lines []string
}

// NewRing returns an empty ring.
func NewRing() *Ring {
	return &Ring{lines: make([]string, 0, 256)}
}

// Append adds a line to the ring, evicting the oldest entry if the ring is
// already at capacity.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) >= MaxLines {
		r.lines = r.lines[1:]
	}
	r.lines = append(r.lines, line)
}

// Len returns the current number of lines held.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lines)
}

// All returns a copy of every line currently held, oldest first.
func (r *Ring) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Tail returns a copy of the last n lines, oldest first. If n <= 0 or the
// ring holds fewer than n lines, the whole ring is returned.
func (r *Ring) Tail(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n >= len(r.lines) {
		out := make([]string, len(r.lines))
		copy(out, r.lines)
		return out
	}
	start := len(r.lines) - n
	out := make([]string, n)
	copy(out, r.lines[start:])
	return out
}
