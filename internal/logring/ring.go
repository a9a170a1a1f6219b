package logring

import (
	"strings"
	"sync"
)

// DefaultCapacity is the number of lines retained per worker name.
const DefaultCapacity = 300

// ring is a fixed-capacity FIFO of text lines. Appending beyond capacity
// silently drops the oldest line. Not safe for concurrent use on its own;
// Store serializes access.
type ring struct {
	lines []string
	head  int // index of oldest line
	count int
}

func newRing(capacity int) *ring {
	return &ring{lines: make([]string, capacity)}
}

func (r *ring) append(line string) {
	if r.count < len(r.lines) {
		r.lines[(r.head+r.count)%len(r.lines)] = line
		r.count++
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
}

func (r *ring) snapshot() []string {
	out := make([]string, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(r.head+i)%len(r.lines)])
	}
	return out
}

// Store keeps a bounded log tail per worker name. Buffers are created on
// first reference and never destroyed, so crash output stays inspectable
// across start/stop cycles of the same name.
type Store struct {
	mu       sync.Mutex
	capacity int
	rings    map[string]*ring
}

// NewStore returns a Store retaining up to capacity lines per name.
// capacity <= 0 selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, rings: make(map[string]*ring)}
}

// Append records one line for name, stripping a trailing newline.
func (s *Store) Append(name, line string) {
	line = strings.TrimRight(line, "\n")
	s.mu.Lock()
	r := s.rings[name]
	if r == nil {
		r = newRing(s.capacity)
		s.rings[name] = r
	}
	r.append(line)
	s.mu.Unlock()
}

// Snapshot returns the retained lines for name, oldest first. An unknown
// name yields an empty slice, never an error.
func (s *Store) Snapshot(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rings[name]
	if r == nil {
		return []string{}
	}
	return r.snapshot()
}
