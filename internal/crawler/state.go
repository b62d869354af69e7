package crawler

import (
	"maps"
	"slices"
	"sync"
)

// ScanState is the mutable state of one scan: the visited set, the
// disjoint valid and invalid sets, and the ordered error log.
//
// All fields are private. The only way to change the state is through the
// synchronized methods below, and the only way to read it in bulk is
// Snapshot.
type ScanState struct {
	mu sync.RWMutex

	visited map[string]struct{}
	order   []string
	depths  map[string]int
	valid   map[string]struct{}
	invalid map[string]struct{}
	errors  []string
}

// Snapshot is a read-only copy of a ScanState.
type Snapshot struct {
	// Visited lists every admitted URL in admission order.
	Visited []string

	// Depths maps each URL that entered the frontier to its BFS depth.
	Depths map[string]int

	// Valid and Invalid are sorted and disjoint.
	Valid   []string
	Invalid []string

	// Errors is the error log in the order entries were appended.
	Errors []string
}

// NewScanState returns an empty state.
func NewScanState() *ScanState {
	return &ScanState{
		visited: make(map[string]struct{}),
		depths:  make(map[string]int),
		valid:   make(map[string]struct{}),
		invalid: make(map[string]struct{}),
	}
}

// TryVisit inserts u into the visited set and reports whether it was
// absent. The test and the insert happen under one lock.
func (s *ScanState) TryVisit(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[u]; ok {
		return false
	}
	s.visited[u] = struct{}{}
	s.order = append(s.order, u)
	return true
}

// Seen reports whether u is in the visited set.
func (s *ScanState) Seen(u string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.visited[u]
	return ok
}

// SetDepth records the frontier depth of a visited URL.
func (s *ScanState) SetDepth(u string, depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[u]; ok {
		s.depths[u] = depth
	}
}

// MarkValid classifies u as valid. It returns false, leaving the state
// untouched, when u was never visited or is already classified.
func (s *ScanState) MarkValid(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.classifiableLocked(u) {
		return false
	}
	s.valid[u] = struct{}{}
	return true
}

// MarkInvalid classifies u as invalid with the same rules as MarkValid.
func (s *ScanState) MarkInvalid(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.classifiableLocked(u) {
		return false
	}
	s.invalid[u] = struct{}{}
	return true
}

func (s *ScanState) classifiableLocked(u string) bool {
	if _, ok := s.visited[u]; !ok {
		return false
	}
	if _, ok := s.valid[u]; ok {
		return false
	}
	_, ok := s.invalid[u]
	return !ok
}

// RecordError appends msg to the error log.
func (s *ScanState) RecordError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

// Counts returns the cardinalities of the visited, valid and invalid sets
// and of the error log.
func (s *ScanState) Counts() (visited, valid, invalid, errs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited), len(s.valid), len(s.invalid), len(s.errors)
}

// Snapshot copies the current state.
func (s *ScanState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Visited: slices.Clone(s.order),
		Depths:  maps.Clone(s.depths),
		Valid:   slices.Sorted(maps.Keys(s.valid)),
		Invalid: slices.Sorted(maps.Keys(s.invalid)),
		Errors:  slices.Clone(s.errors),
	}
}
