// Package wavelog keeps the on-screen wave log consistent with the chain.
//
// The log is seeded once from a historical query and then kept current by
// live NewWave events. Live events may arrive before the historical query
// resolves; those are buffered and applied, in arrival order, right after
// seeding. Entries are unique by (waver, timestamp) and ordered most recent
// first. Live events are assumed newer than anything already in the log, so
// they are prepended; waves fetched after a dropped subscription are merged
// at their timestamp position instead. Chain reorganizations are not handled.
package wavelog

import (
	"sort"
	"sync"
)

// Store is the ordered, de-duplicated wave log.
type Store struct {
	mu      sync.Mutex
	waves   []WaveRecord // most recent first
	keys    map[Key]struct{}
	seeded  bool
	seedErr error
	pending []WaveRecord // live events received before seeding
}

// NewStore returns an empty, unseeded store.
func NewStore() *Store {
	return &Store{keys: make(map[Key]struct{})}
}

// Seed replaces the contents with records, de-duplicated and sorted by
// descending timestamp, then applies any buffered live events.
func (s *Store) Seed(records []WaveRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]WaveRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	s.waves = s.waves[:0]
	s.keys = make(map[Key]struct{}, len(sorted))
	for _, r := range sorted {
		if _, dup := s.keys[r.Key()]; dup {
			continue
		}
		s.keys[r.Key()] = struct{}{}
		s.waves = append(s.waves, r)
	}
	s.seeded = true
	s.seedErr = nil
	s.flushLocked()
}

// SeedFailed marks the store as seeded with no history and records why, so
// an empty log can be told apart from a failed query. Buffered live events
// are still applied.
func (s *Store) SeedFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waves = s.waves[:0]
	s.keys = make(map[Key]struct{})
	s.seeded = true
	s.seedErr = err
	s.flushLocked()
}

// ApplyLiveEvent records a live wave. It reports whether the visible log
// changed: duplicates are no-ops and events before seeding are buffered.
func (s *Store) ApplyLiveEvent(r WaveRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		for _, p := range s.pending {
			if p.Key() == r.Key() {
				return false
			}
		}
		s.pending = append(s.pending, r)
		return false
	}
	return s.prependLocked(r)
}

// Merge records a wave that may be older than the head of the log, such as
// one missed while a subscription was down. It is placed at its timestamp
// position, after any entries with the same timestamp. Merge returns the
// index it landed at, or -1 when the record was a duplicate or buffered.
func (s *Store) Merge(r WaveRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		for _, p := range s.pending {
			if p.Key() == r.Key() {
				return -1
			}
		}
		s.pending = append(s.pending, r)
		return -1
	}
	if _, dup := s.keys[r.Key()]; dup {
		return -1
	}
	s.keys[r.Key()] = struct{}{}
	i := sort.Search(len(s.waves), func(i int) bool {
		return s.waves[i].Timestamp < r.Timestamp
	})
	s.waves = append(s.waves, WaveRecord{})
	copy(s.waves[i+1:], s.waves[i:])
	s.waves[i] = r
	return i
}

// All returns a snapshot of the log, most recent first.
func (s *Store) All() []WaveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WaveRecord, len(s.waves))
	copy(out, s.waves)
	return out
}

// Len returns the number of visible waves.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waves)
}

// Seeded reports whether the historical seed has completed (or failed).
func (s *Store) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// Buffered returns the number of live events waiting for the seed.
func (s *Store) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Err returns the historical query failure, if seeding failed.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seedErr
}

func (s *Store) flushLocked() {
	for _, r := range s.pending {
		s.prependLocked(r)
	}
	s.pending = nil
}

func (s *Store) prependLocked(r WaveRecord) bool {
	if _, dup := s.keys[r.Key()]; dup {
		return false
	}
	s.keys[r.Key()] = struct{}{}
	s.waves = append([]WaveRecord{r}, s.waves...)
	return true
}
