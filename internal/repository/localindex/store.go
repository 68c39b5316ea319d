// Package localindex is an in-process vector index persisted as a JSON snapshot.
package localindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
)

type storedEntry struct {
	catalog.Entry
	Seq uint64 `json:"seq"`
}

type snapshot struct {
	Dimensions int           `json:"dimensions"`
	NextSeq    uint64        `json:"next_seq"`
	Entries    []storedEntry `json:"entries"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Store keeps entries in memory and brute-forces cosine distance.
// An empty path disables persistence.
type Store struct {
	mu      sync.RWMutex
	dims    int
	path    string
	entries map[string]*storedEntry
	nextSeq uint64
}

// New creates a store for one collection under dir. Call Load to restore a snapshot.
func New(dir string, cfg domain.IndexConfig) *Store {
	s := &Store{
		dims:    cfg.Dimensions,
		entries: make(map[string]*storedEntry),
	}
	if dir != "" {
		s.path = filepath.Join(dir, cfg.Collection+".json")
	}
	return s
}

// Load restores the snapshot from disk. A missing file leaves the store empty.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	if snap.Dimensions != 0 && snap.Dimensions != s.dims {
		return fmt.Errorf("%w: snapshot has %d dimensions, configured %d",
			domain.ErrDimensionMismatch, snap.Dimensions, s.dims)
	}

	s.entries = make(map[string]*storedEntry, len(snap.Entries))
	for i := range snap.Entries {
		e := snap.Entries[i]
		s.entries[e.ID] = &e
	}
	s.nextSeq = snap.NextSeq
	return nil
}

// EnsureIndex makes sure the persist directory exists.
func (s *Store) EnsureIndex(_ context.Context) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create persist dir: %w", err)
	}
	return nil
}

// Upsert writes all entries or none. A replaced entry keeps its insertion position.
func (s *Store) Upsert(_ context.Context, entries []catalog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if len(entries[i].Embedding) != s.dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, want %d",
				domain.ErrDimensionMismatch, entries[i].ID, len(entries[i].Embedding), s.dims)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]*storedEntry, len(entries))
	nextSeq := s.nextSeq
	for i := range entries {
		e := entries[i]
		old, exists := s.entries[e.ID]
		if _, seen := prev[e.ID]; !seen {
			prev[e.ID] = old
		}
		seq := nextSeq
		if exists {
			seq = old.Seq
		} else {
			nextSeq++
		}
		s.entries[e.ID] = &storedEntry{Entry: e, Seq: seq}
	}
	oldSeq := s.nextSeq
	s.nextSeq = nextSeq

	if err := s.persistLocked(); err != nil {
		for id, old := range prev {
			if old == nil {
				delete(s.entries, id)
			} else {
				s.entries[id] = old
			}
		}
		s.nextSeq = oldSeq
		return err
	}
	return nil
}

// Search ranks entries matching pred by cosine distance, ties by insertion order.
func (s *Store) Search(
	_ context.Context, vector []float32, pred filter.Predicate, limit int,
) ([]result.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrDimensionMismatch, len(vector), s.dims)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		c   result.Candidate
		seq uint64
	}
	hits := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if !pred.Matches(e.Metadata.Tags(), e.Metadata.Numerics()) {
			continue
		}
		hits = append(hits, scored{
			c: result.Candidate{
				ID:       e.ID,
				Name:     e.Name,
				Document: e.DocumentText,
				Metadata: e.Metadata,
				Distance: result.CosineDistance(vector, e.Embedding),
			},
			seq: e.Seq,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].c.Distance != hits[j].c.Distance {
			return hits[i].c.Distance < hits[j].c.Distance
		}
		return hits[i].seq < hits[j].seq
	})

	out := make([]result.Candidate, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].c)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// DeleteAll removes every entry. Deleting an empty store is a no-op.
func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return nil
	}
	old, oldSeq := s.entries, s.nextSeq
	s.entries = make(map[string]*storedEntry)
	s.nextSeq = 0
	if err := s.persistLocked(); err != nil {
		s.entries, s.nextSeq = old, oldSeq
		return err
	}
	return nil
}

// Ping always succeeds; the store lives in process memory.
func (s *Store) Ping(_ context.Context) error { return nil }

// persistLocked writes the snapshot through a temp file and rename. Caller holds mu.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}

	snap := snapshot{
		Dimensions: s.dims,
		NextSeq:    s.nextSeq,
		Entries:    make([]storedEntry, 0, len(s.entries)),
		UpdatedAt:  time.Now().UTC(),
	}
	for _, e := range s.entries {
		snap.Entries = append(snap.Entries, *e)
	}
	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].Seq < snap.Entries[j].Seq })

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create persist dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}
