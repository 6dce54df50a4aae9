// Package history persists past analyses as a capped, newest-first list
// stored under a single key.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/storage"
)

// MaxEntries caps the stored list; older entries are dropped on insert.
const MaxEntries = 50

// Entry is a snapshot of one completed analysis.
type Entry struct {
	ID          string             `json:"id"`
	CreatedAt   time.Time          `json:"timestamp"`
	Description string             `json:"problemDescription"`
	Guide       *guide.RepairGuide `json:"guide"`
	MediaRef    string             `json:"mediaFileUrl,omitempty"`
}

// Store is the history list. Every operation reads, modifies and rewrites
// the whole list. Storage failures never reach the caller: a failed read is
// an empty list and a failed write is logged.
type Store struct {
	kv  storage.KV
	key string
	now func() time.Time
	log *log.Logger

	mu sync.Mutex
}

// New creates a history store over kv.
func New(kv storage.KV) *Store {
	return &Store{
		kv:  kv,
		key: storage.HistoryKey,
		now: time.Now,
		log: log.WithPrefix("history"),
	}
}

// List returns the entries newest first.
func (s *Store) List(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add prepends a new entry, truncates to MaxEntries and returns the new list.
func (s *Store) Add(ctx context.Context, description string, g *guide.RepairGuide, mediaRef string) (Entry, []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		ID:          newID(),
		CreatedAt:   s.now().UTC().Round(0),
		Description: description,
		Guide:       g.Clone(),
		MediaRef:    mediaRef,
	}

	entries := append([]Entry{entry}, s.load(ctx)...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.save(ctx, entries)
	return entry, entries
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, bool) {
	for _, e := range s.List(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Remove deletes the entry with the given id, keeping the order of the rest.
func (s *Store) Remove(ctx context.Context, id string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(ctx)
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(entries) {
		s.save(ctx, kept)
	}
	return kept
}

// Clear empties the list.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.log.Error("Failed to clear history", "error", err)
	}
}

// Search ranks entries whose description or diagnosis fuzzily matches query.
// An empty query returns the full list.
func (s *Store) Search(ctx context.Context, query string) []Entry {
	entries := s.List(ctx)
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	type hit struct {
		entry Entry
		rank  int
	}
	var hits []hit
	for _, e := range entries {
		best := -1
		for _, target := range []string{e.Description, diagnosisOf(e)} {
			if r := fuzzy.RankMatchNormalizedFold(query, target); r >= 0 && (best < 0 || r < best) {
				best = r
			}
		}
		if best >= 0 {
			hits = append(hits, hit{e, best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	out := make([]Entry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out
}

func diagnosisOf(e Entry) string {
	if e.Guide == nil {
		return ""
	}
	return e.Guide.Diagnosis
}

func (s *Store) load(ctx context.Context) []Entry {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("Failed to load history", "error", err)
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.Warn("Discarding corrupt history", "error", err)
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

func (s *Store) save(ctx context.Context, entries []Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		s.log.Error("Failed to encode history", "error", err)
		return
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.log.Error("Failed to save history", "error", err, "entries", len(entries))
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
