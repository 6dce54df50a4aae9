// Package media keeps accepted uploads in memory behind opaque references
// so previews can be served and released when superseded.
package media

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
)

// ErrNotFound is returned for unknown or released references.
var ErrNotFound = errors.New("media reference not found")

// Item is one registered upload.
type Item struct {
	Ref       string
	Media     guide.Media
	CreatedAt time.Time
}

// Registry owns transient media. Each reference has exactly one owner that
// must call Release when done with it.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Item
	log   *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]*Item),
		log:   log.WithPrefix("media"),
	}
}

// Put registers m and returns its reference.
func (r *Registry) Put(m guide.Media) string {
	ref := uuid.NewString()
	r.mu.Lock()
	r.items[ref] = &Item{Ref: ref, Media: m, CreatedAt: time.Now()}
	n := len(r.items)
	r.mu.Unlock()

	r.log.Debug("Registered media", "ref", ref, "mime", m.MIMEType, "bytes", len(m.Data), "live", n)
	return ref
}

// Get returns the item for ref.
func (r *Registry) Get(ref string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

// Release drops ref. Releasing an empty or unknown reference is a no-op.
func (r *Registry) Release(ref string) {
	if ref == "" {
		return
	}
	r.mu.Lock()
	_, ok := r.items[ref]
	delete(r.items, ref)
	r.mu.Unlock()
	if ok {
		r.log.Debug("Released media", "ref", ref)
	}
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
