// Package draft autosaves the problem description while it is being typed.
package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/entrepeneur4lyf/repairforge/internal/storage"
)

// DefaultDelay is the quiet period before a pending draft is written.
const DefaultDelay = 500 * time.Millisecond

// Saver debounces draft writes. Storage failures are logged and dropped.
type Saver struct {
	kv    storage.KV
	delay time.Duration
	log   *log.Logger

	mu        sync.Mutex
	pending   *string
	changedAt time.Time
	current   string
	epoch     uint64 // bumped by Clear; writes captured under an older epoch are dropped

	writeMu sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started sync.Once
}

// NewSaver creates a saver; call Start to begin flushing in the background.
func NewSaver(kv storage.KV, delay time.Duration) *Saver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Saver{
		kv:     kv,
		delay:  delay,
		log:    log.WithPrefix("draft"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the debounce loop.
func (s *Saver) Start() {
	s.started.Do(func() { go s.processDebounced() })
}

// Stop ends the loop and writes any pending draft.
func (s *Saver) Stop() {
	s.cancel()
	s.started.Do(func() { close(s.done) })
	<-s.done
	s.Flush()
}

// Load restores the saved draft, or "" when there is none.
func (s *Saver) Load(ctx context.Context) string {
	v, err := s.kv.Get(ctx, storage.DraftKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("Failed to load draft", "error", err)
		}
		return ""
	}
	s.mu.Lock()
	if s.pending == nil {
		s.current = v
	}
	s.mu.Unlock()
	return v
}

// Current returns the latest text passed to Update, saved or not.
func (s *Saver) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update records new draft text; the write happens once the text has been
// stable for the debounce delay.
func (s *Saver) Update(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &text
	s.current = text
	s.changedAt = time.Now()
}

// Flush writes the pending draft immediately.
func (s *Saver) Flush() {
	s.mu.Lock()
	text := s.pending
	s.pending = nil
	epoch := s.epoch
	s.mu.Unlock()

	if text != nil {
		s.write(*text, epoch)
	}
}

// Clear drops any pending write and removes the stored draft.
func (s *Saver) Clear(ctx context.Context) {
	s.mu.Lock()
	s.pending = nil
	s.current = ""
	s.epoch++
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.kv.Delete(ctx, storage.DraftKey); err != nil {
		s.log.Warn("Failed to clear draft", "error", err)
	}
}

func (s *Saver) processDebounced() {
	defer close(s.done)

	interval := s.delay / 5
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.flushIfQuiet()
		}
	}
}

func (s *Saver) flushIfQuiet() {
	s.mu.Lock()
	if s.pending == nil || time.Since(s.changedAt) < s.delay {
		s.mu.Unlock()
		return
	}
	text := *s.pending
	s.pending = nil
	epoch := s.epoch
	s.mu.Unlock()

	s.write(text, epoch)
}

func (s *Saver) write(text string, epoch uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	stale := epoch != s.epoch
	s.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if text == "" {
		err = s.kv.Delete(ctx, storage.DraftKey)
	} else {
		err = s.kv.Set(ctx, storage.DraftKey, text)
	}
	if err != nil {
		s.log.Warn("Failed to save draft", "error", err)
	}
}
