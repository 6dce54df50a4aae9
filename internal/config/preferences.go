package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
)

// Preferences holds user choices that persist across runs
type Preferences struct {
	Locale string `toml:"locale"`

	mu   sync.Mutex
	path string
}

// NewPreferences creates preferences with default values bound to path
func NewPreferences(path string) *Preferences {
	return &Preferences{Locale: i18n.DefaultLocale, path: path}
}

// LoadPreferences reads preferences from a TOML file. A missing file yields
// defaults.
func LoadPreferences(path string) (*Preferences, error) {
	prefs := NewPreferences(path)
	if _, err := toml.DecodeFile(path, prefs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return nil, fmt.Errorf("failed to load preferences %s: %w", path, err)
	}
	if prefs.Locale == "" {
		prefs.Locale = i18n.DefaultLocale
	}
	return prefs, nil
}

// Save writes the preferences back to their file.
func (p *Preferences) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked()
}

// SaveLocale records the chosen locale and persists it.
func (p *Preferences) SaveLocale(locale string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Locale = locale
	return p.saveLocked()
}

// CurrentLocale returns the stored locale.
func (p *Preferences) CurrentLocale() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Locale
}

func (p *Preferences) saveLocked() error {
	if p.path == "" {
		return nil
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory %s: %w", dir, err)
	}

	file, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("failed to create/open preferences file %s: %w", p.path, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := toml.NewEncoder(writer).Encode(struct {
		Locale string `toml:"locale"`
	}{p.Locale}); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush preferences: %w", err)
	}

	log.Debug("saved preferences", "path", p.path, "locale", p.Locale)
	return nil
}
