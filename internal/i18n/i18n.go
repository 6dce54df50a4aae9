// Package i18n is the localization store: one flat key/value bundle per
// locale, lookups with default-locale fallback, and the active locale.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// DefaultLocale is the fallback for every lookup.
const DefaultLocale = "en"

// ErrUnknownLocale is returned when switching to an unsupported locale.
var ErrUnknownLocale = errors.New("unknown locale")

//go:embed locales/*.json
var embedded embed.FS

// Language describes a supported locale.
type Language struct {
	Code string       `json:"code"`
	Name string       `json:"name"`
	Tag  language.Tag `json:"-"`
}

// Supported lists every locale in display order.
var Supported = []Language{
	{Code: "en", Name: "English", Tag: language.English},
	{Code: "en_in", Name: "Hinglish", Tag: language.MustParse("en-IN")},
	{Code: "hi", Name: "हिन्दी (Hindi)", Tag: language.Hindi},
	{Code: "bn", Name: "বাংলা (Bengali)", Tag: language.Bengali},
	{Code: "te", Name: "తెలుగు (Telugu)", Tag: language.Telugu},
	{Code: "ta", Name: "தமிழ் (Tamil)", Tag: language.Tamil},
	{Code: "kn", Name: "ಕನ್ನಡ (Kannada)", Tag: language.Kannada},
	{Code: "ur", Name: "اردو (Urdu)", Tag: language.Urdu},
	{Code: "mr", Name: "मराठी (Marathi)", Tag: language.Marathi},
	{Code: "gu", Name: "ગુજરાતી (Gujarati)", Tag: language.Gujarati},
}

// Lookup returns the supported language with the given code.
func Lookup(code string) (Language, bool) {
	for _, l := range Supported {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Bundle is a flat key to message mapping.
type Bundle map[string]string

// Store holds every loaded bundle and the active locale. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	bundles map[string]Bundle
	active  string
}

// New creates a store with the embedded bundles loaded.
func New() *Store {
	s := &Store{bundles: make(map[string]Bundle), active: DefaultLocale}
	if err := s.LoadFS(embedded, "locales"); err != nil {
		log.Error("Failed to load embedded translations", "error", err)
	}
	return s
}

// NewEmpty creates a store with no bundles; every lookup returns the key.
func NewEmpty() *Store {
	return &Store{bundles: make(map[string]Bundle), active: DefaultLocale}
}

// LoadFS loads <code>.json for each supported locale from dir in fsys. A
// missing file leaves that locale to fall back to the default bundle; a
// malformed one is reported after the rest are loaded.
func (s *Store) LoadFS(fsys fs.FS, dir string) error {
	var errs []error
	for _, l := range Supported {
		data, err := fs.ReadFile(fsys, path.Join(dir, l.Code+".json"))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to read %s bundle: %w", l.Code, err))
			}
			continue
		}
		if err := s.LoadBundle(l.Code, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadBundle parses and installs one bundle, merging over any keys already
// loaded for code.
func (s *Store) LoadBundle(code string, data []byte) error {
	if _, ok := Lookup(code); !ok {
		return fmt.Errorf("failed to load bundle %q: %w", code, ErrUnknownLocale)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("failed to parse %s bundle: %w", code, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make(Bundle, len(s.bundles[code])+len(b))
	for k, v := range s.bundles[code] {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	s.bundles[code] = merged
	return nil
}

// Language returns the active locale code.
func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetLanguage switches the active locale for all subsequent lookups.
func (s *Store) SetLanguage(code string) error {
	if _, ok := Lookup(code); !ok {
		return fmt.Errorf("failed to set language %q: %w", code, ErrUnknownLocale)
	}
	s.mu.Lock()
	s.active = code
	s.mu.Unlock()
	return nil
}

// T looks key up in the active locale.
func (s *Store) T(key string, replacements ...map[string]any) string {
	return s.TIn(s.Language(), key, replacements...)
}

// TIn looks key up in locale, then the default locale, then returns the key
// itself. {{name}} placeholders are substituted from replacements.
func (s *Store) TIn(locale, key string, replacements ...map[string]any) string {
	s.mu.RLock()
	msg, ok := s.bundles[locale][key]
	if !ok || msg == "" {
		msg, ok = s.bundles[DefaultLocale][key]
	}
	s.mu.RUnlock()
	if !ok || msg == "" {
		msg = key
	}

	for _, r := range replacements {
		for name, v := range r {
			msg = strings.ReplaceAll(msg, "{{"+name+"}}", fmt.Sprint(v))
		}
	}
	return msg
}

// Bundle returns the effective messages for locale: the default bundle
// overlaid with the locale's own keys.
func (s *Store) Bundle(locale string) Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Bundle, len(s.bundles[DefaultLocale]))
	for k, v := range s.bundles[DefaultLocale] {
		out[k] = v
	}
	for k, v := range s.bundles[locale] {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Loaded returns the codes that have a bundle, sorted.
func (s *Store) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.bundles))
	for c := range s.bundles {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
