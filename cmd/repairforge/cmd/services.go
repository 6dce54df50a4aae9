package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/entrepeneur4lyf/repairforge/internal/app"
	"github.com/entrepeneur4lyf/repairforge/internal/config"
	"github.com/entrepeneur4lyf/repairforge/internal/draft"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
	"github.com/entrepeneur4lyf/repairforge/internal/media"
	"github.com/entrepeneur4lyf/repairforge/internal/storage"
)

// services is everything a command may need, assembled from cfg.
type services struct {
	kv       storage.KV
	locales  *i18n.Store
	prefs    *config.Preferences
	history  *history.Store
	drafts   *draft.Saver
	media    *media.Registry
	clients  *llm.Clients
	store    *app.Store
	ctrl     *app.Controller
	watcher  *i18n.Watcher
	cleanups []func()
}

type serviceOptions struct {
	// model creates the Gemini clients and the controller.
	model bool
	// locale overrides the saved locale for this run only.
	locale string
	// watch reloads translation overrides on change.
	watch bool
}

func newServices(ctx context.Context, cfg *config.Config, opts serviceOptions) (*services, error) {
	s := &services{media: media.NewRegistry()}
	paths := cfg.Paths()

	if cfg.Data.Ephemeral {
		s.kv = storage.NewMemoryKV()
	} else {
		dbPath, err := paths.GetDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		kv, err := storage.NewSQLKV(dbPath)
		if err != nil {
			return nil, err
		}
		s.kv = kv
	}
	s.cleanups = append(s.cleanups, func() {
		if err := s.kv.Close(); err != nil {
			log.Warn("Failed to close storage", "error", err)
		}
	})

	s.locales = i18n.New()
	if dir := cfg.I18n.OverrideDir; dir != "" {
		w, err := i18n.NewWatcher(s.locales, dir)
		if err != nil {
			log.Warn("Translation overrides unavailable", "dir", dir, "error", err)
		} else if opts.watch {
			s.watcher = w
			w.Start()
			s.cleanups = append(s.cleanups, w.Stop)
		} else {
			w.Stop()
		}
	}

	if cfg.Data.Ephemeral {
		s.prefs = config.NewPreferences("")
	} else {
		prefPath, err := paths.GetPreferencesPath()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to resolve preferences path: %w", err)
		}
		if s.prefs, err = config.LoadPreferences(prefPath); err != nil {
			log.Warn("Ignoring unreadable preferences", "error", err)
			s.prefs = config.NewPreferences(prefPath)
		}
	}
	locale := s.prefs.CurrentLocale()
	if opts.locale != "" {
		locale = opts.locale
	}
	if err := s.locales.SetLanguage(locale); err != nil {
		if opts.locale != "" {
			s.Close()
			return nil, err
		}
		log.Warn("Saved locale is not supported, using default", "locale", locale)
	}

	s.history = history.New(s.kv)
	s.drafts = draft.NewSaver(s.kv, cfg.Draft.Delay)

	if !opts.model {
		return s, nil
	}

	if err := cfg.RequireAPIKey(); err != nil {
		s.Close()
		return nil, err
	}
	clients, err := llm.NewClients(ctx, cfg.LLMOptions())
	if err != nil {
		s.Close()
		return nil, err
	}
	s.clients = clients

	s.store = app.NewStore(app.NewState(s.locales.Language()))
	s.cleanups = append(s.cleanups, s.store.Close)

	deps := app.Deps{
		Guides:     clients.Guide,
		Translator: clients.Translator,
		Chats:      clients.Chat,
		History:    s.history,
		Drafts:     s.drafts,
		Locales:    s.locales,
		Media:      s.media,
	}
	// A per-run locale override is not saved.
	if opts.locale == "" {
		deps.Prefs = s.prefs
	}
	s.ctrl = app.NewController(s.store, deps)
	s.ctrl.Init(ctx)
	return s, nil
}

// translate resolves a message key in the active locale.
func (s *services) translate(key string) string { return s.locales.T(key) }

// Close releases resources in reverse order of acquisition.
func (s *services) Close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}
