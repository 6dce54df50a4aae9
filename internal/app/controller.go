package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/entrepeneur4lyf/repairforge/internal/draft"
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
	"github.com/entrepeneur4lyf/repairforge/internal/media"
)

var (
	// ErrStaleResult is returned when a newer analysis superseded the request.
	ErrStaleResult = errors.New("result superseded by a newer request")
	// ErrNoGuide is returned for guide edits while no guide is loaded.
	ErrNoGuide = errors.New("no repair guide loaded")
	// ErrHistoryNotFound is returned for an unknown history id.
	ErrHistoryNotFound = errors.New("history entry not found")
)

// LocaleSaver persists the chosen locale.
type LocaleSaver interface {
	SaveLocale(locale string) error
}

// Deps are the collaborators a Controller drives. Drafts and Prefs are
// optional.
type Deps struct {
	Guides     llm.GuideGenerator
	Translator llm.GuideTranslator
	Chats      llm.ChatOpener
	History    *history.Store
	Drafts     *draft.Saver
	Locales    *i18n.Store
	Media      *media.Registry
	Prefs      LocaleSaver
}

// Controller performs the effects behind each user operation and reports
// their outcome to the store as actions. Remote failures become state, not
// panics; the returned errors are informational.
type Controller struct {
	Deps
	store *Store
	now   func() time.Time
	log   *log.Logger
}

// NewController creates a controller over store.
func NewController(store *Store, deps Deps) *Controller {
	return &Controller{
		Deps:  deps,
		store: store,
		now:   time.Now,
		log:   log.WithPrefix("app"),
	}
}

// Store returns the state store.
func (c *Controller) Store() *Store { return c.store }

// State returns the current snapshot.
func (c *Controller) State() State { return c.store.State() }

// Init loads persisted history and the saved draft.
func (c *Controller) Init(ctx context.Context) State {
	if c.Drafts != nil {
		c.Drafts.Load(ctx)
	}
	return c.store.Dispatch(HistoryLoaded{History: c.History.List(ctx)})
}

// Submit validates the submission and, when it is acceptable, runs the
// analysis: guide, then chat session, then history, then translation when
// the active locale is not the default.
func (c *Controller) Submit(ctx context.Context, sub guide.Submission) (State, error) {
	desc := guide.NormalizeDescription(sub.Description)

	var errs []error
	if err := guide.ValidateDescription(desc); err != nil {
		c.store.Dispatch(DescriptionRejected{Message: c.validationMessage(err)})
		errs = append(errs, err)
	}
	if sub.Media != nil {
		if _, err := c.AttachMedia(*sub.Media); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return c.store.State(), errors.Join(errs...)
	}

	prev, st := c.store.Transition(StartAnalysis{Description: desc})
	c.release(prev.MediaRef, st.MediaRef)
	gen := st.Generation
	c.log.Info("Analysis started", "generation", gen, "media", prev.Form.Media != nil)

	g, err := c.Guides.Generate(ctx, desc, prev.Form.Media)
	if err != nil {
		c.log.Error("Analysis failed", "generation", gen, "error", err)
		prev, st := c.store.Transition(AnalysisFailed{Generation: gen, Message: c.errorMessage(err)})
		c.release(prev.MediaRef, st.MediaRef)
		return st, err
	}
	if c.store.State().Generation != gen {
		c.log.Info("Discarding superseded analysis", "generation", gen)
		return c.store.State(), ErrStaleResult
	}

	session := c.openChat(ctx, desc)
	_, list := c.History.Add(ctx, desc, g, st.MediaRef)

	st = c.store.Dispatch(AnalysisSucceeded{
		Generation: gen,
		Guide:      g,
		Session:    session,
		Greeting:   c.modelMessage(c.Locales.T("chatInitialMessage")),
		History:    list,
	})
	if st.Generation != gen {
		return st, ErrStaleResult
	}
	if c.Drafts != nil {
		c.Drafts.Clear(ctx)
	}
	if st.Locale != i18n.DefaultLocale {
		st, _ = c.Translate(ctx)
	}
	return st, nil
}

// AttachMedia validates m and makes it the form's media. A rejected file
// leaves any previously accepted media in place.
func (c *Controller) AttachMedia(m guide.Media) (string, error) {
	if err := guide.ValidateMedia(&m); err != nil {
		c.store.Dispatch(MediaRejected{Message: c.validationMessage(err)})
		return "", err
	}
	ref := c.Media.Put(m)
	prev, _ := c.store.Transition(MediaAttached{Media: &m, Ref: ref})
	c.release(prev.Form.MediaRef, ref)
	return ref, nil
}

// RemoveMedia drops the form's media and releases its reference.
func (c *Controller) RemoveMedia() State {
	prev, next := c.store.Transition(MediaRemoved{})
	c.release(prev.Form.MediaRef, "")
	return next
}

// SendChat appends the user's message at once and the reply (or a
// formatted error) when it arrives. Without a session a single error
// message is appended and nothing is sent.
func (c *Controller) SendChat(ctx context.Context, text string) State {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.store.State()
	}

	st := c.store.State()
	if st.Chat.Session == nil {
		return c.store.Dispatch(ChatUnavailable{Message: c.modelMessage(c.Locales.T("chatSessionExpired"))})
	}
	gen, session := st.Generation, st.Chat.Session

	c.store.Dispatch(ChatSent{
		Generation: gen,
		Message:    guide.ChatMessage{Role: guide.RoleUser, Text: text, At: c.now()},
	})

	reply, err := session.Send(ctx, text)
	if err != nil {
		c.log.Warn("Chat turn failed", "generation", gen, "error", err)
		msg := c.Locales.T("chatErrorMessage", map[string]any{"message": err.Error()})
		return c.store.Dispatch(ChatFailed{Generation: gen, Message: c.modelMessage(msg)})
	}
	return c.store.Dispatch(ChatReplied{Generation: gen, Message: c.modelMessage(reply)})
}

// ChangeLanguage switches the active locale. A loaded guide is translated
// into the new locale; the default locale drops the translation instead.
func (c *Controller) ChangeLanguage(ctx context.Context, locale string) (State, error) {
	if err := c.Locales.SetLanguage(locale); err != nil {
		return c.store.State(), err
	}
	if c.Prefs != nil {
		if err := c.Prefs.SaveLocale(locale); err != nil {
			c.log.Warn("Failed to save locale preference", "error", err)
		}
	}

	st := c.store.Dispatch(LocaleChanged{Locale: locale})
	if st.Guide != nil && locale != i18n.DefaultLocale {
		return c.Translate(ctx)
	}
	return st, nil
}

// Translate translates the current guide into the active locale. Only the
// result of the most recently issued request is applied.
func (c *Controller) Translate(ctx context.Context) (State, error) {
	st := c.store.Dispatch(TranslationStarted{})
	if st.Guide == nil {
		return st, ErrNoGuide
	}
	seq, locale, g := st.TranslationSeq, st.Locale, st.Guide

	out, err := c.Translator.Translate(ctx, g, locale)
	if err != nil {
		c.log.Error("Translation failed", "locale", locale, "seq", seq, "error", err)
		return c.store.Dispatch(TranslationFailed{Seq: seq, Message: c.errorMessage(err)}), err
	}
	return c.store.Dispatch(TranslationSucceeded{Seq: seq, Guide: out}), nil
}

// ViewHistory loads a past entry as the current analysis with a fresh chat
// session seeded from its description.
func (c *Controller) ViewHistory(ctx context.Context, id string) (State, error) {
	entry, ok := c.History.Get(ctx, id)
	if !ok {
		return c.store.State(), ErrHistoryNotFound
	}
	entry.Guide = entry.Guide.Clone()

	mediaRef := ""
	if entry.MediaRef != "" {
		if _, err := c.Media.Get(entry.MediaRef); err == nil {
			mediaRef = entry.MediaRef
		}
	}

	prev, st := c.store.Transition(HistoryViewed{
		Entry:    entry,
		Session:  c.openChat(ctx, entry.Description),
		Greeting: c.modelMessage(c.Locales.T("chatHistoryMessage", map[string]any{"description": entry.Description})),
		MediaRef: mediaRef,
	})
	c.release(prev.MediaRef, st.MediaRef)

	if st.Locale != i18n.DefaultLocale {
		return c.Translate(ctx)
	}
	return st, nil
}

// DeleteHistory removes one entry.
func (c *Controller) DeleteHistory(ctx context.Context, id string) State {
	return c.store.Dispatch(HistoryLoaded{History: c.History.Remove(ctx, id)})
}

// ClearHistory removes every entry.
func (c *Controller) ClearHistory(ctx context.Context) State {
	c.History.Clear(ctx)
	return c.store.Dispatch(HistoryLoaded{History: []history.Entry{}})
}

// SearchHistory returns the entries matching query, best first.
func (c *Controller) SearchHistory(ctx context.Context, query string) []history.Entry {
	if strings.TrimSpace(query) == "" {
		return c.History.List(ctx)
	}
	return c.History.Search(ctx, query)
}

// EditAnnotation sets or clears (box == nil) a step's bounding box on the
// original guide. An edit that changes nothing is a no-op; otherwise an
// active translation is refreshed.
func (c *Controller) EditAnnotation(ctx context.Context, index int, box *guide.BoundingBox) (State, error) {
	st := c.store.State()
	if st.Guide == nil {
		return st, ErrNoGuide
	}
	if _, _, err := guide.WithStepBox(st.Guide, index, box); err != nil {
		return st, err
	}

	prev, next := c.store.Transition(StepBoxEdited{Index: index, Box: box})
	if prev.Guide == next.Guide {
		return next, nil
	}
	if next.Locale != i18n.DefaultLocale {
		return c.Translate(ctx)
	}
	return next, nil
}

// ToggleChat opens or closes the chat panel.
func (c *Controller) ToggleChat() State { return c.store.Dispatch(ToggleChat{}) }

// ToggleHistory opens or closes the history panel, refreshing the list
// when it opens.
func (c *Controller) ToggleHistory(ctx context.Context) State {
	if !c.store.State().HistoryOpen {
		c.store.Dispatch(HistoryLoaded{History: c.History.List(ctx)})
	}
	return c.store.Dispatch(ToggleHistory{})
}

// DismissError clears the top-level error.
func (c *Controller) DismissError() State { return c.store.Dispatch(ErrorDismissed{}) }

// UpdateDraft schedules an autosave of the description being typed.
func (c *Controller) UpdateDraft(text string) {
	if c.Drafts != nil {
		c.Drafts.Update(text)
	}
}

// Draft returns the current draft text.
func (c *Controller) Draft() string {
	if c.Drafts == nil {
		return ""
	}
	return c.Drafts.Current()
}

func (c *Controller) openChat(ctx context.Context, problem string) llm.ChatSession {
	session, err := c.Chats.Open(ctx, problem)
	if err != nil {
		c.log.Warn("Failed to open chat session", "error", err)
		return nil
	}
	return session
}

func (c *Controller) release(old, keep string) {
	if old != "" && old != keep {
		c.Media.Release(old)
	}
}

func (c *Controller) modelMessage(text string) guide.ChatMessage {
	return guide.ChatMessage{Role: guide.RoleModel, Text: text, At: c.now()}
}

func (c *Controller) validationMessage(err error) string {
	return c.Locales.T(guide.MessageKey(err))
}

func (c *Controller) errorMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrInvalidResponse):
		return c.Locales.T("errorInvalidResponse")
	case errors.Is(err, guide.ErrTranslationCount):
		return c.Locales.T("errorTranslationCount")
	case errors.Is(err, llm.ErrInvalidTranslation):
		return c.Locales.T("errorTranslationFormat")
	}
	return err.Error()
}
