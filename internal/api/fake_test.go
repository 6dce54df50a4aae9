package api

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/entrepeneur4lyf/repairforge/internal/app"
	"github.com/entrepeneur4lyf/repairforge/internal/draft"
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/live"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
	"github.com/entrepeneur4lyf/repairforge/internal/media"
	"github.com/entrepeneur4lyf/repairforge/internal/storage"
)

type fakeGuides struct{}

func (fakeGuides) Generate(_ context.Context, desc string, _ *guide.Media) (*guide.RepairGuide, error) {
	return &guide.RepairGuide{
		Diagnosis:         "Diagnosis for " + desc,
		EstimatedCost:     "$100",
		MachineDowntime:   "4 hours",
		ManualLaborTime:   "2 hours",
		PartAvailability:  "In stock",
		RequiredTools:     []string{"Wrench"},
		RequiredMaterials: []string{"Seal kit"},
		SafetyWarnings:    []string{"Relieve pressure"},
		RepairSteps: []guide.RepairStep{
			{Description: "Lower the boom"},
			{Description: "Replace the seal"},
		},
		PreventativeMaintenance: []string{"Inspect weekly"},
	}, nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeTranslator) Translate(_ context.Context, g *guide.RepairGuide, locale string) (*guide.RepairGuide, error) {
	f.mu.Lock()
	f.calls = append(f.calls, locale)
	f.mu.Unlock()
	out := g.Clone()
	out.Diagnosis = locale + ": " + g.Diagnosis
	return out, nil
}

func (f *fakeTranslator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeChats struct{}

func (fakeChats) Open(context.Context, string) (llm.ChatSession, error) { return fakeChat{}, nil }

type fakeChat struct{}

func (fakeChat) Send(_ context.Context, msg string) (string, error) { return "reply: " + msg, nil }

// fakeStream completes setup immediately and then delivers queued messages.
type fakeStream struct {
	msgs   chan *live.Message
	closed chan struct{}
	once   sync.Once
}

func newFakeStream() *fakeStream {
	s := &fakeStream{msgs: make(chan *live.Message, 8), closed: make(chan struct{})}
	s.msgs <- &live.Message{SetupComplete: true}
	return s
}

func (s *fakeStream) SendMedia(string, []byte) error { return nil }

func (s *fakeStream) Receive() (*live.Message, error) {
	select {
	case m := <-s.msgs:
		return m, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *fakeStream) Acknowledge([]live.ToolCall) error { return nil }

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
}

func (d *fakeDialer) Dial(context.Context) (live.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeStream()
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDialer) last() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type testEnv struct {
	server     *Server
	http       *httptest.Server
	ctrl       *app.Controller
	translator *fakeTranslator
	dialer     *fakeDialer
	locales    *i18n.Store
	media      *media.Registry
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	kv := storage.NewMemoryKV()
	env := &testEnv{
		translator: &fakeTranslator{},
		dialer:     &fakeDialer{},
		locales:    i18n.New(),
		media:      media.NewRegistry(),
	}
	store := app.NewStore(app.NewState(env.locales.Language()))
	drafts := draft.NewSaver(kv, 10*time.Millisecond)
	drafts.Start()
	t.Cleanup(func() {
		drafts.Stop()
		store.Close()
	})

	env.ctrl = app.NewController(store, app.Deps{
		Guides:     fakeGuides{},
		Translator: env.translator,
		Chats:      fakeChats{},
		History:    history.New(kv),
		Drafts:     drafts,
		Locales:    env.locales,
		Media:      env.media,
	})
	env.ctrl.Init(context.Background())

	opts := Options{
		AllowedOrigins: []string{"http://localhost:5173"},
		Controller:     env.ctrl,
		Locales:        env.locales,
		Media:          env.media,
		LiveDialer:     env.dialer,
		Live:           live.DefaultConfig(),
		RequestTimeout: 5 * time.Second,
	}
	for _, m := range mutate {
		m(&opts)
	}
	env.server = NewServer(opts)
	env.http = httptest.NewServer(env.server.Handler())
	t.Cleanup(func() {
		env.server.Stop(context.Background())
		env.http.Close()
	})
	return env
}

var errDialRefused = errors.New("dial refused")
