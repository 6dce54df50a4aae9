package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/entrepeneur4lyf/repairforge/internal/draft"
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
	"github.com/entrepeneur4lyf/repairforge/internal/media"
	"github.com/entrepeneur4lyf/repairforge/internal/storage"
)

const (
	guideModel     = "guide-model"
	translateModel = "translate-model"
	chatModel      = "chat-model"
)

const boxedGuide = `{
  "diagnosis": "Worn rod seal on the boom cylinder",
  "estimatedCost": "$300 - $500",
  "machineDowntime": "8 hours",
  "manualLaborTime": "4 hours",
  "partAvailability": "Commonly available",
  "requiredTools": ["Seal pick", "Spanner wrench", "Torque wrench"],
  "requiredMaterials": ["Seal kit"],
  "safetyWarnings": ["Lower the boom and relieve pressure"],
  "repairSteps": [
    {"description": "Lower the boom", "boundingBox": {"x": 0.1, "y": 0.2, "width": 0.3, "height": 0.2}},
    {"description": "Remove the gland", "boundingBox": {"x": 0.4, "y": 0.4, "width": 0.1, "height": 0.1}}
  ],
  "preventativeMaintenance": ["Inspect the rod weekly", "Keep the rod clean"]
}`

// scriptedModel answers by model name: a fixed guide, a prefixed echo of
// the translation input, or a chat reply.
type scriptedModel struct {
	mu              sync.Mutex
	calls           []string
	translateInputs [][]string
	chatErr         error
}

func (m *scriptedModel) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, model)

	last := contents[len(contents)-1]
	text := last.Parts[len(last.Parts)-1].Text

	switch model {
	case guideModel:
		return respond(boxedGuide), nil
	case translateModel:
		var in []string
		if err := json.Unmarshal([]byte(text[strings.Index(text, "["):]), &in); err != nil {
			return nil, err
		}
		m.translateInputs = append(m.translateInputs, in)
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = "HI: " + s
		}
		b, _ := json.Marshal(map[string][]string{"translations": out})
		return respond(string(b)), nil
	case chatModel:
		if m.chatErr != nil {
			return nil, m.chatErr
		}
		return respond("reply to " + text), nil
	}
	return nil, errors.New("unknown model " + model)
}

func (m *scriptedModel) count(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == model {
			n++
		}
	}
	return n
}

func respond(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

type harness struct {
	model   *scriptedModel
	kv      *storage.MemoryKV
	media   *media.Registry
	locales *i18n.Store
	ctrl    *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	noRetry := llm.RetryOptions{MaxRetries: 1}
	h := &harness{
		model:   &scriptedModel{},
		kv:      storage.NewMemoryKV(),
		media:   media.NewRegistry(),
		locales: i18n.New(),
	}
	store := NewStore(NewState(h.locales.Language()))
	t.Cleanup(store.Close)
	h.ctrl = NewController(store, Deps{
		Guides:     llm.NewGuideClient(h.model, guideModel, noRetry),
		Translator: llm.NewTranslator(h.model, translateModel, noRetry),
		Chats:      llm.NewChatClient(h.model, chatModel, noRetry),
		History:    history.New(h.kv),
		Drafts:     draft.NewSaver(h.kv, time.Hour),
		Locales:    h.locales,
		Media:      h.media,
	})
	return h
}

func (h *harness) submit(t *testing.T, desc string, m *guide.Media) State {
	t.Helper()
	st, err := h.ctrl.Submit(context.Background(), guide.Submission{Description: desc, Media: m})
	if err != nil {
		t.Fatalf("submit %q: %v", desc, err)
	}
	return st
}

func jpeg() *guide.Media {
	return &guide.Media{MIMEType: "image/jpeg", Name: "boom.jpg", Data: []byte{0xff, 0xd8, 0xff, 0xe0}}
}

// gatedGuides blocks each Generate call until its description is released.
type gatedGuides struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedGuides(descs ...string) *gatedGuides {
	g := &gatedGuides{gates: make(map[string]chan struct{})}
	for _, d := range descs {
		g.gates[d] = make(chan struct{})
	}
	return g
}

func (g *gatedGuides) release(desc string) { close(g.gates[desc]) }

func (g *gatedGuides) Generate(ctx context.Context, desc string, _ *guide.Media) (*guide.RepairGuide, error) {
	g.mu.Lock()
	gate := g.gates[desc]
	g.mu.Unlock()
	select {
	case <-gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var out guide.RepairGuide
	if err := json.Unmarshal([]byte(boxedGuide), &out); err != nil {
		return nil, err
	}
	out.Diagnosis = "diagnosis for " + desc
	return &out, nil
}

// gatedTranslator blocks per locale and tags output with the locale.
type gatedTranslator struct {
	gates map[string]chan struct{}
}

func (g *gatedTranslator) Translate(_ context.Context, src *guide.RepairGuide, locale string) (*guide.RepairGuide, error) {
	if gate, ok := g.gates[locale]; ok {
		<-gate
	}
	out := src.Clone()
	out.Diagnosis = locale + ": " + src.Diagnosis
	return out, nil
}
