package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/history"
)

func readyState() State {
	g := &guide.RepairGuide{
		Diagnosis:   "Leaking fitting",
		RepairSteps: []guide.RepairStep{{Description: "Tighten"}},
	}
	return State{
		Status:         StatusReady,
		Generation:     3,
		Guide:          g,
		TranslationSeq: 2,
		Locale:         "en",
		Chat: ChatState{
			Open:     true,
			Messages: make([]guide.ChatMessage, 1, 8),
		},
		History: []history.Entry{{ID: "a"}},
	}
}

func TestReduceDoesNotShareSlices(t *testing.T) {
	s := readyState()
	a := Reduce(s, ChatSent{Generation: 3, Message: guide.ChatMessage{Role: guide.RoleUser, Text: "a"}})
	b := Reduce(s, ChatSent{Generation: 3, Message: guide.ChatMessage{Role: guide.RoleUser, Text: "b"}})

	require.Len(t, a.Chat.Messages, 2)
	require.Len(t, b.Chat.Messages, 2)
	assert.Equal(t, "a", a.Chat.Messages[1].Text)
	assert.Equal(t, "b", b.Chat.Messages[1].Text)
	assert.Len(t, s.Chat.Messages, 1)
}

func TestReduceStartAnalysisResets(t *testing.T) {
	s := readyState()
	s.Translated = s.Guide.Clone()
	s.Form = FormState{Media: &guide.Media{MIMEType: "image/png"}, MediaRef: "ref-1", DescriptionError: "x"}
	s.HistoryOpen = true

	next := Reduce(s, StartAnalysis{Description: "new problem"})
	assert.Equal(t, StatusAnalyzing, next.Status)
	assert.Equal(t, uint64(4), next.Generation)
	assert.Greater(t, next.TranslationSeq, s.TranslationSeq)
	assert.Nil(t, next.Guide)
	assert.Nil(t, next.Translated)
	assert.Empty(t, next.Chat.Messages)
	assert.Nil(t, next.Chat.Session)
	assert.Equal(t, ChatState{}, next.Chat)
	assert.True(t, next.HistoryOpen)
	assert.Equal(t, "ref-1", next.MediaRef)
	assert.Equal(t, FormState{}, next.Form)
	assert.Equal(t, s.History, next.History)
}

func TestReduceDropsStaleResults(t *testing.T) {
	s := Reduce(readyState(), StartAnalysis{Description: "p"})

	tests := []struct {
		name   string
		action Action
	}{
		{"analysis success", AnalysisSucceeded{Generation: 3, Guide: &guide.RepairGuide{}}},
		{"analysis failure", AnalysisFailed{Generation: 3, Message: "boom"}},
		{"chat sent", ChatSent{Generation: 3}},
		{"chat reply", ChatReplied{Generation: 3}},
		{"chat failure", ChatFailed{Generation: 3}},
		{"translation", TranslationSucceeded{Seq: 1, Guide: &guide.RepairGuide{}}},
		{"translation failure", TranslationFailed{Seq: 1, Message: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, s, Reduce(s, tt.action))
		})
	}
}

func TestReduceAnalysisLifecycle(t *testing.T) {
	s := Reduce(NewState("en"), StartAnalysis{Description: "p"})
	g := &guide.RepairGuide{Diagnosis: "d"}
	greeting := guide.ChatMessage{Role: guide.RoleModel, Text: "hi"}

	ok := Reduce(s, AnalysisSucceeded{Generation: s.Generation, Guide: g, Greeting: greeting})
	assert.Equal(t, StatusReady, ok.Status)
	assert.Same(t, g, ok.Guide)
	assert.Equal(t, []guide.ChatMessage{greeting}, ok.Chat.Messages)

	again := Reduce(ok, AnalysisSucceeded{Generation: s.Generation, Guide: &guide.RepairGuide{}})
	assert.Same(t, g, again.Guide, "a second result for the same generation is ignored")

	failed := Reduce(s, AnalysisFailed{Generation: s.Generation, Message: "network down"})
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "network down", failed.Error)
}

func TestReduceAnalysisFailureClosesChat(t *testing.T) {
	s := readyState()
	s.Chat.Open = true
	s.Form.MediaRef = "ref-2"

	s = Reduce(s, StartAnalysis{Description: "hydraulic pump whine"})
	assert.False(t, s.Chat.Open)
	s = Reduce(s, ToggleChat{})
	require.True(t, s.Chat.Open)
	require.Equal(t, "ref-2", s.MediaRef)

	failed := Reduce(s, AnalysisFailed{Generation: s.Generation, Message: "network down"})
	assert.Equal(t, ChatState{}, failed.Chat)
	assert.Empty(t, failed.MediaRef)
}

func TestReduceLocaleChanges(t *testing.T) {
	s := readyState()
	s.Locale = "hi"
	s.Translated = s.Guide.Clone()
	s.Translating = true

	back := Reduce(s, LocaleChanged{Locale: "en"})
	assert.Nil(t, back.Translated)
	assert.False(t, back.Translating)
	assert.Greater(t, back.TranslationSeq, s.TranslationSeq)

	other := Reduce(s, LocaleChanged{Locale: "bn"})
	assert.NotNil(t, other.Translated)
	assert.Equal(t, s.TranslationSeq, other.TranslationSeq)
}

func TestReduceTranslationStartedNeedsGuide(t *testing.T) {
	s := NewState("hi")
	assert.Equal(t, s, Reduce(s, TranslationStarted{}))
}

func TestReduceStepBoxEdited(t *testing.T) {
	s := readyState()

	same := Reduce(s, StepBoxEdited{Index: 0, Box: nil})
	assert.Same(t, s.Guide, same.Guide)

	box := &guide.BoundingBox{X: 0.2, Y: 0.2, Width: 0.2, Height: 0.2}
	edited := Reduce(s, StepBoxEdited{Index: 0, Box: box})
	assert.NotSame(t, s.Guide, edited.Guide)
	assert.Nil(t, s.Guide.RepairSteps[0].BoundingBox)
	assert.Equal(t, *box, *edited.Guide.RepairSteps[0].BoundingBox)

	bad := Reduce(s, StepBoxEdited{Index: 5, Box: box})
	assert.Same(t, s.Guide, bad.Guide)
}

func TestReduceMediaRejectionKeepsMedia(t *testing.T) {
	m := &guide.Media{MIMEType: "image/jpeg"}
	s := Reduce(NewState("en"), MediaAttached{Media: m, Ref: "r"})
	rejected := Reduce(s, MediaRejected{Message: "too big"})
	assert.Same(t, m, rejected.Form.Media)
	assert.Equal(t, "r", rejected.Form.MediaRef)
	assert.Equal(t, "too big", rejected.Form.MediaError)

	removed := Reduce(rejected, MediaRemoved{})
	assert.Equal(t, FormState{}, removed.Form)
}
