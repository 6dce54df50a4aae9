package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
)

func parsedGuide(t *testing.T) *guide.RepairGuide {
	t.Helper()
	var g guide.RepairGuide
	require.NoError(t, json.Unmarshal([]byte(guideJSON), &g))
	return &g
}

func echoTranslations(flat []string, prefix string) string {
	out := make([]string, len(flat))
	for i, s := range flat {
		out[i] = prefix + s
	}
	b, _ := json.Marshal(map[string][]string{"translations": out})
	return string(b)
}

func TestTranslateDefaultLocaleIsNoop(t *testing.T) {
	gen := &fakeGenerator{}
	tr := NewTranslator(gen, DefaultTranslationModel, noRetry)

	out, err := tr.Translate(context.Background(), parsedGuide(t), i18n.DefaultLocale)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, gen.calls)
}

func TestTranslate(t *testing.T) {
	g := parsedGuide(t)
	flat, _ := guide.Flatten(g)
	gen := &fakeGenerator{responses: []string{echoTranslations(flat, "hi:")}}
	tr := NewTranslator(gen, DefaultTranslationModel, noRetry)

	out, err := tr.Translate(context.Background(), g, "hi")
	require.NoError(t, err)

	assert.Equal(t, "hi:"+g.Diagnosis, out.Diagnosis)
	assert.Len(t, out.RequiredTools, len(g.RequiredTools))
	assert.Len(t, out.RepairSteps, len(g.RepairSteps))
	assert.Equal(t, g.RepairSteps[0].BoundingBox, out.RepairSteps[0].BoundingBox)
	assert.Equal(t, "Worn rod seal on the boom cylinder", g.Diagnosis, "source guide is untouched")

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Equal(t, DefaultTranslationModel, call.model)
	assert.InDelta(t, 0.1, *call.config.Temperature, 0.0001)
	assert.Equal(t, []string{"translations"}, call.config.ResponseSchema.Required)

	prompt := call.contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Hindi")
	start := strings.Index(prompt, "[")
	require.GreaterOrEqual(t, start, 0)
	var sent []string
	require.NoError(t, json.Unmarshal([]byte(prompt[start:]), &sent))
	assert.Equal(t, flat, sent)
}

func TestTranslateCountMismatch(t *testing.T) {
	g := parsedGuide(t)
	flat, _ := guide.Flatten(g)
	gen := &fakeGenerator{responses: []string{echoTranslations(flat[1:], "")}}
	tr := NewTranslator(gen, DefaultTranslationModel, noRetry)

	out, err := tr.Translate(context.Background(), g, "ta")
	assert.Nil(t, out)
	assert.ErrorIs(t, err, guide.ErrTranslationCount)
}

func TestTranslateInvalidFormat(t *testing.T) {
	for _, body := range []string{"not json", `{"other": []}`, ""} {
		tr := NewTranslator(&fakeGenerator{responses: []string{body}}, DefaultTranslationModel, noRetry)
		out, err := tr.Translate(context.Background(), parsedGuide(t), "bn")
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrInvalidTranslation, "body %q", body)
	}
}

func TestTranslateUnknownLocale(t *testing.T) {
	gen := &fakeGenerator{}
	tr := NewTranslator(gen, DefaultTranslationModel, noRetry)
	_, err := tr.Translate(context.Background(), parsedGuide(t), "xx")
	assert.ErrorIs(t, err, i18n.ErrUnknownLocale)
	assert.Empty(t, gen.calls)
}
