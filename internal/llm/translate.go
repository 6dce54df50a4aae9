package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
)

// ErrInvalidTranslation is returned when the translation response cannot be parsed.
var ErrInvalidTranslation = errors.New("The AI returned an invalid translation format.")

// GuideTranslator translates a guide into a locale.
type GuideTranslator interface {
	Translate(ctx context.Context, g *guide.RepairGuide, locale string) (*guide.RepairGuide, error)
}

// Translator translates guides in one batched request.
type Translator struct {
	gen         ContentGenerator
	model       string
	temperature float32
	retry       RetryOptions
	log         *log.Logger
}

// NewTranslator creates a translator.
func NewTranslator(gen ContentGenerator, model string, retry RetryOptions) *Translator {
	return &Translator{
		gen:         gen,
		model:       model,
		temperature: 0.1,
		retry:       retry,
		log:         log.WithPrefix("translate"),
	}
}

type translationResponse struct {
	Translations []string `json:"translations"`
}

// Translate returns a translated copy of g. The default locale is a no-op
// and returns nil without calling the model.
func (t *Translator) Translate(ctx context.Context, g *guide.RepairGuide, locale string) (*guide.RepairGuide, error) {
	if locale == "" || locale == i18n.DefaultLocale {
		return nil, nil
	}
	lang, ok := i18n.Lookup(locale)
	if !ok {
		return nil, fmt.Errorf("failed to translate guide: %w", i18n.ErrUnknownLocale)
	}
	if g == nil {
		return nil, fmt.Errorf("failed to translate guide: %w", guide.ErrIncompleteGuide)
	}

	flat, layout := guide.Flatten(g)
	input, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode translation input: %w", err)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: translationPrompt(lang.Name, input)}},
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   translationSchema(),
		Temperature:      genai.Ptr(t.temperature),
	}

	resp, err := generate(ctx, t.gen, t.retry, "llm.translate_guide", t.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to translate guide: %w", err)
	}

	var out translationResponse
	if err := decodeJSON(firstText(resp), &out); err != nil || out.Translations == nil {
		t.log.Error("Failed to parse translation response", "locale", locale, "error", err)
		return nil, ErrInvalidTranslation
	}

	translated, err := guide.Unflatten(g, layout, out.Translations)
	if err != nil {
		t.log.Error("Translation count mismatch", "locale", locale, "want", layout.Total(), "got", len(out.Translations))
		return nil, err
	}
	return translated, nil
}
