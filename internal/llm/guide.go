package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
)

// ErrInvalidResponse is returned when the guide response cannot be parsed or
// is missing required fields.
var ErrInvalidResponse = errors.New("The AI returned an invalid response format. Please try again.")

// GuideGenerator produces a repair guide from a problem report.
type GuideGenerator interface {
	Generate(ctx context.Context, description string, media *guide.Media) (*guide.RepairGuide, error)
}

// GuideClient generates repair guides with structured JSON output.
type GuideClient struct {
	gen         ContentGenerator
	model       string
	temperature float32
	retry       RetryOptions
	log         *log.Logger
}

// NewGuideClient creates a guide client.
func NewGuideClient(gen ContentGenerator, model string, retry RetryOptions) *GuideClient {
	return &GuideClient{
		gen:         gen,
		model:       model,
		temperature: 0.2,
		retry:       retry,
		log:         log.WithPrefix("guide"),
	}
}

// Generate sends the description and optional media and returns a complete
// guide. A malformed or incomplete response is ErrInvalidResponse; no
// partially populated guide is ever returned.
func (c *GuideClient) Generate(ctx context.Context, description string, media *guide.Media) (*guide.RepairGuide, error) {
	description = guide.NormalizeDescription(description)
	if err := guide.ValidateDescription(description); err != nil {
		return nil, err
	}
	if err := guide.ValidateMedia(media); err != nil {
		return nil, err
	}

	var parts []*genai.Part
	if media != nil {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: media.MIMEType, Data: media.Data}})
	}
	parts = append(parts, &genai.Part{Text: guidePrompt(description)})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(guideSystemInstruction),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    repairGuideSchema(),
		Temperature:       genai.Ptr(c.temperature),
	}

	resp, err := generate(ctx, c.gen, c.retry, "llm.generate_guide", c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate repair guide: %w", err)
	}

	var g guide.RepairGuide
	if err := decodeJSON(firstText(resp), &g); err != nil {
		c.log.Error("Failed to parse guide response", "error", err)
		return nil, ErrInvalidResponse
	}
	if err := g.Validate(); err != nil {
		c.log.Error("Guide response is incomplete", "error", err)
		return nil, ErrInvalidResponse
	}
	g.Normalize()

	// Without media there is nothing for a box to point at.
	if media == nil {
		g.StripBoxes()
	}

	if g.LaborExceedsDowntime() {
		c.log.Warn("Guide labor time exceeds machine downtime",
			"manualLaborTime", g.ManualLaborTime, "machineDowntime", g.MachineDowntime)
	}

	c.log.Debug("Generated repair guide", "steps", len(g.RepairSteps), "media", media != nil)
	return &g, nil
}
