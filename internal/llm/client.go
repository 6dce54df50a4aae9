// Package llm talks to the hosted generative model: repair guide
// generation, guide translation and follow-up chat.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Default model names.
const (
	DefaultGuideModel       = "gemini-2.5-pro"
	DefaultTranslationModel = "gemini-2.5-flash"
	DefaultChatModel        = "gemini-2.5-flash"
	DefaultLiveModel        = "gemini-2.5-flash-native-audio-preview-09-2025"
)

// ErrNoContent is returned when the model response carries no text.
var ErrNoContent = errors.New("model returned no content")

// ContentGenerator is the slice of the genai Models API used here. The
// genai client's Models field satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the clients built by NewClients.
type Options struct {
	APIKey           string
	GuideModel       string
	TranslationModel string
	ChatModel        string
	Retry            RetryOptions
}

// Clients bundles the three request/response clients over one genai client.
type Clients struct {
	GenAI      *genai.Client
	Guide      *GuideClient
	Translator *Translator
	Chat       *ChatClient
}

// NewClients creates a genai client for the Gemini API and the guide,
// translation and chat clients on top of it.
func NewClients(ctx context.Context, opts Options) (*Clients, error) {
	if opts.APIKey == "" {
		return nil, errors.New("failed to create Gemini client: API key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Clients{
		GenAI:      client,
		Guide:      NewGuideClient(client.Models, orDefault(opts.GuideModel, DefaultGuideModel), opts.Retry),
		Translator: NewTranslator(client.Models, orDefault(opts.TranslationModel, DefaultTranslationModel), opts.Retry),
		Chat:       NewChatClient(client.Models, orDefault(opts.ChatModel, DefaultChatModel), opts.Retry),
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// firstText concatenates the text parts of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// StripCodeFences removes a surrounding ```json ... ``` wrapper, which some
// models add even in JSON mode.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeJSON strips fences and unmarshals the model text into v.
func decodeJSON(text string, v any) error {
	text = StripCodeFences(text)
	if text == "" {
		return ErrNoContent
	}
	return json.Unmarshal([]byte(text), v)
}

func systemInstruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}
