package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// ChatSession is a multi-turn conversation. Turns are retained by the
// session; callers only send the new message.
type ChatSession interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatOpener starts a conversation seeded with the original problem.
type ChatOpener interface {
	Open(ctx context.Context, problem string) (ChatSession, error)
}

// ChatClient opens chat sessions against the chat model.
type ChatClient struct {
	gen   ContentGenerator
	model string
	retry RetryOptions
}

// NewChatClient creates a chat client.
func NewChatClient(gen ContentGenerator, model string, retry RetryOptions) *ChatClient {
	return &ChatClient{gen: gen, model: model, retry: retry}
}

// Open creates a session primed with the problem description. No request is
// made until the first Send.
func (c *ChatClient) Open(_ context.Context, problem string) (ChatSession, error) {
	return &chatSession{
		client: c,
		config: &genai.GenerateContentConfig{
			SystemInstruction: systemInstruction(chatSystemInstruction(problem)),
		},
	}, nil
}

type chatSession struct {
	client *ChatClient
	config *genai.GenerateContentConfig

	mu      sync.Mutex
	history []*genai.Content
}

// Send appends the user turn, asks the model, and records the reply. A
// failed turn leaves the history as it was.
func (s *chatSession) Send(ctx context.Context, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &genai.Content{Role: "user", Parts: []*genai.Part{{Text: message}}}
	contents := make([]*genai.Content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, user)

	resp, err := generate(ctx, s.client.gen, s.client.retry, "llm.chat_send", s.client.model, contents, s.config)
	if err != nil {
		return "", fmt.Errorf("failed to send chat message: %w", err)
	}

	reply := firstText(resp)
	if reply == "" {
		return "", fmt.Errorf("failed to send chat message: %w", ErrNoContent)
	}

	s.history = append(s.history, user, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: reply}}})
	return reply, nil
}
