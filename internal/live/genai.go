package live

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/entrepeneur4lyf/repairforge/internal/llm"
)

// GenAIDialer connects to the Gemini live API.
type GenAIDialer struct {
	client *genai.Client
	model  string
}

// NewGenAIDialer creates a dialer for model, falling back to the default
// live model.
func NewGenAIDialer(client *genai.Client, model string) *GenAIDialer {
	if model == "" {
		model = llm.DefaultLiveModel
	}
	return &GenAIDialer{client: client, model: model}
}

// Dial opens a session primed for component detection.
func (d *GenAIDialer) Dial(ctx context.Context) (Stream, error) {
	session, err := d.client.Live.Connect(ctx, d.model, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: llm.DetectionSystemInstruction}},
		},
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{llm.ReportComponentsDeclaration()},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect live session: %w", err)
	}
	return &genaiStream{session: session}, nil
}

// liveConn is the part of *genai.Session a stream drives.
type liveConn interface {
	SendRealtimeInput(genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	SendToolResponse(genai.LiveToolResponseInput) error
	Close() error
}

type genaiStream struct {
	session liveConn
}

func (s *genaiStream) SendMedia(mimeType string, data []byte) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{MIMEType: mimeType, Data: data},
	})
}

func (s *genaiStream) Receive() (*Message, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return nil, err
	}
	out := &Message{SetupComplete: msg.SetupComplete != nil}
	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			out.Calls = append(out.Calls, ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
	}
	return out, nil
}

func (s *genaiStream) Acknowledge(calls []ToolCall) error {
	responses := make([]*genai.FunctionResponse, 0, len(calls))
	for _, c := range calls {
		responses = append(responses, &genai.FunctionResponse{
			ID:       c.ID,
			Name:     c.Name,
			Response: map[string]any{"result": "ok"},
		})
	}
	return s.session.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: responses})
}

func (s *genaiStream) Close() error {
	return s.session.Close()
}
