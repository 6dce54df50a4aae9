// Package live runs the bidirectional detection session that streams camera
// frames and microphone audio to the live model and reports the machine
// components it sees.
package live

import "context"

// ToolCall is a function call requested by the live model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one server message, reduced to the parts the session uses.
type Message struct {
	SetupComplete bool
	Calls         []ToolCall
}

// Stream is an open live connection.
type Stream interface {
	// SendMedia streams one realtime media blob.
	SendMedia(mimeType string, data []byte) error
	// Receive blocks for the next server message. It fails once the stream is closed.
	Receive() (*Message, error)
	// Acknowledge answers tool calls so the model can continue.
	Acknowledge(calls []ToolCall) error
	Close() error
}

// Dialer opens live connections.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}
