package live

import (
	"context"
	"errors"
	"sync"
)

type sentMedia struct {
	mime string
	data []byte
}

// fakeStream is a scripted live connection.
type fakeStream struct {
	msgs   chan *Message
	broken chan error
	closed chan struct{}

	mu        sync.Mutex
	media     []sentMedia
	acks      [][]ToolCall
	closeOnce sync.Once
}

func newFakeStream(ready bool) *fakeStream {
	f := &fakeStream{
		msgs:   make(chan *Message, 16),
		broken: make(chan error, 1),
		closed: make(chan struct{}),
	}
	if ready {
		f.msgs <- &Message{SetupComplete: true}
	}
	return f
}

func (f *fakeStream) SendMedia(mime string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, sentMedia{mime, data})
	return nil
}

func (f *fakeStream) Receive() (*Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case err := <-f.broken:
		return nil, err
	case <-f.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (f *fakeStream) Acknowledge(calls []ToolCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, calls)
	return nil
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeStream) sent(mime string) []sentMedia {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMedia
	for _, m := range f.media {
		if m.mime == mime {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeStream) ackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acks)
}

// fakeDialer hands out streams in order.
type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
	dials   int
}

func (d *fakeDialer) Dial(context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.streams) == 0 {
		return nil, errors.New("no more streams")
	}
	s := d.streams[0]
	d.streams = d.streams[1:]
	return s, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func detection(id string, names ...string) *Message {
	components := make([]any, 0, len(names))
	for i, n := range names {
		components = append(components, map[string]any{
			"name": n,
			"boundingBox": map[string]any{
				"x": 0.1 * float64(i), "y": 0.1, "width": 0.2, "height": 0.3,
			},
		})
	}
	return &Message{Calls: []ToolCall{{
		ID:   id,
		Name: "reportVisibleComponents",
		Args: map[string]any{"components": components},
	}}}
}
