package live

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
)

// FrameMIMEType tags outgoing video frames.
const FrameMIMEType = "image/jpeg"

// FrameSlot holds the most recent frame from the client. Older frames are
// overwritten, never queued.
type FrameSlot struct {
	mu    sync.Mutex
	frame []byte
	over  int64
}

// Put stores frame, replacing any frame not yet taken.
func (f *FrameSlot) Put(frame []byte) {
	f.mu.Lock()
	if f.frame != nil {
		f.over++
	}
	f.frame = frame
	f.mu.Unlock()
}

// Take returns and clears the pending frame.
func (f *FrameSlot) Take() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := f.frame
	f.frame = nil
	return frame, frame != nil
}

// Overwritten returns how many frames were replaced before being sent.
func (f *FrameSlot) Overwritten() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.over
}

// EncodeFrame decodes an image, fits it inside maxEdge on both sides and
// re-encodes it as JPEG at the given quality.
func EncodeFrame(data []byte, maxEdge, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if b := img.Bounds(); maxEdge > 0 && (b.Dx() > maxEdge || b.Dy() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
