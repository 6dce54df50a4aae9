package live

import (
	"encoding/binary"
	"math"
	"sync"
)

const (
	// AudioSampleRate is the rate the live model expects.
	AudioSampleRate = 16000
	// AudioChunkSamples is the number of samples in one outgoing chunk.
	AudioChunkSamples = 4096
	// AudioMIMEType tags outgoing PCM chunks.
	AudioMIMEType = "audio/pcm;rate=16000"
)

// Quantizer converts float samples at an input rate into 16 kHz mono
// little-endian int16 chunks of AudioChunkSamples samples.
type Quantizer struct {
	mu    sync.Mutex
	step  float64
	phase float64
	buf   []int16
}

// NewQuantizer creates a quantizer for input at inputRate Hz. Rates at or
// below zero are treated as already 16 kHz.
func NewQuantizer(inputRate int) *Quantizer {
	step := 1.0
	if inputRate > 0 {
		step = float64(inputRate) / AudioSampleRate
	}
	return &Quantizer{step: step, buf: make([]int16, 0, AudioChunkSamples)}
}

// Push consumes samples and returns every chunk completed by them. Partial
// chunks are kept for the next call.
func (q *Quantizer) Push(samples []float32) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	var chunks [][]byte
	for q.phase < float64(len(samples)) {
		q.buf = append(q.buf, quantize(samples[int(q.phase)]))
		q.phase += q.step
		if len(q.buf) == AudioChunkSamples {
			chunks = append(chunks, encodePCM(q.buf))
			q.buf = q.buf[:0]
		}
	}
	q.phase -= float64(len(samples))
	return chunks
}

// Buffered returns the number of samples waiting for a full chunk.
func (q *Quantizer) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Reset drops any partial chunk.
func (q *Quantizer) Reset() {
	q.mu.Lock()
	q.buf = q.buf[:0]
	q.phase = 0
	q.mu.Unlock()
}

func quantize(s float32) int16 {
	v := math.Round(float64(s) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func encodePCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
