package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/entrepeneur4lyf/repairforge/internal/events"
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusClosed  Status = "closed"
	StatusOpening Status = "opening"
	StatusOpen    Status = "open"
	StatusError   Status = "error"
)

var (
	// ErrConnection is reported when the transport fails and is not recovered.
	ErrConnection = errors.New("live connection lost")
	// ErrNotOpen is returned for media pushed while the session is not open.
	ErrNotOpen = errors.New("live session is not open")
	// ErrAlreadyOpen is returned by Open on a running session.
	ErrAlreadyOpen = errors.New("live session already open")

	errSetupTimeout = errors.New("live session setup timed out")
)

// Config tunes a session.
type Config struct {
	FPS             int           `mapstructure:"fps"`
	MaxEdge         int           `mapstructure:"max_edge"`
	JPEGQuality     int           `mapstructure:"jpeg_quality"`
	InputSampleRate int           `mapstructure:"input_sample_rate"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay"`
	SetupTimeout    time.Duration `mapstructure:"setup_timeout"`
}

// DefaultConfig returns the standard AR settings.
func DefaultConfig() Config {
	return Config{
		FPS:             5,
		MaxEdge:         1024,
		JPEGQuality:     70,
		InputSampleRate: AudioSampleRate,
		ReconnectDelay:  500 * time.Millisecond,
		SetupTimeout:    15 * time.Second,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.FPS <= 0 {
		c.FPS = d.FPS
	}
	c.FPS = min(c.FPS, 30)
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = d.InputSampleRate
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.SetupTimeout <= 0 {
		c.SetupTimeout = d.SetupTimeout
	}
	if c.MaxReconnects < 0 {
		c.MaxReconnects = 0
	}
	return c
}

// Update is published on every status change and detection.
type Update struct {
	Status     Status              `json:"status"`
	Components []guide.ArComponent `json:"components,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Stats counts pump activity.
type Stats struct {
	FramesSent    int64 `json:"framesSent"`
	FramesDropped int64 `json:"framesDropped"`
	AudioChunks   int64 `json:"audioChunks"`
	Reconnects    int   `json:"reconnects"`
}

// Session is one live detection session. It moves Closed → Opening → Open
// and back to Closed on Close, or to Error when the transport fails.
type Session struct {
	id     string
	dialer Dialer
	cfg    Config
	log    *log.Logger
	broker *events.Broker[Update]

	frames    FrameSlot
	quantizer *Quantizer
	busy      atomic.Bool
	sent      atomic.Int64
	dropped   atomic.Int64
	chunks    atomic.Int64

	loops sync.WaitGroup

	mu         sync.Mutex
	status     Status
	conn       *connection
	stop       context.CancelFunc
	components []guide.ArComponent
	reconnects int
}

// NewSession creates a closed session.
func NewSession(dialer Dialer, cfg Config) *Session {
	cfg = cfg.normalized()
	id := uuid.NewString()
	return &Session{
		id:        id,
		dialer:    dialer,
		cfg:       cfg,
		log:       log.WithPrefix("live").With("session", id),
		broker:    events.NewBroker[Update](),
		quantizer: NewQuantizer(cfg.InputSampleRate),
		status:    StatusClosed,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Subscribe streams status and detection updates until ctx is done.
func (s *Session) Subscribe(ctx context.Context, filters ...events.EventFilter[Update]) <-chan events.Event[Update] {
	return s.broker.Subscribe(ctx, filters...)
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Components returns the latest detected set.
func (s *Session) Components() []guide.ArComponent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]guide.ArComponent(nil), s.components...)
}

// Stats returns pump counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	reconnects := s.reconnects
	s.mu.Unlock()
	return Stats{
		FramesSent:    s.sent.Load(),
		FramesDropped: s.dropped.Load(),
		AudioChunks:   s.chunks.Load(),
		Reconnects:    reconnects,
	}
}

// Open dials the live model and blocks until the transport reports setup
// complete. Pumps only start once the session is open.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusOpening || s.status == StatusOpen {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	life, stop := context.WithCancel(context.Background())
	s.stop = stop
	s.components = nil
	s.quantizer.Reset()
	s.setStatusLocked(StatusOpening, nil)
	s.mu.Unlock()

	conn, err := s.connect(ctx, life)
	if err != nil {
		s.fail(life, err)
		return fmt.Errorf("failed to open live session: %w", err)
	}
	return s.attach(life, conn)
}

// PushFrame offers the latest camera frame. Only the newest frame is kept
// between ticks.
func (s *Session) PushFrame(frame []byte) error {
	if s.Status() != StatusOpen {
		return ErrNotOpen
	}
	s.frames.Put(frame)
	return nil
}

// PushAudio quantizes samples and streams every completed chunk.
func (s *Session) PushAudio(samples []float32) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}
	for _, chunk := range s.quantizer.Push(samples) {
		if err := conn.send(AudioMIMEType, chunk); err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
		s.chunks.Add(1)
	}
	return nil
}

// Close tears the session down. Pumps are stopped and awaited before the
// transport is closed; no reconnect follows a caller close.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.stop == nil || s.status == StatusClosed {
		s.mu.Unlock()
		return nil
	}
	s.stop()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		s.shutdown(conn)
	}
	s.loops.Wait()

	s.mu.Lock()
	s.components = nil
	s.setStatusLocked(StatusClosed, nil)
	s.mu.Unlock()
	s.log.Info("Live session closed", "stats", s.Stats())
	return nil
}

type connection struct {
	stream  Stream
	ready   chan struct{}
	done    chan struct{}
	err     error
	cancel  context.CancelFunc
	pumps   sync.WaitGroup
	closing atomic.Bool
	dropped bool // guarded by Session.mu

	readyOnce sync.Once
	closeOnce sync.Once
	sendMu    sync.Mutex
}

func (c *connection) markReady() { c.readyOnce.Do(func() { close(c.ready) }) }

func (c *connection) send(mimeType string, data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closing.Load() {
		return ErrNotOpen
	}
	return c.stream.SendMedia(mimeType, data)
}

func (c *connection) ack(calls []ToolCall) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closing.Load() {
		return ErrNotOpen
	}
	return c.stream.Acknowledge(calls)
}

func (s *Session) connect(ctx, life context.Context) (*connection, error) {
	stream, err := s.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	conn := &connection{
		stream: stream,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.loops.Add(1)
	go s.receiveLoop(life, conn)

	timer := time.NewTimer(s.cfg.SetupTimeout)
	defer timer.Stop()

	select {
	case <-conn.ready:
	case <-conn.done:
		s.shutdown(conn)
		if conn.err != nil {
			return nil, conn.err
		}
		return nil, ErrConnection
	case <-ctx.Done():
		s.shutdown(conn)
		return nil, ctx.Err()
	case <-life.Done():
		s.shutdown(conn)
		return nil, ErrNotOpen
	case <-timer.C:
		s.shutdown(conn)
		return nil, errSetupTimeout
	}

	pumpCtx, cancel := context.WithCancel(life)
	conn.cancel = cancel
	conn.pumps.Add(1)
	go s.framePump(pumpCtx, conn)
	return conn, nil
}

func (s *Session) attach(life context.Context, conn *connection) error {
	s.mu.Lock()
	if life.Err() != nil || conn.dropped {
		dropped := conn.dropped
		s.mu.Unlock()
		s.shutdown(conn)
		if dropped {
			s.fail(life, ErrConnection)
			return ErrConnection
		}
		return ErrNotOpen
	}
	s.conn = conn
	s.setStatusLocked(StatusOpen, nil)
	s.mu.Unlock()
	s.log.Info("Live session open", "fps", s.cfg.FPS)
	return nil
}

// shutdown stops the pumps, waits for them, then closes the transport.
func (s *Session) shutdown(conn *connection) {
	conn.closeOnce.Do(func() {
		conn.closing.Store(true)
		if conn.cancel != nil {
			conn.cancel()
		}
		conn.pumps.Wait()

		conn.sendMu.Lock()
		defer conn.sendMu.Unlock()
		if err := conn.stream.Close(); err != nil {
			s.log.Warn("Failed to close live stream", "error", err)
		}
	})
}

func (s *Session) fail(life context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if life.Err() != nil {
		return
	}
	s.stop()
	s.components = nil
	s.setStatusLocked(StatusError, err)
	s.log.Error("Live session failed", "error", err)
}

func (s *Session) setStatusLocked(status Status, err error) {
	s.status = status
	u := Update{Status: status}
	if err != nil {
		u.Error = err.Error()
	}
	s.broker.Publish(events.LiveStatusChanged, u, events.WithSessionID(s.id))
}

func (s *Session) receiveLoop(life context.Context, conn *connection) {
	defer s.loops.Done()
	defer close(conn.done)

	for {
		msg, err := conn.stream.Receive()
		if err != nil {
			conn.err = err
			if conn.closing.Load() {
				return
			}
			s.mu.Lock()
			conn.dropped = true
			attached := s.conn == conn
			if attached {
				s.conn = nil
			}
			s.mu.Unlock()
			if attached {
				s.recover(life, conn, err)
			}
			return
		}
		if msg.SetupComplete {
			conn.markReady()
		}
		if len(msg.Calls) > 0 {
			s.handleCalls(conn, msg.Calls)
		}
	}
}

// recover handles an unexpected transport drop: bounded reconnects with
// exponential backoff, then the error state.
func (s *Session) recover(life context.Context, conn *connection, cause error) {
	s.log.Warn("Live connection dropped", "error", cause)
	s.shutdown(conn)

	if s.cfg.MaxReconnects == 0 {
		s.fail(life, ErrConnection)
		return
	}

	s.mu.Lock()
	if life.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.setStatusLocked(StatusOpening, nil)
	s.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReconnectDelay
	next, err := backoff.Retry(life, func() (*connection, error) {
		c, err := s.connect(life, life)
		if err != nil && life.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			s.log.Warn("Reconnect attempt failed", "error", err)
		}
		return c, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(s.cfg.MaxReconnects)))
	if err != nil {
		s.fail(life, fmt.Errorf("%w: %v", ErrConnection, err))
		return
	}

	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	if err := s.attach(life, next); err != nil {
		s.log.Warn("Reconnected session discarded", "error", err)
	}
}

func (s *Session) framePump(ctx context.Context, conn *connection) {
	defer conn.pumps.Done()
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.busy.CompareAndSwap(false, true) {
			s.dropped.Add(1)
			continue
		}
		frame, ok := s.frames.Take()
		if !ok {
			s.busy.Store(false)
			continue
		}
		conn.pumps.Add(1)
		go func() {
			defer conn.pumps.Done()
			defer s.busy.Store(false)
			s.sendFrame(conn, frame)
		}()
	}
}

func (s *Session) sendFrame(conn *connection, frame []byte) {
	jpeg, err := EncodeFrame(frame, s.cfg.MaxEdge, s.cfg.JPEGQuality)
	if err != nil {
		s.log.Warn("Dropping frame", "error", err)
		return
	}
	if err := conn.send(FrameMIMEType, jpeg); err != nil {
		if !conn.closing.Load() {
			s.log.Warn("Failed to send frame", "error", err)
		}
		return
	}
	s.sent.Add(1)
}

// handleCalls applies detection reports and acknowledges every call.
func (s *Session) handleCalls(conn *connection, calls []ToolCall) {
	for _, call := range calls {
		if call.Name != llm.ReportComponentsFunction {
			s.log.Debug("Ignoring tool call", "name", call.Name)
			continue
		}
		components, err := parseComponents(call.Args)
		if err != nil {
			s.log.Warn("Malformed detection report", "error", err)
			continue
		}

		s.mu.Lock()
		s.components = components
		s.mu.Unlock()
		s.broker.Publish(events.LiveComponents, Update{Status: StatusOpen, Components: components}, events.WithSessionID(s.id))
	}
	if err := conn.ack(calls); err != nil && !conn.closing.Load() {
		s.log.Warn("Failed to acknowledge tool calls", "error", err)
	}
}

func parseComponents(args map[string]any) ([]guide.ArComponent, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var report struct {
		Components []guide.ArComponent `json:"components"`
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	out := make([]guide.ArComponent, 0, len(report.Components))
	for _, c := range report.Components {
		if c.Name == "" || !c.BoundingBox.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
