package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/entrepeneur4lyf/repairforge/internal/events"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/live"
)

type framePayload struct {
	Image []byte `json:"image"`
}

type audioPayload struct {
	Samples []float32 `json:"samples"`
}

// devicePayload reports a camera or microphone failure on the client.
type devicePayload struct {
	Device  string `json:"device"` // camera or microphone
	Reason  string `json:"reason"` // denied or unavailable
	Message string `json:"message,omitempty"`
}

type statusPayload struct {
	Status live.Status `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// liveConn binds one socket to one detection session and the capture
// capabilities its client reported.
type liveConn struct {
	server  *Server
	client  *wsClient
	session *live.Session
	locale  string

	mu   sync.Mutex
	caps live.Capabilities
}

// handleLiveWebSocket runs an AR detection session for the lifetime of the
// socket. Only the ar capture mode has a live session.
func (s *Server) handleLiveWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.opts.LiveDialer == nil {
		s.writeError(w, "live detection is not configured", http.StatusServiceUnavailable)
		return
	}
	mode := live.ModeAR
	if q := r.URL.Query().Get("mode"); q != "" {
		m, err := live.ParseCaptureMode(q)
		if err != nil {
			s.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = m
	}
	if !mode.Live() {
		s.writeError(w, "capture mode "+string(mode)+" has no live session", http.StatusBadRequest)
		return
	}

	locale := i18n.FromContext(r.Context())
	if locale == "" {
		locale = s.opts.Locales.Language()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	lc := &liveConn{
		server:  s,
		client:  newWSClient(s.background, "live", conn, s.log),
		session: live.NewSession(s.opts.LiveDialer, s.opts.Live),
		locale:  locale,
	}
	s.connectionManager.add(lc.client)
	lc.client.log.Info("Live client connected", "session", lc.session.ID())

	go lc.client.writePump()
	forwarded := lc.forward()
	go lc.open()

	lc.client.readPump(lc.handle)

	lc.session.Close()
	lc.client.close()
	<-forwarded
	s.connectionManager.remove(lc.client)
	lc.client.log.Info("Live client disconnected", "stats", lc.session.Stats())
}

// open dials the model. The client learns the outcome from status updates.
func (lc *liveConn) open() {
	ctx, cancel := context.WithTimeout(lc.client.ctx, lc.server.opts.RequestTimeout)
	defer cancel()
	if err := lc.session.Open(ctx); err != nil && !errors.Is(err, live.ErrAlreadyOpen) {
		lc.client.log.Warn("Live session failed to open", "error", err)
	}
}

// forward relays session updates until the client goes away.
func (lc *liveConn) forward() <-chan struct{} {
	done := make(chan struct{})
	updates := lc.session.Subscribe(lc.client.ctx,
		events.FilterBySession[live.Update](lc.session.ID()),
		events.FilterByType[live.Update](events.LiveStatusChanged, events.LiveComponents),
	)
	go func() {
		defer close(done)
		for ev := range updates {
			switch ev.Type {
			case events.LiveStatusChanged:
				lc.client.sendMessage(WebSocketMessage{
					Type:    "status",
					Data:    statusPayload{Status: ev.Payload.Status, Error: ev.Payload.Error},
					EventID: ev.ID,
				})
				if ev.Payload.Status == live.StatusError {
					lc.client.sendError(lc.message("arConnectionError"), ev.ID)
				}
			case events.LiveComponents:
				lc.client.sendMessage(WebSocketMessage{Type: "components", Data: ev.Payload.Components, EventID: ev.ID})
			}
		}
	}()
	return done
}

func (lc *liveConn) message(key string, replacements ...map[string]any) string {
	return lc.server.opts.Locales.TIn(lc.locale, key, replacements...)
}

func (lc *liveConn) handle(msg inboundMessage) {
	switch msg.Type {
	case "frame":
		var p framePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || len(p.Image) == 0 {
			lc.client.sendError("invalid frame payload", msg.EventID)
			return
		}
		if err := lc.session.PushFrame(p.Image); err != nil {
			lc.client.log.Debug("Frame ignored", "error", err)
		}

	case "audio":
		var p audioPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			lc.client.sendError("invalid audio payload", msg.EventID)
			return
		}
		if err := lc.session.PushAudio(p.Samples); err != nil && !errors.Is(err, live.ErrNotOpen) {
			lc.client.log.Warn("Audio send failed", "error", err)
		}

	case "capabilities":
		var caps live.Capabilities
		if err := json.Unmarshal(msg.Data, &caps); err != nil {
			lc.client.sendError("invalid capabilities payload", msg.EventID)
			return
		}
		lc.mu.Lock()
		lc.caps = caps
		lc.mu.Unlock()

	case "controls":
		var req live.Controls
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			lc.client.sendError("invalid controls payload", msg.EventID)
			return
		}
		lc.mu.Lock()
		caps := lc.caps
		lc.mu.Unlock()
		applied, err := caps.Apply(req)
		if err != nil {
			lc.client.sendError(err.Error(), msg.EventID)
			return
		}
		lc.client.sendMessage(WebSocketMessage{Type: "controls", Data: applied, EventID: msg.EventID})

	case "device_error":
		var p devicePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			lc.client.sendError("invalid device payload", msg.EventID)
			return
		}
		lc.client.sendError(lc.message(deviceErrorKey(p), map[string]any{"message": p.Message}), msg.EventID)

	case "close":
		lc.session.Close()
		lc.client.close()

	case "ping":
		lc.client.sendMessage(WebSocketMessage{Type: "pong", EventID: msg.EventID})

	default:
		lc.client.sendError("unknown message type: "+msg.Type, msg.EventID)
	}
}

func deviceErrorKey(p devicePayload) string {
	switch {
	case p.Device == "microphone" && p.Reason == "denied":
		return "microphonePermissionDeniedError"
	case p.Reason == "denied":
		return "cameraPermissionDeniedError"
	default:
		return "cameraAccessError"
	}
}
