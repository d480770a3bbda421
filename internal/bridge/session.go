package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/monitoring"
	"github.com/jweese001/threejs-ide/internal/scene"
)

var (
	// ErrNotReady means RequestRun was called before the handshake.
	ErrNotReady = errors.New("sandbox session not ready")
	// ErrSuperseded means a newer correlated request overwrote this one.
	ErrSuperseded = errors.New("request superseded by a newer one")
)

// State is the session lifecycle state.
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "loading"
}

// Transport delivers host messages to the sandbox side. The WebSocket
// transport and the in-process goja transport both satisfy it; the session
// never knows which is behind it.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Options configures a Session.
type Options struct {
	// ExpectedOrigin is the only origin inbound envelopes are accepted from.
	ExpectedOrigin string
	// Filter suppresses noisy console lines. Nil means no filtering.
	Filter *Filter
	// Metrics is optional.
	Metrics *monitoring.Metrics
	// Logger is optional.
	Logger *logging.Logger
}

// Session is the live state of one sandboxed run context.
type Session struct {
	transport Transport
	origin    string
	filter    *Filter
	sanitizer *bluemonday.Policy
	metrics   *monitoring.Metrics
	log       *logging.Logger

	mu           sync.Mutex
	state        State
	handlers     []func(Event)
	activeSource string
	activeMap    []byte

	frameSlot  slot[*Frame]
	cameraSlot slot[scene.Camera]
}

// NewSession wraps a transport in a session in the Loading state.
func NewSession(transport Transport, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault()
	}
	return &Session{
		transport: transport,
		origin:    opts.ExpectedOrigin,
		filter:    opts.Filter,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   opts.Metrics,
		log:       log.Named("bridge"),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnEvent registers a handler for dispatched inbound events. Handlers run
// on the envelope-delivery goroutine and must not block.
func (s *Session) OnEvent(handler func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// RequestRun delivers source text and a serialized module map to the
// sandbox. Only valid from Ready; callers re-trigger once readiness
// arrives. A nil moduleMap ships the code without one.
func (s *Session) RequestRun(source string, moduleMap []byte) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.activeSource = source
	s.activeMap = moduleMap
	s.mu.Unlock()

	data, err := sonic.Marshal(runMessage{
		Type:      msgExecute,
		Code:      source,
		ModuleMap: moduleMap,
	})
	if err != nil {
		return err
	}
	if err := s.transport.Send(data); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RunsDelivered.Inc()
	}
	return nil
}

// ActiveSource returns the most recently delivered source text.
func (s *Session) ActiveSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSource
}

// Resize nudges the sandbox to re-measure its viewport.
func (s *Session) Resize() error {
	data, err := sonic.Marshal(controlMessage{Type: msgResize})
	if err != nil {
		return err
	}
	return s.transport.Send(data)
}

// CaptureFrame requests the current canvas contents. A second call before
// the first resolves supersedes it; the earlier waiter gets ErrSuperseded.
func (s *Session) CaptureFrame(ctx context.Context) (*Frame, error) {
	id := uuid.NewString()
	ch := s.frameSlot.arm(id)

	data, err := sonic.Marshal(controlMessage{Type: msgCaptureFrame, ID: id})
	if err != nil {
		return nil, err
	}
	if err := s.transport.Send(data); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.val, out.err
	}
}

// CameraState requests the sandbox camera's position, target, and field of
// view. Same single-slot correlation semantics as CaptureFrame.
func (s *Session) CameraState(ctx context.Context) (scene.Camera, error) {
	id := uuid.NewString()
	ch := s.cameraSlot.arm(id)

	data, err := sonic.Marshal(controlMessage{Type: msgCameraState, ID: id})
	if err != nil {
		return scene.Camera{}, err
	}
	if err := s.transport.Send(data); err != nil {
		return scene.Camera{}, err
	}

	select {
	case <-ctx.Done():
		return scene.Camera{}, ctx.Err()
	case out := <-ch:
		return out.val, out.err
	}
}

// HandleEnvelope processes one inbound message. Foreign origins, malformed
// bodies, and unknown tags drop here; nothing inbound propagates a panic
// or an error to the transport.
func (s *Session) HandleEnvelope(env Envelope) {
	if env.Origin != s.origin {
		if s.metrics != nil {
			s.metrics.DroppedOrigin.Inc()
		}
		s.log.Warn("dropping message from foreign origin",
			zap.String("origin", env.Origin), zap.String("expected", s.origin))
		return
	}

	var msg message
	if err := sonic.Unmarshal(env.Data, &msg); err != nil || msg.Type == "" {
		if s.metrics != nil {
			s.metrics.DroppedMalformed.Inc()
		}
		s.log.Warn("dropping malformed sandbox message", zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.RecordBridgeEvent(string(msg.Type))
	}

	switch msg.Type {
	case EventReady:
		s.handleReady()
	case EventError:
		s.handleError(msg.Payload)
	case EventConsole:
		s.handleConsole(msg.Payload)
	case EventFrame:
		s.handleFrame(msg.Payload)
	case EventCamera:
		s.handleCamera(msg.Payload)
	case EventReset:
		s.dispatch(Event{Type: EventReset})
	default:
		// the far side of the boundary evolves independently
		s.log.Warn("dropping unknown sandbox message type",
			zap.String("type", string(msg.Type)))
	}
}

// Close tears down the transport and fails any pending correlated waiters.
func (s *Session) Close() error {
	s.frameSlot.fail(errors.New("session closed"))
	s.cameraSlot.fail(errors.New("session closed"))
	return s.transport.Close()
}

func (s *Session) handleReady() {
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		s.log.Debug("duplicate ready handshake ignored")
		return
	}
	s.state = StateReady
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsReady.Inc()
	}
	s.log.Info("sandbox session ready")
	s.dispatch(Event{Type: EventReady})
}

func (s *Session) handleError(raw []byte) {
	var p ErrorPayload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		s.log.Warn("unparseable error payload", zap.Error(err))
		return
	}
	s.dispatch(Event{Type: EventError, Error: &p})
}

func (s *Session) handleConsole(raw []byte) {
	var p ConsolePayload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		s.log.Warn("unparseable console payload", zap.Error(err))
		return
	}

	args := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		args = append(args, s.sanitizer.Sanitize(stringifyArg(a)))
	}

	line := joinArgs(args)
	if s.filter.Drop(line) {
		if s.metrics != nil {
			s.metrics.ConsoleFiltered.Inc()
		}
		return
	}

	level := p.Level
	switch level {
	case "log", "warn", "error", "info":
	default:
		level = "log"
	}
	s.dispatch(Event{Type: EventConsole, Console: &ConsoleEvent{Level: level, Args: args}})
}

func (s *Session) handleFrame(raw []byte) {
	var p FramePayload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		s.frameSlot.fail(errors.New("unparseable captured-frame payload"))
		return
	}

	frame, err := decodeFrame(p)
	if !s.frameSlot.resolve(frame, err) {
		s.log.Debug("captured-frame event with no pending request")
	}
}

func (s *Session) handleCamera(raw []byte) {
	var p CameraPayload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		s.cameraSlot.fail(errors.New("unparseable camera-state payload"))
		return
	}

	if p.Error != "" {
		s.cameraSlot.fail(errors.New(p.Error))
		return
	}
	if p.Position == nil || p.Target == nil {
		s.cameraSlot.fail(errors.New("camera state missing position or target"))
		return
	}

	cam := scene.Camera{
		Position: r3.Vec{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]},
		Target:   r3.Vec{X: p.Target[0], Y: p.Target[1], Z: p.Target[2]},
		FOV:      p.FOV,
	}
	if !cam.Valid() {
		s.cameraSlot.fail(errors.New("camera state has non-finite components"))
		return
	}
	if !s.cameraSlot.resolve(cam, nil) {
		s.log.Debug("camera-state event with no pending request")
	}
}

func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	handlers := make([]func(Event), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
