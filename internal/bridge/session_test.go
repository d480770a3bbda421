package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

// fakeTransport records everything the session sends.
type fakeTransport struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) lastSent(t *testing.T) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	var msg map[string]interface{}
	if err := sonic.Unmarshal(f.sent[len(f.sent)-1], &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

const testOrigin = "http://localhost:8000"

func newTestSession(transport Transport) *Session {
	return NewSession(transport, Options{
		ExpectedOrigin: testOrigin,
		Filter:         DefaultFilter(),
	})
}

func deliver(s *Session, body map[string]interface{}) {
	data, _ := sonic.Marshal(body)
	s.HandleEnvelope(Envelope{Origin: testOrigin, Data: data})
}

func makeReady(s *Session) {
	deliver(s, map[string]interface{}{"type": "ready"})
}

func TestRequestRunBeforeReady(t *testing.T) {
	s := newTestSession(&fakeTransport{})
	if err := s.RequestRun("code", nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestReadyTransitionOnce(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var readies int
	s.OnEvent(func(ev Event) {
		if ev.Type == EventReady {
			readies++
		}
	})

	makeReady(s)
	makeReady(s)

	if s.State() != StateReady {
		t.Errorf("state = %s, want ready", s.State())
	}
	if readies != 1 {
		t.Errorf("ready dispatched %d times, want 1", readies)
	}
}

func TestRequestRunDeliversMessage(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	makeReady(s)

	mapJSON := []byte(`{"imports":{"lodash":"https://cdn.jsdelivr.net/npm/lodash/+esm"}}`)
	if err := s.RequestRun("const x = 1;", mapJSON); err != nil {
		t.Fatal(err)
	}

	msg := ft.lastSent(t)
	if msg["type"] != "execute" {
		t.Errorf("type = %v, want execute", msg["type"])
	}
	if msg["code"] != "const x = 1;" {
		t.Errorf("code = %v", msg["code"])
	}
	if _, ok := msg["moduleMap"]; !ok {
		t.Error("moduleMap missing")
	}
}

func TestRequestRunWithoutMap(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	makeReady(s)

	if err := s.RequestRun("const x = 1;", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := ft.lastSent(t)["moduleMap"]; ok {
		t.Error("nil module map serialized into message")
	}
}

func TestForeignOriginDropped(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var dispatched int
	s.OnEvent(func(Event) { dispatched++ })

	data, _ := sonic.Marshal(map[string]interface{}{"type": "ready"})
	s.HandleEnvelope(Envelope{Origin: "https://evil.example.com", Data: data})

	if dispatched != 0 {
		t.Error("foreign-origin message reached the dispatch handler")
	}
	if s.State() != StateLoading {
		t.Error("foreign-origin handshake transitioned the session")
	}
}

func TestMalformedMessageDropped(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var dispatched int
	s.OnEvent(func(Event) { dispatched++ })

	s.HandleEnvelope(Envelope{Origin: testOrigin, Data: []byte("{not json")})
	s.HandleEnvelope(Envelope{Origin: testOrigin, Data: []byte(`{"no":"type"}`)})

	if dispatched != 0 {
		t.Error("malformed message reached the dispatch handler")
	}
}

func TestUnknownTypeDropped(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var dispatched int
	s.OnEvent(func(Event) { dispatched++ })

	deliver(s, map[string]interface{}{"type": "telemetry-v2"})
	if dispatched != 0 {
		t.Error("unknown tag reached the dispatch handler")
	}
}

func TestErrorEvent(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var got *ErrorPayload
	s.OnEvent(func(ev Event) {
		if ev.Type == EventError {
			got = ev.Error
		}
	})

	deliver(s, map[string]interface{}{
		"type":    "error",
		"payload": map[string]interface{}{"message": "boom", "lineNumber": 3, "columnNumber": 7},
	})

	if got == nil {
		t.Fatal("error event not dispatched")
	}
	if got.Message != "boom" || got.Line == nil || *got.Line != 3 || got.Column == nil || *got.Column != 7 {
		t.Errorf("payload = %+v", got)
	}
}

func TestConsoleEventStringification(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var got *ConsoleEvent
	s.OnEvent(func(ev Event) {
		if ev.Type == EventConsole {
			got = ev.Console
		}
	})

	deliver(s, map[string]interface{}{
		"type": "console",
		"payload": map[string]interface{}{
			"level": "warn",
			"args": []interface{}{
				"plain string",
				42,
				map[string]interface{}{"__isError__": true, "name": "TypeError", "message": "x is not a function"},
			},
		},
	})

	if got == nil {
		t.Fatal("console event not dispatched")
	}
	if got.Level != "warn" || len(got.Args) != 3 {
		t.Fatalf("event = %+v", got)
	}
	if got.Args[0] != "plain string" {
		t.Errorf("string arg = %q", got.Args[0])
	}
	if got.Args[1] != "42" {
		t.Errorf("number arg = %q", got.Args[1])
	}
	if got.Args[2] != "TypeError: x is not a function" {
		t.Errorf("marked error arg = %q", got.Args[2])
	}
}

func TestConsoleNoiseFiltered(t *testing.T) {
	s := newTestSession(&fakeTransport{})

	var dispatched int
	s.OnEvent(func(ev Event) {
		if ev.Type == EventConsole {
			dispatched++
		}
	})

	deliver(s, map[string]interface{}{
		"type": "console",
		"payload": map[string]interface{}{
			"level": "log",
			"args":  []interface{}{"73% loaded"},
		},
	})
	deliver(s, map[string]interface{}{
		"type": "console",
		"payload": map[string]interface{}{
			"level": "log",
			"args":  []interface{}{"genuine output"},
		},
	})

	if dispatched != 1 {
		t.Errorf("dispatched %d console events, want 1 (noise suppressed)", dispatched)
	}
}

func TestCaptureFrameSuccess(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	makeReady(s)

	// 1x1 transparent PNG
	png, _ := base64.StdEncoding.DecodeString(
		"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")

	done := make(chan struct{})
	var frame *Frame
	var frameErr error
	go func() {
		defer close(done)
		frame, frameErr = s.CaptureFrame(context.Background())
	}()

	waitForSent(t, ft, 1) // capture-frame request went out
	deliver(s, map[string]interface{}{
		"type": "captured-frame",
		"payload": map[string]interface{}{
			"imageData": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
			"width":     1,
			"height":    1,
		},
	})

	<-done
	if frameErr != nil {
		t.Fatal(frameErr)
	}
	if frame.MIME != "image/png" || frame.Width != 1 {
		t.Errorf("frame = %+v", frame)
	}
}

func TestCaptureFrameFailureForwarded(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	makeReady(s)

	done := make(chan error, 1)
	go func() {
		_, err := s.CaptureFrame(context.Background())
		done <- err
	}()

	waitForSent(t, ft, 1)
	deliver(s, map[string]interface{}{
		"type":    "captured-frame",
		"payload": map[string]interface{}{"error": "canvas not ready"},
	})

	if err := <-done; err == nil {
		t.Error("sandbox failure swallowed instead of forwarded")
	}
}

func TestCaptureFrameSuperseded(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	makeReady(s)

	first := make(chan error, 1)
	go func() {
		_, err := s.CaptureFrame(context.Background())
		first <- err
	}()
	waitForSent(t, ft, 1)

	second := make(chan error, 1)
	go func() {
		_, err := s.CaptureFrame(context.Background())
		second <- err
	}()
	waitForSent(t, ft, 2)

	if err := <-first; !errors.Is(err, ErrSuperseded) {
		t.Errorf("superseded waiter got %v, want ErrSuperseded", err)
	}

	deliver(s, map[string]interface{}{
		"type": "captured-frame",
		"payload": map[string]interface{}{
			"imageData": "data:image/png;base64," + onePixelPNG(),
			"width":     1, "height": 1,
		},
	})
	if err := <-second; err != nil {
		t.Errorf("surviving waiter failed: %v", err)
	}
}

func TestCameraState(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	makeReady(s)

	done := make(chan struct{})
	var camErr error
	var fov float64
	go func() {
		defer close(done)
		cam, err := s.CameraState(context.Background())
		camErr = err
		fov = cam.FOV
	}()

	waitForSent(t, ft, 1)
	deliver(s, map[string]interface{}{
		"type": "camera-state",
		"payload": map[string]interface{}{
			"position": []float64{0, 5, 10},
			"target":   []float64{0, 0, 0},
			"fov":      75,
		},
	})

	<-done
	if camErr != nil {
		t.Fatal(camErr)
	}
	if fov != 75 {
		t.Errorf("fov = %v", fov)
	}
}

func TestStringifyArgJSON(t *testing.T) {
	raw := json.RawMessage(`{"a":1,"b":"two"}`)
	got := stringifyArg(raw)
	var back map[string]interface{}
	if err := sonic.Unmarshal([]byte(got), &back); err != nil {
		t.Errorf("object arg did not stay JSON: %q", got)
	}
}

func waitForSent(t *testing.T, ft *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ft.mu.Lock()
		count := len(ft.sent)
		ft.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sent messages", n)
}

func onePixelPNG() string {
	return "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="
}
