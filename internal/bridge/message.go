package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// EventType tags a message crossing the isolation boundary.
type EventType string

const (
	EventReady   EventType = "ready"
	EventError   EventType = "error"
	EventConsole EventType = "console"
	EventFrame   EventType = "captured-frame"
	EventCamera  EventType = "camera-state"
	EventReset   EventType = "reset"
)

// Outbound message types, host to sandbox.
const (
	msgExecute      = "execute"
	msgResize       = "resize"
	msgCaptureFrame = "capture-frame"
	msgCameraState  = "camera-state"
)

// Envelope is one inbound message stamped with the origin it arrived from.
// The transport stamps it; the session verifies it.
type Envelope struct {
	Origin string
	Data   []byte
}

// message is the wire shape of an inbound sandbox message.
type message struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload relays an in-sandbox runtime error. Native error objects do
// not survive the boundary, so the sandbox sends the pieces.
type ErrorPayload struct {
	Message string `json:"message"`
	Line    *int   `json:"lineNumber,omitempty"`
	Column  *int   `json:"columnNumber,omitempty"`
}

// ConsolePayload carries one console call: a severity level and the raw
// argument list, each argument independently serialized by the sandbox.
type ConsolePayload struct {
	Level string            `json:"level"`
	Args  []json.RawMessage `json:"args"`
}

// FramePayload carries a captured canvas frame or a failure string.
type FramePayload struct {
	ImageData string `json:"imageData,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CameraPayload carries a camera snapshot or a failure string.
type CameraPayload struct {
	Position *[3]float64 `json:"position,omitempty"`
	Target   *[3]float64 `json:"target,omitempty"`
	FOV      float64     `json:"fov,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// ConsoleEvent is a console payload after per-argument stringification and
// sanitization, ready for relay to the editor.
type ConsoleEvent struct {
	Level string   `json:"level"`
	Args  []string `json:"args"`
}

// Event is one dispatched inbound event. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type    EventType
	Error   *ErrorPayload
	Console *ConsoleEvent
}

type runMessage struct {
	Type      string          `json:"type"`
	Code      string          `json:"code"`
	ModuleMap json.RawMessage `json:"moduleMap,omitempty"`
}

type controlMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// errorMarker flags a serialized object as error-like so its formatting can
// be reconstructed on this side of the boundary.
const errorMarker = "__isError__"

// stringifyArg renders one serialized console argument for display. Plain
// strings keep their value, marked error objects regain "Name: message"
// shape, everything else stays compact JSON.
func stringifyArg(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "undefined"
	}

	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj map[string]interface{}
	if err := sonic.Unmarshal(raw, &obj); err == nil {
		if marked, ok := obj[errorMarker].(bool); ok && marked {
			name, _ := obj["name"].(string)
			msg, _ := obj["message"].(string)
			if name == "" {
				name = "Error"
			}
			out := fmt.Sprintf("%s: %s", name, msg)
			if stack, ok := obj["stack"].(string); ok && stack != "" {
				out += "\n" + stack
			}
			return out
		}
	}

	return strings.TrimSpace(string(raw))
}
