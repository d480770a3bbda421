package sandbox

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/jweese001/threejs-ide/internal/bridge"
	"github.com/jweese001/threejs-ide/internal/logging"
)

// Config tunes a headless runtime.
type Config struct {
	// Origin is stamped on every emitted envelope.
	Origin string
	// Timeout bounds one evaluation before the VM is interrupted.
	Timeout time.Duration
	// EventBuffer bounds the outbound event channel.
	EventBuffer int
}

// DefaultConfig returns conservative execution limits.
func DefaultConfig() Config {
	return Config{
		Origin:      "sandbox://headless",
		Timeout:     5 * time.Second,
		EventBuffer: 256,
	}
}

type inboundMessage struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
	ID   string `json:"id,omitempty"`
}

// cameraState is whatever the sketch last reported through __setCamera__.
type cameraState struct {
	Position [3]float64
	Target   [3]float64
	FOV      float64
	set      bool
}

// frameState is whatever the sketch last reported through __setFrame__.
type frameState struct {
	DataURL string
	Width   int
	Height  int
	set     bool
}

// Runtime is a headless sandbox instance. It satisfies bridge.Transport on
// the host-facing side and emits origin-stamped envelopes on Events.
type Runtime struct {
	cfg Config
	log *logging.Logger

	inbox  chan []byte
	events chan bridge.Envelope
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	modules map[string]string
	camera  cameraState
	frame   frameState
}

// New creates a runtime and starts its goroutine. The ready handshake is
// emitted once the loop is up.
func New(cfg Config, log *logging.Logger) *Runtime {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.Origin == "" {
		cfg.Origin = DefaultConfig().Origin
	}
	if log == nil {
		log = logging.NewDefault()
	}

	r := &Runtime{
		cfg:     cfg,
		log:     log.Named("sandbox"),
		inbox:   make(chan []byte, 16),
		events:  make(chan bridge.Envelope, cfg.EventBuffer),
		closed:  make(chan struct{}),
		modules: make(map[string]string),
	}
	go r.loop()
	return r
}

// RegisterModule installs a module source under a specifier. Lowered
// imports resolve against this table; an unregistered specifier yields a
// structured error event at run time.
func (r *Runtime) RegisterModule(specifier, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[specifier] = source
}

// Send delivers a host message. Satisfies bridge.Transport.
func (r *Runtime) Send(data []byte) error {
	select {
	case <-r.closed:
		return errors.New("sandbox runtime closed")
	case r.inbox <- data:
		return nil
	}
}

// Events is the stream of origin-stamped envelopes for the bridge.
func (r *Runtime) Events() <-chan bridge.Envelope {
	return r.events
}

// Close stops the runtime. Satisfies bridge.Transport.
func (r *Runtime) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *Runtime) loop() {
	r.emit(bridge.EventReady, nil)

	for {
		select {
		case <-r.closed:
			return
		case data := <-r.inbox:
			r.handle(data)
		}
	}
}

func (r *Runtime) handle(data []byte) {
	var msg inboundMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		r.log.Warn("dropping malformed host message", zap.Error(err))
		return
	}

	switch msg.Type {
	case "execute":
		r.execute(msg.Code)
	case "resize":
		// nothing to re-measure headlessly
	case "capture-frame":
		r.reportFrame()
	case "camera-state":
		r.reportCamera()
	default:
		r.log.Warn("dropping unknown host message type", zap.String("type", msg.Type))
	}
}

// execute evaluates sketch source in a fresh hardened VM. State from the
// previous evaluation never survives into the next one.
func (r *Runtime) execute(source string) {
	r.mu.Lock()
	r.camera = cameraState{}
	r.frame = frameState{}
	r.mu.Unlock()

	vm := goja.New()
	if err := r.setupGlobals(vm); err != nil {
		r.emitError(fmt.Sprintf("sandbox setup failed: %v", err), nil, nil)
		return
	}

	lowered := lowerImports(source)

	timer := time.AfterFunc(r.cfg.Timeout, func() {
		vm.Interrupt("execution timeout exceeded")
	})
	defer timer.Stop()

	if _, err := vm.RunString(lowered); err != nil {
		msg, line, col := describeError(err)
		r.emitError(msg, line, col)
	}
}

// setupGlobals hardens the VM and installs the module registry and the
// introspection hooks sketches report through.
func (r *Runtime) setupGlobals(vm *goja.Runtime) error {
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	console := vm.NewObject()
	for _, level := range []string{"log", "warn", "error", "info"} {
		if err := console.Set(level, r.makeConsoleFunc(vm, level)); err != nil {
			return err
		}
	}
	vm.Set("console", console)

	// inert timers
	vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	vm.Set("setInterval", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	vm.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })

	loaded := make(map[string]goja.Value)
	vm.Set(requireFn, func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		if v, ok := loaded[spec]; ok {
			return v
		}

		r.mu.Lock()
		src, ok := r.modules[spec]
		r.mu.Unlock()
		if !ok {
			panic(vm.NewGoError(fmt.Errorf("module not registered: %s", spec)))
		}

		wrapped := "(function(module, exports){\n" + src + "\nreturn module.exports;})"
		fnVal, err := vm.RunString(wrapped)
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("module %s failed to load: %w", spec, err)))
		}
		fn, ok := goja.AssertFunction(fnVal)
		if !ok {
			panic(vm.NewGoError(fmt.Errorf("module %s did not wrap as a function", spec)))
		}

		moduleObj := vm.NewObject()
		exportsObj := vm.NewObject()
		moduleObj.Set("exports", exportsObj)
		result, err := fn(goja.Undefined(), moduleObj, exportsObj)
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("module %s threw during load: %w", spec, err)))
		}
		loaded[spec] = result
		return result
	})

	vm.Set("__setCamera__", func(px, py, pz, tx, ty, tz, fov float64) {
		r.mu.Lock()
		r.camera = cameraState{
			Position: [3]float64{px, py, pz},
			Target:   [3]float64{tx, ty, tz},
			FOV:      fov,
			set:      true,
		}
		r.mu.Unlock()
	})

	vm.Set("__setFrame__", func(dataURL string, width, height int) {
		r.mu.Lock()
		r.frame = frameState{DataURL: dataURL, Width: width, Height: height, set: true}
		r.mu.Unlock()
	})

	return nil
}

// makeConsoleFunc emits console events live, each argument independently
// serialized. Error values carry the marker the bridge reconstructs
// formatting from, since they cannot cross as live error objects.
func (r *Runtime) makeConsoleFunc(vm *goja.Runtime, level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			args = append(args, serializeArg(vm, arg))
		}
		r.emit(bridge.EventConsole, map[string]interface{}{
			"level": level,
			"args":  args,
		})
		return goja.Undefined()
	}
}

func serializeArg(vm *goja.Runtime, arg goja.Value) interface{} {
	if arg == nil || goja.IsUndefined(arg) {
		return "undefined"
	}
	if goja.IsNull(arg) {
		return "null"
	}

	if obj, ok := arg.(*goja.Object); ok {
		// error-ish objects get the marker so the host can restore their shape
		name := obj.Get("name")
		msg := obj.Get("message")
		stack := obj.Get("stack")
		if msg != nil && !goja.IsUndefined(msg) && stack != nil && !goja.IsUndefined(stack) {
			out := map[string]interface{}{
				"__isError__": true,
				"message":     msg.String(),
			}
			if name != nil && !goja.IsUndefined(name) {
				out["name"] = name.String()
			}
			out["stack"] = stack.String()
			return out
		}
	}

	return arg.Export()
}

func (r *Runtime) reportCamera() {
	r.mu.Lock()
	cam := r.camera
	r.mu.Unlock()

	if !cam.set {
		r.emit(bridge.EventCamera, map[string]interface{}{"error": "camera not available"})
		return
	}
	r.emit(bridge.EventCamera, map[string]interface{}{
		"position": cam.Position,
		"target":   cam.Target,
		"fov":      cam.FOV,
	})
}

func (r *Runtime) reportFrame() {
	r.mu.Lock()
	frame := r.frame
	r.mu.Unlock()

	if !frame.set {
		r.emit(bridge.EventFrame, map[string]interface{}{"error": "no frame available"})
		return
	}
	r.emit(bridge.EventFrame, map[string]interface{}{
		"imageData": frame.DataURL,
		"width":     frame.Width,
		"height":    frame.Height,
	})
}

func (r *Runtime) emitError(message string, line, col *int) {
	payload := map[string]interface{}{"message": message}
	if line != nil {
		payload["lineNumber"] = *line
	}
	if col != nil {
		payload["columnNumber"] = *col
	}
	r.emit(bridge.EventError, payload)
}

func (r *Runtime) emit(eventType bridge.EventType, payload interface{}) {
	body := map[string]interface{}{"type": string(eventType)}
	if payload != nil {
		body["payload"] = payload
	}
	data, err := sonic.Marshal(body)
	if err != nil {
		r.log.Error("marshal sandbox event", zap.Error(err))
		return
	}

	select {
	case r.events <- bridge.Envelope{Origin: r.cfg.Origin, Data: data}:
	case <-r.closed:
	default:
		r.log.Warn("event buffer full, dropping event",
			zap.String("type", string(eventType)))
	}
}

var rePosition = regexp.MustCompile(`(\d+):(\d+)`)

// describeError flattens a goja error into message plus optional line and
// column parsed from the exception text.
func describeError(err error) (string, *int, *int) {
	msg := err.Error()

	var exc *goja.Exception
	if errors.As(err, &exc) {
		msg = exc.String()
	}

	if m := rePosition.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		return msg, &line, &col
	}
	return msg, nil, nil
}
