package server

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jweese001/threejs-ide/internal/bridge"
	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/ws"
)

// handleSandboxSocket adopts a sandbox iframe connection as the live
// transport. The handshake origin stamps every envelope; the bridge
// re-validates it per message.
func (s *Server) handleSandboxSocket(c *gin.Context) {
	upgrader := ws.NewUpgrader(s.cfg.Sandbox.AllowedOrigins, s.logger)
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("sandbox upgrade failed", zap.Error(err))
		return
	}

	origin := c.Request.Header.Get("Origin")
	conn := ws.NewConn(raw, origin, s.logger)
	session := s.bindTransport(conn, s.cfg.Sandbox.ExpectedOrigin)

	s.metrics.WSConnections.WithLabelValues("sandbox").Inc()
	defer s.metrics.WSConnections.WithLabelValues("sandbox").Dec()

	conn.ReadLoop(session.HandleEnvelope)
}

// editorMessage is a run submission arriving over the editor socket.
type editorMessage struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
}

// handleEditorSocket joins an editor to the broadcast set. Editors receive
// filtered bridge events and may submit runs over the same socket.
func (s *Server) handleEditorSocket(c *gin.Context) {
	upgrader := ws.NewUpgrader(s.cfg.Sandbox.AllowedOrigins, s.logger)
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("editor upgrade failed", zap.Error(err))
		return
	}

	conn := ws.NewConn(raw, c.Request.Header.Get("Origin"), s.logger)
	s.editors.add(conn)
	defer s.editors.remove(conn)

	s.metrics.WSConnections.WithLabelValues("editor").Inc()
	defer s.metrics.WSConnections.WithLabelValues("editor").Dec()

	conn.ReadLoop(func(env bridge.Envelope) {
		var msg editorMessage
		if err := sonic.Unmarshal(env.Data, &msg); err != nil || msg.Type != "run" {
			return
		}
		_, svc := s.current()
		if svc == nil {
			return
		}
		if report, err := svc.Run(context.Background(), msg.Code); err == nil {
			if data, err := sonic.Marshal(map[string]interface{}{
				"type":    "run-report",
				"payload": report,
			}); err == nil {
				conn.Send(data)
			}
		}
	})
}

// editorHub is the broadcast set of connected editors.
type editorHub struct {
	mu    sync.Mutex
	conns map[*ws.Conn]struct{}
	log   *logging.Logger
}

func newEditorHub(log *logging.Logger) *editorHub {
	return &editorHub{
		conns: make(map[*ws.Conn]struct{}),
		log:   log.Named("editors"),
	}
}

func (h *editorHub) add(c *ws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *editorHub) remove(c *ws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// broadcast relays one bridge event to every connected editor.
func (h *editorHub) broadcast(ev bridge.Event) {
	body := map[string]interface{}{"type": string(ev.Type)}
	switch ev.Type {
	case bridge.EventError:
		body["payload"] = ev.Error
	case bridge.EventConsole:
		body["payload"] = ev.Console
	}

	data, err := sonic.Marshal(body)
	if err != nil {
		h.log.Error("marshal editor event", zap.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*ws.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(data); err != nil {
			h.log.Debug("editor send failed", zap.Error(err))
		}
	}
}
