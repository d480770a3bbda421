package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jweese001/threejs-ide/internal/scene"
)

const captureTimeout = 10 * time.Second

type runRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	session, _ := s.current()
	state := "none"
	if session != nil {
		state = session.State().String()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sandbox": state,
	})
}

func (s *Server) handleSandboxPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
}

// handleRun accepts an editor submission and runs the pipeline. Warnings
// and map validation problems come back synchronously; sandbox events stay
// asynchronous on the editor socket.
func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code field"})
		return
	}

	_, svc := s.current()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sandbox attached"})
		return
	}

	report, err := svc.Run(c.Request.Context(), req.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleCaptureFrame returns the sandbox's current canvas as image bytes.
// A sandbox-reported failure is a 502: the host is fine, the far side
// could not produce a frame.
func (s *Server) handleCaptureFrame(c *gin.Context) {
	session, _ := s.current()
	if session == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sandbox attached"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), captureTimeout)
	defer cancel()

	frame, err := session.CaptureFrame(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Header("X-Frame-Width", strconv.Itoa(frame.Width))
	c.Header("X-Frame-Height", strconv.Itoa(frame.Height))
	c.Data(http.StatusOK, frame.MIME, frame.Data)
}

type cameraResponse struct {
	scene.Camera
	LookDir  [3]float64 `json:"lookDir"`
	Distance float64    `json:"targetDistance"`
}

func (s *Server) handleCameraState(c *gin.Context) {
	session, _ := s.current()
	if session == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sandbox attached"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), captureTimeout)
	defer cancel()

	cam, err := session.CameraState(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	dir := cam.LookDir()
	c.JSON(http.StatusOK, cameraResponse{
		Camera:   cam,
		LookDir:  [3]float64{dir.X, dir.Y, dir.Z},
		Distance: cam.TargetDistance(),
	})
}
