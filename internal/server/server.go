package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jweese001/threejs-ide/internal/bridge"
	"github.com/jweese001/threejs-ide/internal/config"
	"github.com/jweese001/threejs-ide/internal/importmap"
	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/middleware"
	"github.com/jweese001/threejs-ide/internal/monitoring"
	"github.com/jweese001/threejs-ide/internal/pipeline"
	"github.com/jweese001/threejs-ide/internal/resolver"
	"github.com/jweese001/threejs-ide/internal/sandbox"
	"github.com/jweese001/threejs-ide/internal/web"
)

// Server is the playground host.
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	resolver *resolver.Resolver
	manifest *web.Manifest
	page     []byte

	mu       sync.Mutex
	session  *bridge.Session
	pipeline *pipeline.Service
	editors  *editorHub
}

// NewServer assembles the host from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	metrics := monitoring.New()

	resolverOpts := resolver.Options{
		PrimaryCDN: resolver.CDN(cfg.Resolver.PrimaryCDN),
		CacheSize:  cfg.Resolver.CacheSize,
	}
	if cfg.Resolver.RegistryLookups {
		resolverOpts.Registry = resolver.NewRegistry(resolver.DefaultRegistryConfig())
		logger.Info("CDN registry lookups enabled")
	}
	res := resolver.New(resolverOpts, logger)

	manifest, err := web.BuildManifest(cfg.Server.AssetsDir)
	if err != nil {
		logger.Warn("asset manifest unavailable", zap.Error(err))
		manifest = &web.Manifest{}
	} else {
		logger.Info("asset manifest built", zap.Int("assets", manifest.Len()))
	}

	page, err := web.InjectImportMap(web.SandboxPage(), importmap.Baseline())
	if err != nil {
		return nil, fmt.Errorf("prepare sandbox page: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	s := &Server{
		cfg:      cfg,
		router:   router,
		logger:   logger,
		metrics:  metrics,
		resolver: res,
		manifest: manifest,
		page:     page,
		editors:  newEditorHub(logger),
	}

	if cfg.Sandbox.Headless {
		s.bindHeadless()
	}

	s.setupRoutes()
	return s, nil
}

// bindHeadless attaches an in-process runtime instead of waiting for an
// iframe to connect.
func (s *Server) bindHeadless() {
	runtime := sandbox.New(sandbox.Config{
		Origin:  s.cfg.Sandbox.ExpectedOrigin,
		Timeout: s.cfg.Sandbox.ExecTimeout,
	}, s.logger)

	session := s.bindTransport(runtime, s.cfg.Sandbox.ExpectedOrigin)
	go func() {
		for env := range runtime.Events() {
			session.HandleEnvelope(env)
		}
	}()
	s.logger.Info("headless sandbox attached")
}

// bindTransport replaces the live session with one over the given
// transport. The previous session, if any, is closed.
func (s *Server) bindTransport(t bridge.Transport, origin string) *bridge.Session {
	filter := bridge.DefaultFilter()
	if len(s.cfg.Bridge.NoisePatterns) > 0 {
		filter = bridge.NewFilter(s.cfg.Bridge.NoisePatterns)
	}

	session := bridge.NewSession(t, bridge.Options{
		ExpectedOrigin: origin,
		Filter:         filter,
		Metrics:        s.metrics,
		Logger:         s.logger,
	})
	svc := pipeline.New(s.resolver, session, s.metrics, s.logger)
	session.OnEvent(s.editors.broadcast)

	s.mu.Lock()
	old := s.session
	s.session, s.pipeline = session, svc
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return session
}

// current returns the live session and pipeline, or nil before any sandbox
// has connected.
func (s *Server) current() (*bridge.Session, *pipeline.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.pipeline
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/sandbox", s.handleSandboxPage)
	staticHandler := web.StaticHandler(s.manifest, s.cfg.Server.AssetsDir)
	s.router.GET("/assets/*filepath", gin.WrapH(http.StripPrefix("/assets", staticHandler)))

	api := s.router.Group("/api")
	if s.cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.cfg.RateLimit.RequestsPerSecond,
			Burst:             s.cfg.RateLimit.Burst,
		}))
	}
	api.POST("/run", s.handleRun)
	api.GET("/capture/frame", s.handleCaptureFrame)
	api.GET("/capture/camera", s.handleCameraState)

	s.router.GET("/ws/sandbox", s.handleSandboxSocket)
	s.router.GET("/ws/editor", s.handleEditorSocket)
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.logger.Info("starting playground host", zap.String("addr", addr))
	return s.router.Run(addr)
}
