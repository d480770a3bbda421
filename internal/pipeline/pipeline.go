package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/jweese001/threejs-ide/internal/analyzer"
	"github.com/jweese001/threejs-ide/internal/bridge"
	"github.com/jweese001/threejs-ide/internal/importmap"
	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/monitoring"
	"github.com/jweese001/threejs-ide/internal/resolver"
)

// Report is the synchronous outcome of one run trigger. Delivery of
// sandbox events stays asynchronous.
type Report struct {
	Imports   int      `json:"imports"`
	Warnings  []string `json:"warnings,omitempty"`
	MapErrors []string `json:"mapErrors,omitempty"`
	Delivered bool     `json:"delivered"`
	Pending   bool     `json:"pending"`
	Diff      int      `json:"userEntries"`
}

// pendingRun is the single parked run awaiting sandbox readiness.
type pendingRun struct {
	source    string
	moduleMap []byte
}

// Service drives the analyze-resolve-build-deliver loop.
type Service struct {
	resolver *resolver.Resolver
	session  *bridge.Session
	metrics  *monitoring.Metrics
	log      *logging.Logger

	mu      sync.Mutex
	pending *pendingRun
}

// New wires a service to a session and registers its lifecycle handlers:
// flushing the pending run on ready, re-running the active source on reset.
func New(res *resolver.Resolver, session *bridge.Session, metrics *monitoring.Metrics, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault()
	}
	s := &Service{
		resolver: res,
		session:  session,
		metrics:  metrics,
		log:      log.Named("pipeline"),
	}

	session.OnEvent(func(ev bridge.Event) {
		switch ev.Type {
		case bridge.EventReady:
			s.flushPending()
		case bridge.EventReset:
			s.rerunActive()
		}
	})

	return s
}

// Run executes the pipeline for one source submission.
func (s *Service) Run(ctx context.Context, source string) (*Report, error) {
	if s.metrics != nil {
		s.metrics.RunsTotal.Inc()
	}

	text, err := normalizeText(source)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	refs := analyzer.Analyze(text)
	report.Imports = len(refs)

	var moduleMap []byte
	if len(refs) > 0 {
		resolved := s.resolver.Resolve(ctx, refs)
		if s.metrics != nil {
			for _, r := range resolved {
				s.metrics.RecordResolution(r.Status.String(), string(r.CDN))
			}
		}

		report.Warnings = resolver.CheckConflicts(resolved)
		if s.metrics != nil && len(report.Warnings) > 0 {
			s.metrics.ConflictWarnings.Add(float64(len(report.Warnings)))
		}

		m := importmap.Build(resolved, true, s.log)
		if errs := importmap.Validate(m); len(errs) > 0 {
			report.MapErrors = errs
			if s.metrics != nil {
				s.metrics.MapValidationErrors.Inc()
			}
			// never inject a malformed map; the failure surfaces here
			// instead of deep inside the sandbox's loader
			return report, nil
		}
		report.Diff = len(importmap.DiffBaseline(m))

		moduleMap, err = m.MarshalJSON()
		if err != nil {
			return nil, err
		}
	}

	err = s.session.RequestRun(text, moduleMap)
	switch {
	case err == nil:
		report.Delivered = true
	case errors.Is(err, bridge.ErrNotReady):
		s.park(text, moduleMap)
		report.Pending = true
	default:
		return report, err
	}

	return report, nil
}

// park replaces the pending slot; only the newest run matters.
func (s *Service) park(source string, moduleMap []byte) {
	s.mu.Lock()
	replaced := s.pending != nil
	s.pending = &pendingRun{source: source, moduleMap: moduleMap}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RunsPending.Set(1)
	}
	if replaced {
		s.log.Debug("replaced stale pending run")
	}
}

func (s *Service) flushPending() {
	s.mu.Lock()
	run := s.pending
	s.pending = nil
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RunsPending.Set(0)
	}
	if run == nil {
		return
	}

	if err := s.session.RequestRun(run.source, run.moduleMap); err != nil {
		s.log.Warn("flushing pending run failed", zap.Error(err))
	}
}

// rerunActive re-delivers the active source when the sandboxed content asks
// to be re-run.
func (s *Service) rerunActive() {
	source := s.session.ActiveSource()
	if source == "" {
		return
	}
	if _, err := s.Run(context.Background(), source); err != nil {
		s.log.Warn("re-run on reset failed", zap.Error(err))
	}
}

// normalizeText converts a submission to UTF-8. Editors submit UTF-8;
// pasted files sometimes are not.
func normalizeText(source string) (string, error) {
	if utf8.ValidString(source) {
		return source, nil
	}

	det := chardet.NewTextDetector()
	best, err := det.DetectBest([]byte(source))
	if err != nil {
		return "", errors.New("source text is not valid UTF-8 and its charset could not be detected")
	}

	reader, err := charset.NewReaderLabel(best.Charset, bytes.NewReader([]byte(source)))
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
