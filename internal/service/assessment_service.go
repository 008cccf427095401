package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/assessment"
	"github.com/xxxsen/readiness/internal/events"
	"github.com/xxxsen/readiness/internal/extract"
	"github.com/xxxsen/readiness/internal/filestore"
	"github.com/xxxsen/readiness/internal/ingest"
	"github.com/xxxsen/readiness/internal/metrics"
	"github.com/xxxsen/readiness/internal/model"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
	"github.com/xxxsen/readiness/internal/session"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

const (
	DefaultOrganisationName = "Enterprise Client"

	pctIngestEnd    = 45
	pctScoringEnd   = 80
	pctUseCases     = 82
	pctSynthesis    = 88
	pctRoadmap      = 93
	pctFinalize     = 98
	pctComplete     = 100
	maxContextChars = 4000
)

type Ingestor interface {
	Build(ctx context.Context, sessionID string, inputs []ingest.Input, progress ingest.Progress) (*ingest.Result, error)
}

type DimensionScorer interface {
	Score(ctx context.Context, sessionID string, dim model.Dimension, orgContext string) (*model.DimensionResult, error)
}

type UseCaseFinder interface {
	Identify(ctx context.Context, sessionID string, orgContext string, results []model.DimensionResult) ([]model.UseCase, error)
}

type ExecutiveSynthesizer interface {
	Synthesize(ctx context.Context, in assessment.SynthesisInput) (*assessment.Synthesis, error)
}

type Dependencies struct {
	Sessions    session.Store
	Formats     *extract.Registry
	Ingestor    Ingestor
	Vectors     vectorstore.Store
	Scorer      DimensionScorer
	UseCases    UseCaseFinder
	Synthesizer ExecutiveSynthesizer
	Files       filestore.Store
	Notifier    events.Notifier
	Metrics     *metrics.Collector
	Now         func() time.Time
}

type CreateRequest struct {
	OrganisationName string
	Context          string
	Files            []ingest.Input
}

// StatusView is the pollable snapshot of a session.
type StatusView struct {
	SessionID   string                  `json:"session_id"`
	Status      model.Status            `json:"status"`
	ProgressPct int                     `json:"progress_pct"`
	CurrentStep string                  `json:"current_step"`
	Partial     bool                    `json:"partial"`
	Documents   []model.DocumentInfo    `json:"documents"`
	Errors      []model.StageError      `json:"errors"`
	FailedStep  string                  `json:"failed_step,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Report      *model.AssessmentReport `json:"report,omitempty"`
}

type AssessmentService struct {
	deps   Dependencies
	mu     sync.Mutex
	active map[string]*run
	wg     sync.WaitGroup
}

func NewAssessmentService(deps Dependencies) *AssessmentService {
	if deps.Notifier == nil {
		deps.Notifier = events.NewNoop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &AssessmentService{deps: deps, active: make(map[string]*run)}
}

// CreateSession stores a queued session and starts its pipeline in the
// background. It returns as soon as the session is persisted.
func (s *AssessmentService) CreateSession(ctx context.Context, req CreateRequest) (string, error) {
	org := strings.TrimSpace(req.OrganisationName)
	if org == "" {
		org = DefaultOrganisationName
	}
	if len(req.Files) == 0 {
		return "", fmt.Errorf("%w: at least one document is required", appErr.ErrInvalid)
	}
	if s.deps.Formats != nil {
		for _, f := range req.Files {
			kind := extract.DetectType(f.Name, f.Type)
			if !s.deps.Formats.Supports(kind) {
				return "", fmt.Errorf("%w: unsupported file type: %s", appErr.ErrInvalid, f.Name)
			}
		}
	}
	now := s.deps.Now().Unix()
	sess := &model.Session{
		ID:               uuid.NewString(),
		OrganisationName: org,
		Context:          truncate(strings.TrimSpace(req.Context), maxContextChars),
		Status:           model.StatusQueued,
		CurrentStep:      "Queued",
		Errors:           []model.StageError{},
		Documents:        []model.DocumentInfo{},
		Ctime:            now,
		Mtime:            now,
	}
	if err := s.insert(ctx, sess); err != nil {
		return "", err
	}
	if err := s.start(ctx, sess, req.Files); err != nil {
		return "", err
	}
	return sess.ID, nil
}

func (s *AssessmentService) insert(ctx context.Context, sess *model.Session) error {
	err := s.deps.Sessions.Insert(ctx, sess)
	if !errors.Is(err, appErr.ErrTooMany) {
		return err
	}
	// Full: make room by evicting the oldest finished session.
	ids, lerr := s.deps.Sessions.ListExpired(ctx, s.deps.Now().Unix()+1, 1)
	if lerr != nil || len(ids) == 0 {
		return err
	}
	if eerr := s.Evict(ctx, ids[0]); eerr != nil && !errors.Is(eerr, appErr.ErrNotFound) {
		return err
	}
	return s.deps.Sessions.Insert(ctx, sess)
}

// Start runs the pipeline for a queued session. A session runs at most once:
// a second start, or a start on a session that already left queued, fails
// with ErrConflict.
func (s *AssessmentService) Start(ctx context.Context, id string, files []ingest.Input) error {
	sess, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.start(ctx, sess, files)
}

func (s *AssessmentService) start(ctx context.Context, sess *model.Session, files []ingest.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[sess.ID]; ok {
		return fmt.Errorf("%w: session %s is already running", appErr.ErrConflict, sess.ID)
	}
	if sess.Status != model.StatusQueued {
		return fmt.Errorf("%w: session %s is %s", appErr.ErrConflict, sess.ID, sess.Status)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{svc: s, session: sess.Clone(), cancel: cancel}
	s.active[sess.ID] = r
	s.wg.Add(1)
	s.deps.Metrics.RunStarted()
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.finish(r)
		r.execute(runCtx, files)
	}()
	return nil
}

func (s *AssessmentService) finish(r *run) {
	s.mu.Lock()
	delete(s.active, r.session.ID)
	s.mu.Unlock()
	r.mu.Lock()
	status := r.session.Status
	r.mu.Unlock()
	s.deps.Metrics.RunFinished(string(status))
}

func (s *AssessmentService) lookup(id string) *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[id]
}

func (s *AssessmentService) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	sess, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &StatusView{
		SessionID:   sess.ID,
		Status:      sess.Status,
		ProgressPct: sess.ProgressPct,
		CurrentStep: sess.CurrentStep,
		Partial:     sess.Partial,
		Documents:   sess.Documents,
		Errors:      sess.Errors,
		FailedStep:  sess.FailedStep,
	}
	if sess.Status == model.StatusError && len(sess.Errors) > 0 {
		view.Error = sess.Errors[len(sess.Errors)-1].Message
	}
	if sess.Status == model.StatusComplete {
		view.Report = sess.Report
	}
	return view, nil
}

// GetReport returns the assembled report of a complete session.
func (s *AssessmentService) GetReport(ctx context.Context, id string) (*model.AssessmentReport, error) {
	sess, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusComplete || sess.Report == nil {
		return nil, fmt.Errorf("%w: session %s is %s", appErr.ErrNotReady, id, sess.Status)
	}
	return sess.Report, nil
}

// Cancel moves a running or queued session to cancelled. In-flight calls
// may still finish but nothing they produce is written back.
func (s *AssessmentService) Cancel(ctx context.Context, id string) error {
	if r := s.lookup(id); r != nil {
		if r.markCancelled(ctx) {
			return nil
		}
		return fmt.Errorf("%w: session %s already finished", appErr.ErrConflict, id)
	}
	sess, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return fmt.Errorf("%w: session %s is %s", appErr.ErrConflict, id, sess.Status)
	}
	sess.Status = model.StatusCancelled
	sess.CurrentStep = "Cancelled"
	sess.Mtime = s.deps.Now().Unix()
	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		return err
	}
	s.publish(ctx, sess)
	return nil
}

// Evict removes a session with its vector collection and archived files,
// cancelling it first when it is still running.
func (s *AssessmentService) Evict(ctx context.Context, id string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", id))
	if r := s.lookup(id); r != nil {
		r.markEvicted(ctx)
	}
	if err := s.deps.Sessions.Delete(ctx, id); err != nil {
		return err
	}
	if s.deps.Vectors != nil {
		if err := s.deps.Vectors.Drop(ctx, id); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			logger.Warn("drop vector collection failed", zap.Error(err))
		}
	}
	if s.deps.Files != nil {
		if err := s.deps.Files.DeletePrefix(ctx, id); err != nil {
			logger.Warn("delete archived files failed", zap.Error(err))
		}
	}
	logger.Info("session evicted")
	return nil
}

// EvictExpired evicts finished sessions untouched for longer than retention.
func (s *AssessmentService) EvictExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.deps.Now().Add(-retention).Unix()
	ids, err := s.deps.Sessions.ListExpired(ctx, cutoff, 0)
	if err != nil {
		return 0, err
	}
	evicted := 0
	for _, id := range ids {
		if s.lookup(id) != nil {
			continue
		}
		if err := s.Evict(ctx, id); err != nil {
			if errors.Is(err, appErr.ErrNotFound) {
				continue
			}
			return evicted, err
		}
		evicted++
	}
	return evicted, nil
}

// Wait blocks until every running pipeline has returned.
func (s *AssessmentService) Wait() {
	s.wg.Wait()
}

func (s *AssessmentService) publish(ctx context.Context, sess *model.Session) {
	ev := events.Event{
		SessionID:   sess.ID,
		Status:      sess.Status,
		ProgressPct: sess.ProgressPct,
		CurrentStep: sess.CurrentStep,
		Partial:     sess.Partial,
		Time:        sess.Mtime,
	}
	if sess.Report != nil {
		ev.ReportID = sess.Report.ReportID
	}
	if sess.Status == model.StatusError && len(sess.Errors) > 0 {
		ev.Error = sess.Errors[len(sess.Errors)-1].Message
	}
	if err := s.deps.Notifier.Publish(ctx, ev); err != nil {
		logutil.GetLogger(ctx).Warn("publish session event failed",
			zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func newReportID() string {
	return "RPT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
