package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/assessment"
	"github.com/xxxsen/readiness/internal/ingest"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/report"
	"github.com/xxxsen/readiness/internal/retrieval"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

const (
	noteUseCasesFailed  = "Use case identification did not complete; the roadmap carries no use case specific initiatives."
	noteSynthesisFailed = "The executive summary was derived from the dimension scores without the language model."
)

// run owns the working copy of one session while its pipeline executes.
// Every write goes through update so the stored snapshot is always whole.
type run struct {
	svc       *AssessmentService
	mu        sync.Mutex
	session   *model.Session
	cancelled bool
	evicted   bool
	cancel    context.CancelFunc
}

type dimensionSlot struct {
	dim    model.Dimension
	result *model.DimensionResult
	err    error
}

func advance(s *model.Session, pct int, step string) {
	if pct > s.ProgressPct {
		s.ProgressPct = pct
	}
	if step != "" {
		s.CurrentStep = step
	}
}

// update applies fn to the session and persists it. It reports false, and
// leaves the session untouched, once the run was cancelled or finished.
func (r *run) update(ctx context.Context, fn func(s *model.Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.session.Status.Terminal() {
		return false
	}
	prev := r.session.Status
	fn(r.session)
	if r.session.Status != model.StatusComplete && r.session.ProgressPct >= pctComplete {
		r.session.ProgressPct = pctComplete - 1
	}
	r.session.Mtime = r.svc.deps.Now().Unix()
	r.persist(ctx, prev != r.session.Status)
	return true
}

func (r *run) persist(ctx context.Context, statusChanged bool) {
	ctx = context.WithoutCancel(ctx)
	if err := r.svc.deps.Sessions.Save(ctx, r.session); err != nil {
		logutil.GetLogger(ctx).Error("save session failed",
			zap.String("session_id", r.session.ID), zap.Error(err))
	}
	if statusChanged {
		r.svc.publish(ctx, r.session)
	}
}

func (r *run) markCancelled(ctx context.Context) bool {
	r.mu.Lock()
	if r.cancelled || r.session.Status.Terminal() {
		r.mu.Unlock()
		return false
	}
	r.cancelled = true
	r.session.Status = model.StatusCancelled
	r.session.CurrentStep = "Cancelled"
	r.session.Mtime = r.svc.deps.Now().Unix()
	r.persist(ctx, true)
	r.mu.Unlock()
	r.cancel()
	logutil.GetLogger(ctx).Info("session cancelled", zap.String("session_id", r.session.ID))
	return true
}

// markEvicted cancels the run and flags its leftovers for removal once the
// pipeline goroutine returns.
func (r *run) markEvicted(ctx context.Context) {
	r.mu.Lock()
	r.evicted = true
	r.mu.Unlock()
	r.markCancelled(ctx)
}

// purgeIfEvicted removes vectors and archived files written by stages that
// were still in flight when the session was evicted.
func (r *run) purgeIfEvicted(ctx context.Context) {
	r.mu.Lock()
	evicted := r.evicted
	r.mu.Unlock()
	if !evicted {
		return
	}
	ctx = context.WithoutCancel(ctx)
	deps := r.svc.deps
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", r.session.ID))
	if deps.Vectors != nil {
		if err := deps.Vectors.Drop(ctx, r.session.ID); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			logger.Warn("drop vector collection after eviction failed", zap.Error(err))
		}
	}
	if deps.Files != nil {
		if err := deps.Files.DeletePrefix(ctx, r.session.ID); err != nil {
			logger.Warn("delete archived files after eviction failed", zap.Error(err))
		}
	}
}

func (r *run) stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *run) snapshot() *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Clone()
}

func (r *run) fail(ctx context.Context, stage model.Status, kind model.ErrorKind, err error) {
	logutil.GetLogger(ctx).Error("assessment failed",
		zap.String("session_id", r.session.ID),
		zap.String("stage", string(stage)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	r.update(ctx, func(s *model.Session) {
		s.Errors = append(s.Errors, model.StageError{
			Stage:   stage,
			Kind:    kind,
			Message: err.Error(),
			Ctime:   r.svc.deps.Now().Unix(),
		})
		s.FailedStep = string(stage)
		s.Status = model.StatusError
		s.CurrentStep = fmt.Sprintf("Failed during %s", stage)
	})
}

// recordSoft notes a non fatal stage failure and marks the session partial.
func (r *run) recordSoft(ctx context.Context, stage model.Status, kind model.ErrorKind, dim model.Dimension, err error) {
	r.update(ctx, func(s *model.Session) {
		s.Errors = append(s.Errors, model.StageError{
			Stage:     stage,
			Kind:      kind,
			Dimension: dim,
			Message:   err.Error(),
			Ctime:     r.svc.deps.Now().Unix(),
		})
		s.Partial = true
	})
}

func (r *run) execute(ctx context.Context, files []ingest.Input) {
	deps := r.svc.deps
	sess := r.snapshot()
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sess.ID))
	logger.Info("assessment started", zap.Int("documents", len(files)))
	defer r.purgeIfEvicted(ctx)
	r.archiveUploads(ctx, files)

	docs, ok := r.ingest(ctx, files)
	if !ok {
		return
	}
	results, ok := r.score(ctx, sess)
	if !ok {
		return
	}

	start := time.Now()
	var notes []string
	ordered := assessment.OrderedResults(results)
	if !r.update(ctx, func(s *model.Session) { advance(s, pctUseCases, "Identifying AI use case candidates") }) {
		return
	}
	useCases, err := deps.UseCases.Identify(ctx, sess.ID, sess.Context, ordered)
	deps.Metrics.GeneratorCall("use_cases", err)
	if r.stopped() {
		return
	}
	if err != nil {
		logger.Warn("use case identification failed", zap.Error(err))
		r.recordSoft(ctx, model.StatusSynthesizing, model.ErrorKindSynthesis, "", err)
		notes = append(notes, noteUseCasesFailed)
		useCases = nil
	}

	if !r.update(ctx, func(s *model.Session) { advance(s, pctSynthesis, "Synthesising executive summary") }) {
		return
	}
	score, tier, _ := assessment.Overall(results)
	synIn := assessment.SynthesisInput{
		OrganisationName: sess.OrganisationName,
		OverallScore:     score,
		OverallMaturity:  tier,
		Results:          ordered,
	}
	syn, err := deps.Synthesizer.Synthesize(ctx, synIn)
	deps.Metrics.GeneratorCall("synthesis", err)
	if r.stopped() {
		return
	}
	if err != nil {
		logger.Warn("executive synthesis failed, using fallback", zap.Error(err))
		r.recordSoft(ctx, model.StatusSynthesizing, model.ErrorKindSynthesis, "", err)
		notes = append(notes, noteSynthesisFailed)
		syn = assessment.FallbackSynthesis(synIn)
	}

	if !r.update(ctx, func(s *model.Session) { advance(s, pctRoadmap, "Building adoption roadmap") }) {
		return
	}
	roadmap := assessment.BuildRoadmap(tier, useCases)

	if !r.update(ctx, func(s *model.Session) { advance(s, pctFinalize, "Finalising report") }) {
		return
	}
	current := r.snapshot()
	rep := assessment.Assemble(assessment.AssembleInput{
		ReportID:         newReportID(),
		OrganisationName: sess.OrganisationName,
		Documents:        docs,
		Results:          results,
		UseCases:         useCases,
		Roadmap:          roadmap,
		Synthesis:        syn,
		Notes:            notes,
		Partial:          current.Partial,
		Now:              deps.Now(),
	})
	deps.Metrics.ObserveStage(string(model.StatusSynthesizing), time.Since(start))
	r.archiveReport(ctx, rep)

	if r.update(ctx, func(s *model.Session) {
		s.Report = rep
		s.Partial = rep.Partial
		s.Status = model.StatusComplete
		s.ProgressPct = pctComplete
		s.CurrentStep = "Complete"
	}) {
		logger.Info("assessment complete",
			zap.String("report_id", rep.ReportID),
			zap.Float64("overall_score", rep.OverallScore),
			zap.Bool("partial", rep.Partial),
		)
	}
}

func (r *run) ingest(ctx context.Context, files []ingest.Input) ([]model.DocumentInfo, bool) {
	deps := r.svc.deps
	start := time.Now()
	if !r.update(ctx, func(s *model.Session) {
		s.Status = model.StatusIngesting
		advance(s, 1, "Extracting and indexing documents")
	}) {
		return nil, false
	}
	res, err := deps.Ingestor.Build(ctx, r.session.ID, files, func(fraction float64) {
		r.update(ctx, func(s *model.Session) {
			advance(s, int(fraction*pctIngestEnd), fmt.Sprintf("Indexing documents (%d%%)", int(fraction*100)))
		})
	})
	deps.Metrics.ObserveStage(string(model.StatusIngesting), time.Since(start))
	if r.stopped() {
		return nil, false
	}
	var docs []model.DocumentInfo
	if res != nil {
		docs = res.Documents
		r.update(ctx, func(s *model.Session) {
			s.Documents = append([]model.DocumentInfo(nil), res.Documents...)
			for _, d := range res.Documents {
				if !d.Skipped {
					continue
				}
				s.Errors = append(s.Errors, model.StageError{
					Stage:    model.StatusIngesting,
					Kind:     model.ErrorKindIngestion,
					Document: d.Name,
					Message:  fmt.Sprintf("%s skipped: %s", d.Name, d.Reason),
					Ctime:    deps.Now().Unix(),
				})
			}
		})
	}
	if err != nil {
		kind := model.ErrorKindIngestion
		if errors.Is(err, vectorstore.ErrCollectionNotFound) || errors.Is(err, vectorstore.ErrDimensionMismatch) {
			kind = model.ErrorKindRetrieval
		}
		r.fail(ctx, model.StatusIngesting, kind, err)
		return nil, false
	}
	return docs, r.update(ctx, func(s *model.Session) {
		advance(s, pctIngestEnd, "Documents indexed in vector store")
	})
}

// score fans out one scorer per dimension. Each goroutine fills only its own
// slot; progress goes through update. Failed slots are recorded and skipped.
func (r *run) score(ctx context.Context, sess *model.Session) (map[model.Dimension]*model.DimensionResult, bool) {
	deps := r.svc.deps
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sess.ID))
	start := time.Now()
	dims := model.AllDimensions
	if !r.update(ctx, func(s *model.Session) {
		s.Status = model.StatusScoring
		advance(s, pctIngestEnd, fmt.Sprintf("Scoring %d dimensions", len(dims)))
	}) {
		return nil, false
	}

	slots := make([]dimensionSlot, len(dims))
	done := 0
	var wg sync.WaitGroup
	for i, dim := range dims {
		wg.Add(1)
		go func(i int, dim model.Dimension) {
			defer wg.Done()
			slots[i] = r.scoreOne(ctx, sess, dim)
			deps.Metrics.GeneratorCall("scoring", slots[i].err)
			r.update(ctx, func(s *model.Session) {
				done++
				pct := pctIngestEnd + done*(pctScoringEnd-pctIngestEnd)/len(dims)
				advance(s, pct, fmt.Sprintf("Analysed %s (%d/%d)", dim, done, len(dims)))
			})
		}(i, dim)
	}
	wg.Wait()
	deps.Metrics.ObserveStage(string(model.StatusScoring), time.Since(start))
	if r.stopped() {
		return nil, false
	}

	results := make(map[model.Dimension]*model.DimensionResult, len(dims))
	for _, slot := range slots {
		if slot.err == nil {
			results[slot.dim] = slot.result
			continue
		}
		kind := model.ErrorKindScorer
		if errors.Is(slot.err, retrieval.ErrSessionNotIndexed) {
			kind = model.ErrorKindRetrieval
		}
		logger.Warn("dimension scoring failed",
			zap.String("dimension", string(slot.dim)),
			zap.String("kind", string(kind)),
			zap.Error(slot.err),
		)
		deps.Metrics.ScorerFailed(string(slot.dim))
		r.recordSoft(ctx, model.StatusScoring, kind, slot.dim, slot.err)
	}
	if !r.update(ctx, func(s *model.Session) {
		s.Status = model.StatusSynthesizing
		advance(s, pctScoringEnd, fmt.Sprintf("%d of %d dimensions scored", len(results), len(dims)))
	}) {
		return nil, false
	}
	if len(results) == 0 {
		r.fail(ctx, model.StatusSynthesizing, model.ErrorKindSynthesis,
			fmt.Errorf("%w: no dimension results available", assessment.ErrSynthesis))
		return nil, false
	}
	return results, true
}

func (r *run) scoreOne(ctx context.Context, sess *model.Session, dim model.Dimension) (slot dimensionSlot) {
	slot.dim = dim
	defer func() {
		if p := recover(); p != nil {
			slot.result = nil
			slot.err = fmt.Errorf("%w: %s: panic: %v", assessment.ErrScorer, dim, p)
		}
	}()
	result, err := r.svc.deps.Scorer.Score(ctx, sess.ID, dim, sess.Context)
	if err == nil && result == nil {
		err = fmt.Errorf("%w: %s: empty result", assessment.ErrScorer, dim)
	}
	slot.result, slot.err = result, err
	return slot
}

func (r *run) archiveUploads(ctx context.Context, files []ingest.Input) {
	store := r.svc.deps.Files
	if store == nil {
		return
	}
	for i, f := range files {
		key := fmt.Sprintf("%s/uploads/%02d-%s", r.session.ID, i+1, archiveName(f.Name))
		if err := store.Save(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data))); err != nil {
			logutil.GetLogger(ctx).Warn("archive upload failed",
				zap.String("session_id", r.session.ID), zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *run) archiveReport(ctx context.Context, rep *model.AssessmentReport) {
	store := r.svc.deps.Files
	if store == nil {
		return
	}
	data, err := report.MarshalJSON(rep)
	if err == nil {
		err = store.Save(ctx, r.session.ID+"/report.json", bytes.NewReader(data), int64(len(data)))
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("archive report failed",
			zap.String("session_id", r.session.ID), zap.Error(err))
	}
}

func archiveName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "document"
	}
	return base
}
