// Package reporter turns one selected artifact into a bug report written by a
// generative backend.
//
// A run either completes every step or aborts at the first failure; nothing is
// retried and no partial report is written.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
	"github.com/ahnaf005/llm-bug-report/internal/budget"
	"github.com/ahnaf005/llm-bug-report/internal/document"
	"github.com/ahnaf005/llm-bug-report/internal/llm"
	"github.com/ahnaf005/llm-bug-report/internal/observability"
	"github.com/ahnaf005/llm-bug-report/internal/output"
)

// Mode names a report pipeline variant.
type Mode string

const (
	// ModeSmart is the merged log+diff pipeline.
	ModeSmart Mode = "smart"
	// ModeSimple is the one-shot variant; only its output paths are known here.
	ModeSimple Mode = "simple"
)

// Modes lists every variant whose reports may exist on disk.
var Modes = []Mode{ModeSimple, ModeSmart}

var (
	// ErrUnsupportedMode is returned for variants Generate cannot run.
	ErrUnsupportedMode = errors.New("unsupported report mode")
	// ErrEmptyReport is returned when the backend reply carries no text.
	ErrEmptyReport = errors.New("backend returned no report text")
)

// Report is the outcome of one successful generation.
type Report struct {
	ArtifactID   string
	Backend      string
	Mode         Mode
	MergedPath   string
	ReportPath   string
	Text         string
	PromptTokens int
	LogTruncated bool
}

// Reporter generates reports for single artifacts.
type Reporter struct {
	provider  artifact.Provider
	registry  *llm.Registry
	estimator budget.Estimator
	store     *output.Store
	logger    *zap.Logger
	metrics   *observability.Metrics
	maxTokens int
	locks     keyedMutex
}

// Option customises a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Reporter) { r.metrics = m }
}

// WithMaxOutputTokens caps the completion length; 0 leaves the backend default.
func WithMaxOutputTokens(n int) Option {
	return func(r *Reporter) { r.maxTokens = n }
}

// New builds a Reporter.
func New(provider artifact.Provider, registry *llm.Registry, estimator budget.Estimator, store *output.Store, opts ...Option) *Reporter {
	r := &Reporter{
		provider:  provider,
		registry:  registry,
		estimator: estimator,
		store:     store,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.With(zap.String("component", "reporter"))
	return r
}

// Generate runs the smart pipeline for id against the named backend
// (the registry default when empty).
func (r *Reporter) Generate(ctx context.Context, id, backendName string) (Report, error) {
	return r.GenerateMode(ctx, id, backendName, ModeSmart)
}

// GenerateMode is Generate with an explicit mode. Only ModeSmart is runnable.
func (r *Reporter) GenerateMode(ctx context.Context, id, backendName string, mode Mode) (Report, error) {
	if mode != ModeSmart {
		return Report{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
	backend, err := r.registry.Resolve(backendName)
	if err != nil {
		return Report{}, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	start := time.Now()
	rep, err := r.generate(ctx, id, backend)
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordReport(backend.Name, status, time.Since(start), rep.PromptTokens)
	return rep, err
}

func (r *Reporter) generate(ctx context.Context, id string, backend llm.Backend) (Report, error) {
	log := r.logger.With(zap.String("artifact", id), zap.String("backend", backend.Name))
	rep := Report{ArtifactID: id, Backend: backend.Name, Mode: ModeSmart}

	mergedRel, err := output.MergedPath(id)
	if err != nil {
		return rep, err
	}
	reportRel, err := output.ReportPath(id, backend.Name, string(ModeSmart))
	if err != nil {
		return rep, err
	}

	diff, err := r.provider.Diff(ctx, id)
	if err != nil {
		return rep, fmt.Errorf("get diff for %s: %w", id, err)
	}
	if diff.Empty() {
		return rep, artifact.NotFound("diff", id)
	}

	rec, err := r.provider.Find(ctx, id)
	if err != nil {
		return rep, fmt.Errorf("get artifact %s: %w", id, err)
	}
	jobID := string(rec.FailedJob.JobID)
	if jobID == "" {
		return rep, artifact.NotFound("failed job id of", id)
	}

	buildLog, err := r.provider.BuildLog(ctx, jobID)
	if err != nil {
		return rep, fmt.Errorf("get build log %s: %w", jobID, err)
	}

	if ceiling := r.estimator.CharCeiling(backend.MaxPromptTokens); ceiling > 0 {
		var cut bool
		buildLog, cut = budget.TruncateSuffix(buildLog, ceiling)
		if cut {
			rep.LogTruncated = true
			r.metrics.RecordTruncation(backend.Name)
			log.Info("log trimmed", zap.Int("max_tokens", backend.MaxPromptTokens), zap.Int("max_chars", ceiling))
		}
	}

	merged, err := document.Merge(buildLog, diff)
	if err != nil {
		return rep, err
	}
	rep.PromptTokens = r.estimator.Estimate(merged)

	if rep.MergedPath, err = r.store.WriteFile(mergedRel, merged); err != nil {
		return rep, err
	}
	log.Info("merged build log and diff", zap.String("path", rep.MergedPath), zap.Int("tokens", rep.PromptTokens))

	resp, err := backend.Provider.Chat(ctx, llm.ChatRequest{
		Model:     backend.Model,
		Messages:  buildMessages(filepath.Base(mergedRel), merged),
		MaxTokens: r.maxTokens,
		Sampling:  r.registry.Sampling(),
	})
	if err != nil {
		return rep, fmt.Errorf("generate report with %s: %w", backend.Name, err)
	}

	text := Extract(resp.Message)
	if text == "" {
		return rep, ErrEmptyReport
	}
	rep.Text = text

	if rep.ReportPath, err = r.store.WriteFile(reportRel, text); err != nil {
		return rep, err
	}
	log.Info("bug report written", zap.String("path", rep.ReportPath))
	return rep, nil
}

// Extract returns the report text of a reply: text blocks concatenated in
// order, or the plain content when the reply has no blocks.
func Extract(msg llm.ChatMessage) string {
	return msg.Text()
}
