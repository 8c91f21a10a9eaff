// Package selector draws a token-budgeted shortlist of artifacts from a pool.
//
// Candidates are visited in a uniformly shuffled order and evaluated strictly
// one after another. Any candidate whose diff or log cannot be fetched is
// skipped without failing the run; the shortlist may therefore hold fewer
// than the requested number of identifiers.
package selector

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
	"github.com/ahnaf005/llm-bug-report/internal/budget"
	"github.com/ahnaf005/llm-bug-report/internal/document"
	"github.com/ahnaf005/llm-bug-report/internal/observability"
)

// Outcomes recorded per candidate.
const (
	OutcomeAccepted       = "accepted"
	OutcomeRejectedBudget = "rejected_budget"
	OutcomeNoIdentifier   = "skip_no_identifier"
	OutcomeDuplicate      = "skip_duplicate"
	OutcomeDiffError      = "skip_diff_error"
	OutcomeDiffEmpty      = "skip_diff_empty"
	OutcomeNoJobID        = "skip_no_job_id"
	OutcomeLogError       = "skip_log_error"
	OutcomeLogEmpty       = "skip_log_empty"
	OutcomeMergeError     = "skip_merge_error"
)

// Options holds the per-run limits.
type Options struct {
	TargetCount int
	Budget      int // token ceiling for the merged document
}

// Result is the ordered shortlist plus per-outcome counts.
type Result struct {
	IDs        []string
	Considered int
	Outcomes   map[string]int
}

// Selector picks artifacts whose merged document fits the budget.
type Selector struct {
	provider  artifact.Provider
	estimator budget.Estimator
	opts      Options
	rng       *rand.Rand
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// Option customises a Selector.
type Option func(*Selector)

// WithRand injects the shuffle source, for reproducible runs.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rng = r }
}

// WithSeed seeds the shuffle source; 0 keeps the clock-seeded default.
func WithSeed(seed uint64) Option {
	return func(s *Selector) {
		if seed != 0 {
			s.rng = rand.New(rand.NewPCG(seed, seed))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Selector) { s.metrics = m }
}

// New builds a Selector.
func New(provider artifact.Provider, estimator budget.Estimator, opts Options, options ...Option) *Selector {
	now := uint64(time.Now().UnixNano())
	s := &Selector{
		provider:  provider,
		estimator: estimator,
		opts:      opts,
		rng:       rand.New(rand.NewPCG(now, now>>1|1)),
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(s)
	}
	s.logger = s.logger.With(zap.String("component", "selector"))
	return s
}

// Run fetches the pool matching q and selects from it. A failing Filter call
// is returned as an error since there is nothing to select from.
func (s *Selector) Run(ctx context.Context, q artifact.Query) (Result, error) {
	s.logger.Info("fetching artifact pool", zap.String("where", q.Where()))
	pool, err := s.provider.Filter(ctx, q)
	if err != nil {
		s.metrics.RecordProviderFailure("filter")
		return Result{}, err
	}
	s.logger.Info("artifact pool fetched", zap.Int("count", len(pool)))
	return s.Select(ctx, pool)
}

// Select scans a shuffled copy of pool until TargetCount identifiers are
// accepted or the pool is exhausted. Only context cancellation is an error.
func (s *Selector) Select(ctx context.Context, pool []artifact.Record) (Result, error) {
	res := Result{Outcomes: make(map[string]int)}
	if s.opts.TargetCount <= 0 || len(pool) == 0 {
		s.metrics.SetAccepted(0)
		return res, nil
	}

	shuffled := append([]artifact.Record(nil), pool...)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seen := make(map[string]struct{}, len(shuffled))
	for _, rec := range shuffled {
		if len(res.IDs) >= s.opts.TargetCount {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Considered++
		outcome := s.evaluate(ctx, rec, seen)
		if outcome == OutcomeAccepted {
			res.IDs = append(res.IDs, rec.ID())
			seen[rec.ID()] = struct{}{}
		}
		res.Outcomes[outcome]++
		s.metrics.RecordCandidate(outcome)
	}

	s.metrics.SetAccepted(len(res.IDs))
	s.logger.Info("selection finished",
		zap.Int("accepted", len(res.IDs)),
		zap.Int("considered", res.Considered),
		zap.Int("pool", len(pool)),
		zap.Int("target", s.opts.TargetCount),
	)
	return res, nil
}

// evaluate applies the skip chain and budget check to one candidate.
func (s *Selector) evaluate(ctx context.Context, rec artifact.Record, seen map[string]struct{}) string {
	id := rec.ID()
	if id == "" {
		s.logger.Info("skipping candidate", zap.String("reason", "missing image_tag"))
		return OutcomeNoIdentifier
	}
	log := s.logger.With(zap.String("artifact", id))
	if _, dup := seen[id]; dup {
		log.Info("skipping candidate", zap.String("reason", "already accepted"))
		return OutcomeDuplicate
	}

	log.Debug("checking artifact")

	diff, err := s.provider.Diff(ctx, id)
	if err != nil {
		s.metrics.RecordProviderFailure("diff")
		log.Info("skipping candidate", zap.String("reason", "error getting diff"), zap.Error(err))
		return OutcomeDiffError
	}
	if diff.Empty() {
		log.Info("skipping candidate", zap.String("reason", "empty or missing diff"))
		return OutcomeDiffEmpty
	}

	jobID := string(rec.FailedJob.JobID)
	if jobID == "" {
		log.Info("skipping candidate", zap.String("reason", "missing failed_job.job_id"))
		return OutcomeNoJobID
	}

	buildLog, err := s.provider.BuildLog(ctx, jobID)
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			s.metrics.RecordProviderFailure("build_log")
		}
		log.Info("skipping candidate", zap.String("reason", "error getting build log"), zap.Error(err))
		return OutcomeLogError
	}
	if buildLog == "" {
		log.Info("skipping candidate", zap.String("reason", "empty build log"))
		return OutcomeLogEmpty
	}

	merged, err := document.Merge(buildLog, diff)
	if err != nil {
		log.Info("skipping candidate", zap.String("reason", "cannot merge"), zap.Error(err))
		return OutcomeMergeError
	}

	tokens, err := s.estimator.Check(merged, s.opts.Budget)
	if err != nil {
		log.Info("rejected", zap.Int("tokens", tokens), zap.Int("budget", s.opts.Budget))
		return OutcomeRejectedBudget
	}
	log.Info("accepted", zap.Int("tokens", tokens), zap.Int("budget", s.opts.Budget))
	return OutcomeAccepted
}
