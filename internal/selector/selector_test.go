package selector

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
	artifactmock "github.com/ahnaf005/llm-bug-report/internal/artifact/mock"
	"github.com/ahnaf005/llm-bug-report/internal/budget"
	"github.com/ahnaf005/llm-bug-report/internal/document"
	"github.com/ahnaf005/llm-bug-report/internal/observability"
)

const smallDiff = `{"files":[{"name":"Foo.java","patch":"-a\n+b"}]}`

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// pool builds n valid artifacts with logs of logLen characters.
func pool(n, logLen int) *artifactmock.Provider {
	p := &artifactmock.Provider{
		Diffs: map[string]artifact.Diff{},
		Logs:  map[string]string{},
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("artifact-%d", i)
		job := fmt.Sprintf("%d", 1000+i)
		p.Records = append(p.Records, artifact.Record{
			ImageTag:           id,
			Language:           "Java",
			ReproduceSuccesses: 1,
			FailedJob:          artifact.Job{JobID: artifact.JobID(job)},
		})
		p.Diffs[id] = artifact.Diff(smallDiff)
		p.Logs[job] = strings.Repeat("x", logLen)
	}
	return p
}

func mergedTokens(t *testing.T, logLen int) int {
	t.Helper()
	doc, err := document.Merge(strings.Repeat("x", logLen), artifact.Diff(smallDiff))
	require.NoError(t, err)
	return budget.New(4).Estimate(doc)
}

func TestSelectAllFitReturnsPermutation(t *testing.T) {
	p := pool(3, 100)
	s := New(p, budget.New(4), Options{TargetCount: 40, Budget: 1_000_000}, seeded(7))

	res, err := s.Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Len(t, res.IDs, 3)

	got := append([]string(nil), res.IDs...)
	sort.Strings(got)
	if diff := cmp.Diff([]string{"artifact-0", "artifact-1", "artifact-2"}, got); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 3, res.Outcomes[OutcomeAccepted])
}

func TestSelectDiffFailureIsSkipped(t *testing.T) {
	p := pool(2, 100)
	p.DiffErr = map[string]error{"artifact-0": errors.New("502 bad gateway")}
	s := New(p, budget.New(4), Options{TargetCount: 40, Budget: 1_000_000}, seeded(1))

	res, err := s.Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Equal(t, []string{"artifact-1"}, res.IDs)
	require.Equal(t, 1, res.Outcomes[OutcomeDiffError])
}

func TestSelectAllOverBudgetIsEmpty(t *testing.T) {
	p := pool(5, 4000)
	s := New(p, budget.New(4), Options{TargetCount: 3, Budget: 100}, seeded(2))

	res, err := s.Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
	require.Equal(t, 5, res.Outcomes[OutcomeRejectedBudget])
	require.Equal(t, 5, res.Considered)
}

func TestSelectStopsAtTarget(t *testing.T) {
	p := pool(10, 10)
	s := New(p, budget.New(4), Options{TargetCount: 4, Budget: 1_000_000}, seeded(3))

	res, err := s.Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Len(t, res.IDs, 4)
	require.Equal(t, 4, res.Considered, "scan must short-circuit once the target is met")

	diffCalls := 0
	for _, c := range p.Calls() {
		if strings.HasPrefix(c, "diff:") {
			diffCalls++
		}
	}
	require.Equal(t, 4, diffCalls)
}

func TestSelectBudgetBoundaryIsInclusive(t *testing.T) {
	p := pool(1, 400)
	limit := mergedTokens(t, 400)

	res, err := New(p, budget.New(4), Options{TargetCount: 1, Budget: limit}, seeded(4)).Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)

	res, err = New(p, budget.New(4), Options{TargetCount: 1, Budget: limit - 1}, seeded(4)).Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestSelectSkipChain(t *testing.T) {
	p := pool(6, 10)
	p.Records[0].ImageTag = ""
	p.Diffs["artifact-1"] = artifact.Diff(`{}`)
	p.Records[2].FailedJob.JobID = ""
	p.LogErr = map[string]error{"1003": errors.New("timeout")}
	p.Logs["1004"] = ""

	s := New(p, budget.New(4), Options{TargetCount: 10, Budget: 1_000_000}, seeded(5))
	res, err := s.Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Equal(t, []string{"artifact-5"}, res.IDs)
	require.Equal(t, map[string]int{
		OutcomeNoIdentifier: 1,
		OutcomeDiffEmpty:    1,
		OutcomeNoJobID:      1,
		OutcomeLogError:     1,
		OutcomeLogEmpty:     1,
		OutcomeAccepted:     1,
	}, res.Outcomes)
}

func TestSelectNeverRepeatsIdentifiers(t *testing.T) {
	p := pool(3, 10)
	dup := append(append([]artifact.Record(nil), p.Records...), p.Records...)

	res, err := New(p, budget.New(4), Options{TargetCount: 10, Budget: 1_000_000}, seeded(6)).Select(context.Background(), dup)
	require.NoError(t, err)
	require.Len(t, res.IDs, 3)
	require.Equal(t, 3, res.Outcomes[OutcomeDuplicate])
}

func TestSelectCardinalityProperty(t *testing.T) {
	for seed := uint64(1); seed <= 30; seed++ {
		r := rand.New(rand.NewPCG(seed, 99))
		size := r.IntN(12)
		target := r.IntN(15)
		p := pool(size, r.IntN(200))
		for i := range p.Records {
			if r.IntN(4) == 0 {
				p.Diffs[p.Records[i].ImageTag] = nil
			}
		}

		res, err := New(p, budget.New(4), Options{TargetCount: target, Budget: 60}, seeded(seed)).Select(context.Background(), p.Records)
		require.NoError(t, err)
		require.LessOrEqual(t, len(res.IDs), min(target, size))

		seen := map[string]bool{}
		for _, id := range res.IDs {
			require.False(t, seen[id], "duplicate %s", id)
			seen[id] = true
		}
	}
}

func TestSelectOrderIsReproducibleForSeed(t *testing.T) {
	p := pool(20, 10)
	opts := Options{TargetCount: 5, Budget: 1_000_000}

	a, err := New(p, budget.New(4), opts, WithSeed(42)).Select(context.Background(), p.Records)
	require.NoError(t, err)
	b, err := New(p, budget.New(4), opts, WithSeed(42)).Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Equal(t, a.IDs, b.IDs)
}

func TestSelectDoesNotMutatePool(t *testing.T) {
	p := pool(8, 10)
	before := append([]artifact.Record(nil), p.Records...)
	_, err := New(p, budget.New(4), Options{TargetCount: 8, Budget: 1_000_000}, seeded(8)).Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Equal(t, before, p.Records)
}

func TestSelectZeroTargetOrEmptyPool(t *testing.T) {
	p := pool(3, 10)
	res, err := New(p, budget.New(4), Options{TargetCount: 0, Budget: 1_000_000}).Select(context.Background(), p.Records)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
	require.Empty(t, p.Calls())

	res, err = New(p, budget.New(4), Options{TargetCount: 3, Budget: 1_000_000}).Select(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestSelectCancelledContext(t *testing.T) {
	p := pool(3, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(p, budget.New(4), Options{TargetCount: 3, Budget: 1_000_000}).Select(ctx, p.Records)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSelectLogsSkipsAndRecordsMetrics(t *testing.T) {
	p := pool(2, 10)
	p.DiffErr = map[string]error{"artifact-0": errors.New("boom")}
	core, logs := observer.New(zap.InfoLevel)
	m := observability.NewMetrics()

	s := New(p, budget.New(4), Options{TargetCount: 2, Budget: 1_000_000}, seeded(9), WithLogger(zap.New(core)), WithMetrics(m))
	_, err := s.Select(context.Background(), p.Records)
	require.NoError(t, err)

	skips := logs.FilterMessage("skipping candidate").All()
	require.Len(t, skips, 1)
	require.Equal(t, "artifact-0", skips[0].ContextMap()["artifact"])
	require.Equal(t, 1.0, testutil.ToFloat64(m.Candidates.WithLabelValues(OutcomeDiffError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Accepted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFailures.WithLabelValues("diff")))
}

func TestRunUsesFilter(t *testing.T) {
	p := pool(2, 10)
	var gotQuery artifact.Query
	p.FilterFn = func(ctx context.Context, q artifact.Query) ([]artifact.Record, error) {
		gotQuery = q
		return p.Records, nil
	}

	res, err := New(p, budget.New(4), Options{TargetCount: 5, Budget: 1_000_000}).Run(context.Background(), artifact.Query{Language: "Java", MinReproduceSuccesses: 1})
	require.NoError(t, err)
	require.Len(t, res.IDs, 2)
	require.Equal(t, "Java", gotQuery.Language)

	p.FilterFn = func(ctx context.Context, q artifact.Query) ([]artifact.Record, error) {
		return nil, errors.New("unauthorized")
	}
	_, err = New(p, budget.New(4), Options{TargetCount: 5, Budget: 1_000_000}).Run(context.Background(), artifact.Query{})
	require.Error(t, err)
}

func TestShortlistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "java_artifacts_40.txt")
	require.NoError(t, WriteShortlist(path, []string{"b-2", "a-1"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "b-2\na-1\n", string(raw))

	ids, err := ReadShortlist(path)
	require.NoError(t, err)
	require.Equal(t, []string{"b-2", "a-1"}, ids)
}

func TestWriteShortlistEmptyWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.ErrorIs(t, WriteShortlist(path, nil), ErrEmptyShortlist)
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
