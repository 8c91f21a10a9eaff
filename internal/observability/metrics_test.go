package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordersUpdateCollectors(t *testing.T) {
	m := NewMetrics()

	m.RecordCandidate("accepted")
	m.RecordCandidate("accepted")
	m.RecordCandidate("")
	m.SetAccepted(2)
	m.RecordReport("openai_api", "ok", time.Second, 1200)
	m.RecordTruncation("openai_api")
	m.RecordProviderFailure("diff")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Candidates.WithLabelValues("accepted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Candidates.WithLabelValues("unknown")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Accepted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Reports.WithLabelValues("openai_api", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LogTruncations.WithLabelValues("openai_api")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFailures.WithLabelValues("diff")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordCandidate("accepted")
	m.SetAccepted(1)
	m.RecordReport("x", "ok", 0, 0)
	m.RecordTruncation("x")
	m.RecordProviderFailure("log")
	require.NoError(t, m.Push(context.Background(), "http://unused", "job"))
}

func TestPushSendsToGateway(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.RecordCandidate("accepted")
	require.NoError(t, m.Push(context.Background(), srv.URL, "select"))
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "/metrics/job/select", gotPath)
	require.NotEmpty(t, gotBody)

	require.NoError(t, NewMetrics().Push(context.Background(), "", "select"))
}
