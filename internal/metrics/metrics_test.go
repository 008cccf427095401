package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New()
	c.RunStarted()
	c.RunStarted()
	c.RunFinished("complete")
	c.ScorerFailed("Governance & Risk")
	c.GeneratorCall("scoring", nil)
	c.GeneratorCall("scoring", errors.New("x"))
	c.ObserveStage("ingesting", time.Second)

	require.Equal(t, 1.0, testutil.ToFloat64(c.activeRuns))
	require.Equal(t, 1.0, testutil.ToFloat64(c.sessions.WithLabelValues("complete")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.scorerFailures.WithLabelValues("Governance & Risk")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.generatorCalls.WithLabelValues("scoring", "error")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "readiness_sessions_total"))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RunStarted()
	c.RunFinished("error")
	c.ScorerFailed("x")
	c.GeneratorCall("x", nil)
	c.ObserveStage("x", time.Second)
}
