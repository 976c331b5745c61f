package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("test_op", StatusFailure))
	ObserveRequest("test_op", errors.New("boom"), time.Now())
	ObserveRequest("test_op", nil, time.Now())

	assert.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues("test_op", StatusFailure)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(requestsTotal.WithLabelValues("test_op", StatusSuccess)), 1.0)
}

func TestAddIngestedAndFallback(t *testing.T) {
	before := testutil.ToFloat64(ingestedEntries.WithLabelValues("csv"))
	AddIngested("csv", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(ingestedEntries.WithLabelValues("csv")))

	fb := testutil.ToFloat64(answerFallbacks)
	IncFallback()
	assert.Equal(t, fb+1, testutil.ToFloat64(answerFallbacks))
}

func TestHandler(t *testing.T) {
	ObserveExternal("embedding", "query", time.Now())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kb_external_call_duration_seconds")
}
