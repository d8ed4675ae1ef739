package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/api/quizzes/:id", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/quizzes/:id", http.StatusOK, 30*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/quizzes/:id", http.StatusNotFound, time.Millisecond)
	m.AttemptStarted()
	m.AttemptStarted()
	m.AttemptSubmitted(75)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/quizzes/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/quizzes/:id", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("submitted")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mathinsight_quiz_score_percentage_count 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
