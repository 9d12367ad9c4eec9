package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	ResetForTesting()
	t.Cleanup(ResetForTesting)
	return NewCollector("test")
}

func TestNewCollector_IsSingleton(t *testing.T) {
	c := newTestCollector(t)

	assert.Same(t, c, NewCollector("other"))
}

func TestCollector_Observe(t *testing.T) {
	// Arrange
	c := newTestCollector(t)
	failure := errors.New("boom")

	// Act
	c.ObserveStore("Create", "memory", nil, time.Millisecond)
	c.ObserveStore("Create", "memory", failure, time.Millisecond)
	c.ObserveSummary(nil, time.Second)
	c.ObserveEvent("note.created", failure)
	c.ObserveHTTP(http.MethodGet, "/api/v1/notes", http.StatusOK, time.Millisecond)

	// Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("Create", "memory", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("Create", "memory", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Summaries.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventsPublished.WithLabelValues("note.created", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/notes", "200")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveStore("List", "memory", nil, 0)
		c.ObserveSummary(nil, 0)
		c.ObserveEvent("note.deleted", nil)
		c.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, 0)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveHTTP(http.MethodPost, "/api/v1/notes", http.StatusCreated, time.Millisecond)
	rec := httptest.NewRecorder()

	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="POST",route="/api/v1/notes",status="201"} 1`)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		env     string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "development debug", level: "debug", env: "development", want: zapcore.DebugLevel},
		{name: "production warn", level: "warn", env: "production", want: zapcore.WarnLevel},
		{name: "empty defaults to info", level: "", env: "development", want: zapcore.InfoLevel},
		{name: "unknown level", level: "chatty", env: "development", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, atom, err := NewLogger(tt.level, tt.env)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tt.want, atom.Level())
		})
	}
}

func TestSetLevel_ChangesRunningLogger(t *testing.T) {
	logger, atom, err := NewLogger("info", "development")
	require.NoError(t, err)

	require.NoError(t, SetLevel(atom, "error"))

	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}
