package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBatch(t *testing.T) {
	m := New()

	m.ObserveBatch("no_changes", 4, 0, time.Millisecond)
	m.ObserveBatch("file_modifications_only", 3, 2, 2*time.Millisecond)
	m.ObserveBatch("file_modifications_only", 1, 1, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("no_changes")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("file_modifications_only")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.ChangesTotal.WithLabelValues(StageReceived)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChangesTotal.WithLabelValues(StageFiltered)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ValidationDuration))
}

func TestNew_IsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	a.ObserveBatch("no_changes", 1, 0, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.BatchesTotal.WithLabelValues("no_changes")))
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveBatch("various_file_changes", 2, 2, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `treesync_batches_total{result="various_file_changes"} 1`)
	assert.Contains(t, string(body), "treesync_validation_duration_seconds_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}
