package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.DatasetSeen()
	m.DatasetSeen()
	m.DatasetSkipped(ReasonOrphan)
	m.ResourceSeen()
	m.ResourceSkipped(ReasonNotCSV)
	m.ResourceWritten(128)
	m.FileValidated("pass", 0)
	m.FileValidated("fail", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatasetsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatasetsSkipped.WithLabelValues(ReasonOrphan)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResourcesSkipped.WithLabelValues(ReasonNotCSV)))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.BytesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesValidated.WithLabelValues("fail")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SchemaErrorsLogged))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.DatasetSeen()
	m.ResourceWritten(10)
	m.FileValidated("pass", 0)
	m.RunFinished(time.Second, time.Now())

	require.NoError(t, m.Push(context.Background(), "http://unused", "job"))
}

func TestMetrics_Push(t *testing.T) {
	var (
		gotPath string
		gotBody string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.ResourceWritten(1)

	require.NoError(t, m.Push(context.Background(), srv.URL, "irve_test"))
	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/irve_test"), "unexpected push path %q", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestMetrics_PushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetrics().Push(context.Background(), srv.URL, "irve_test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}
