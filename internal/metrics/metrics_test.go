package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	mm := GetInstance()
	mm.InitializeMetrics()
	mm.InitializeMetrics()

	RecordSourceLoad("lab_a", "json", 3)
	RecordSourceLoad("lab_a", "json", 2)
	RecordDatasetSize("merged", 9)
	RecordLookup("binary", 4)
	RecordPlanner("tabulated", 5)
	RecordExport(7, 1)
	RecordStage("merge", time.Now(), nil)
	RecordStage("save", time.Now(), errors.New("disk full"))

	assert.Equal(t, 5.0, testutil.ToFloat64(mm.recordsLoaded.WithLabelValues("lab_a", "json")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mm.datasetSize.WithLabelValues("lab_a")))
	assert.Equal(t, 9.0, testutil.ToFloat64(mm.datasetSize.WithLabelValues("merged")))
	assert.Equal(t, 4.0, testutil.ToFloat64(mm.lookupMatches.WithLabelValues("binary")))
	assert.Equal(t, 5.0, testutil.ToFloat64(mm.plannerResult.WithLabelValues("tabulated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.exportedDocs.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(mm.stageDuration))
}

func TestWriteTextfile(t *testing.T) {
	GetInstance().InitializeMetrics()
	RecordRunSuccess()
	CollectSystemMetrics()

	path := filepath.Join(t.TempDir(), "textfile", "labmerge.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "labmerge_run_last_success_time_seconds")
	assert.Contains(t, string(data), "labmerge_go_heap_alloc_bytes")
}
