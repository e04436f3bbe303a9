package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordSourceLoad records how many records a source produced
func RecordSourceLoad(source, format string, count int) {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	mm.recordsLoaded.WithLabelValues(source, format).Add(float64(count))
	mm.datasetSize.WithLabelValues(source).Set(float64(count))
}

// RecordStage records the duration and outcome of one pipeline stage
func RecordStage(stage string, startTime time.Time, err error) {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	status := "success"
	if err != nil {
		status = "failed"
	}
	mm.stageDuration.WithLabelValues(stage, status).Observe(time.Since(startTime).Seconds())
}

// RecordDatasetSize sets the record count of a named dataset
func RecordDatasetSize(dataset string, size int) {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	mm.datasetSize.WithLabelValues(dataset).Set(float64(size))
}

// RecordLookup records the number of matches returned by a lookup method
func RecordLookup(method string, matches int) {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	mm.lookupMatches.WithLabelValues(method).Set(float64(matches))
}

// RecordPlanner records the answer of a planner solver
func RecordPlanner(solver string, value int) {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	mm.plannerResult.WithLabelValues(solver).Set(float64(value))
}

// RecordExport records exported and failed document counts
func RecordExport(exported, failed int) {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	mm.exportedDocs.WithLabelValues("success").Add(float64(exported))
	if failed > 0 {
		mm.exportedDocs.WithLabelValues("failed").Add(float64(failed))
	}
}

// RecordRunSuccess stamps the completion time of a successful run
func RecordRunSuccess() {
	mm := GetInstance()
	if !mm.Enabled() {
		return
	}

	mm.runLastSuccess.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes every registered metric in the text exposition
// format, for the node exporter textfile collector
func WriteTextfile(path string) error {
	registry := GetInstance().Registry()
	if registry == nil {
		return fmt.Errorf("metrics are not initialized")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory %s: %w", dir, err)
		}
	}

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
