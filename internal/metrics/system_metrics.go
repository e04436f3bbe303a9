package metrics

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MetricsManager is a singleton that owns the run's Prometheus registry
type MetricsManager struct {
	// Run metrics
	recordsLoaded  *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	datasetSize    *prometheus.GaugeVec
	lookupMatches  *prometheus.GaugeVec
	plannerResult  *prometheus.GaugeVec
	exportedDocs   *prometheus.CounterVec
	runStartTime   prometheus.Gauge
	runLastSuccess prometheus.Gauge

	// System metrics
	systemCPUUsage    prometheus.Gauge
	systemMemoryUsage *prometheus.GaugeVec
	processCPUPercent prometheus.Gauge
	processRSS        prometheus.Gauge
	processOpenFDs    prometheus.Gauge
	goHeapAlloc       prometheus.Gauge

	registry *prometheus.Registry

	initialized bool
	mu          sync.RWMutex
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton instance of MetricsManager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = &MetricsManager{
			registry: prometheus.NewRegistry(),
		}
	})
	return instance
}

// InitializeMetrics creates and registers every metric once. Until it is
// called the Record helpers are no-ops.
func (mm *MetricsManager) InitializeMetrics() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.initialized {
		return
	}

	mm.recordsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labmerge_records_loaded_total",
			Help: "Exam records normalized from a source file",
		},
		[]string{"source", "format"},
	)

	mm.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labmerge_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)

	mm.datasetSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labmerge_dataset_records",
			Help: "Record count of each dataset produced by the run",
		},
		[]string{"dataset"},
	)

	mm.lookupMatches = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labmerge_lookup_matches",
			Help: "Records returned by the last patient lookup",
		},
		[]string{"method"},
	)

	mm.plannerResult = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labmerge_planner_result",
			Help: "Best total cost found by each capacity planner solver",
		},
		[]string{"solver"},
	)

	mm.exportedDocs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labmerge_exported_documents_total",
			Help: "Exam documents sent to the export sink",
		},
		[]string{"status"},
	)

	mm.runStartTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_run_start_time_seconds",
			Help: "Start time of the run since unix epoch in seconds",
		},
	)

	mm.runLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_run_last_success_time_seconds",
			Help: "Completion time of the last successful run since unix epoch in seconds",
		},
	)

	mm.systemCPUUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_system_cpu_usage_percent",
			Help: "Host CPU usage percentage sampled at the end of the run",
		},
	)

	mm.systemMemoryUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labmerge_system_memory_bytes",
			Help: "Host memory sampled at the end of the run",
		},
		[]string{"type"},
	)

	mm.processCPUPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_process_cpu_percent",
			Help: "CPU percentage used by this process",
		},
	)

	mm.processRSS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_process_resident_memory_bytes",
			Help: "Resident memory of this process",
		},
	)

	mm.processOpenFDs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_process_open_fds",
			Help: "Number of open file descriptors",
		},
	)

	mm.goHeapAlloc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labmerge_go_heap_alloc_bytes",
			Help: "Heap memory usage in bytes",
		},
	)

	mm.registry.MustRegister(
		mm.recordsLoaded,
		mm.stageDuration,
		mm.datasetSize,
		mm.lookupMatches,
		mm.plannerResult,
		mm.exportedDocs,
		mm.runStartTime,
		mm.runLastSuccess,
		mm.systemCPUUsage,
		mm.systemMemoryUsage,
		mm.processCPUPercent,
		mm.processRSS,
		mm.processOpenFDs,
		mm.goHeapAlloc,
	)

	mm.runStartTime.Set(float64(time.Now().Unix()))
	mm.initialized = true
}

// Enabled reports whether InitializeMetrics has run
func (mm *MetricsManager) Enabled() bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.initialized
}

// Registry returns the registry, or nil before initialization
func (mm *MetricsManager) Registry() *prometheus.Registry {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	if !mm.initialized {
		return nil
	}
	return mm.registry
}

// CollectSystemMetrics samples host and process usage once
func CollectSystemMetrics() {
	mm := GetInstance()
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized {
		return
	}

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		mm.systemCPUUsage.Set(percentages[0])
	} else if err != nil {
		log.Debug().Err(err).Msg("Failed to sample CPU usage")
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		mm.systemMemoryUsage.WithLabelValues("total").Set(float64(vmstat.Total))
		mm.systemMemoryUsage.WithLabelValues("available").Set(float64(vmstat.Available))
		mm.systemMemoryUsage.WithLabelValues("used").Set(float64(vmstat.Used))
	} else {
		log.Debug().Err(err).Msg("Failed to sample memory usage")
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if pct, err := proc.CPUPercent(); err == nil {
			mm.processCPUPercent.Set(pct)
		}
		if info, err := proc.MemoryInfo(); err == nil {
			mm.processRSS.Set(float64(info.RSS))
		}
		if fds, err := proc.NumFDs(); err == nil {
			mm.processOpenFDs.Set(float64(fds))
		}
	} else {
		log.Debug().Err(err).Msg("Failed to inspect own process")
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.goHeapAlloc.Set(float64(m.HeapAlloc))
}
