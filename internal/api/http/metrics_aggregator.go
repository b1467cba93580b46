package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/grading"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// MetricsAggregator serves process metrics in Prometheus and JSON form
type MetricsAggregator struct {
	metrics     *monitoring.Metrics
	coordinator *grading.Coordinator
	pool        PoolStatser
}

// NewMetricsAggregator creates a metrics aggregator. pool may be nil.
func NewMetricsAggregator(metrics *monitoring.Metrics, coordinator *grading.Coordinator, pool PoolStatser) *MetricsAggregator {
	return &MetricsAggregator{
		metrics:     metrics,
		coordinator: coordinator,
		pool:        pool,
	}
}

// MetricsSnapshot represents a snapshot of all service metrics
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Backend   monitoring.MetricsSnapshot `json:"backend"`
	Grading   grading.Stats              `json:"grading"`
	Pool      *sandbox.PoolStats         `json:"pool,omitempty"`
	Summary   MetricsSummary             `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests    int64   `json:"total_requests"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	TotalRuns        int64   `json:"total_runs"`
	VerifiedRate     float64 `json:"verified_rate"` // Reported runs over finished runs
	ActiveSessions   int64   `json:"active_sessions"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// Prometheus serves the metrics registry in exposition format. Compression
// is left to the gzip middleware.
func (ma *MetricsAggregator) Prometheus() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(ma.metrics.Registry(), promhttp.HandlerOpts{
		DisableCompression: true,
	}))
}

// GetAggregatedMetrics returns all metrics as JSON
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, ma.Snapshot())
}

// Snapshot collects the current metrics
func (ma *MetricsAggregator) Snapshot() MetricsSnapshot {
	backend := ma.metrics.Snapshot()
	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Backend:   backend,
		Grading:   ma.coordinator.Stats(),
		Summary:   summarize(backend),
	}
	if ma.pool != nil {
		stats := ma.pool.Stats()
		snapshot.Pool = &stats
	}
	return snapshot
}

func summarize(s monitoring.MetricsSnapshot) MetricsSummary {
	summary := MetricsSummary{
		TotalRequests:    s.TotalRequests,
		AverageLatencyMs: s.AvgRequestMS,
		ActiveSessions:   s.ActiveSessions,
		UptimeSeconds:    s.UptimeSeconds,
	}
	if s.TotalRequests > 0 {
		summary.ErrorRate = float64(s.TotalErrors) / float64(s.TotalRequests)
	}
	for _, n := range s.RunsByStatus {
		summary.TotalRuns += n
	}
	if summary.TotalRuns > 0 {
		summary.VerifiedRate = float64(s.RunsByStatus[string(types.StatusReported)]) / float64(summary.TotalRuns)
	}
	return summary
}
