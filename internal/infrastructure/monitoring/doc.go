/*
Package monitoring provides Prometheus metrics for the grading backend.

# Overview

Each Metrics value owns a private registry, so tests can build as many as
they like. HTTP handlers, the grading coordinator, the registry and the
WebSocket stream all record into the same collector.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	metrics.RecordRun("react", "reported", time.Since(start))
	metrics.RecordDroppedMessage("stale")
*/
package monitoring
