/*
Package monitoring provides Prometheus metrics for the relay service.

# Overview

Each Metrics value owns a private registry so tests can build as many
collectors as they like. The registry is exposed through Handler for the
/metrics endpoint.

# Tracked

- HTTP requests on the command surface
- Session creations, state transitions and cancellations
- Forced process terminations
- Outbound webhook notifications
- Media relay outcomes and latency
- Push channel connections and messages

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics)
	// ... relay one image ...
	timer.Media("relayed")

All Record methods accept a nil receiver so components can run without a
collector.
*/
package monitoring
