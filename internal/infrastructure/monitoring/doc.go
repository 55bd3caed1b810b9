/*
Package monitoring provides Prometheus metrics for the launcher daemon.

# Overview

Metrics cover HTTP requests, orchestrator operations (install, update,
repair, uninstall) by outcome, bytes transferred, extraction time, removal
attempts, catalog sources and WebSocket connections.

A nil *Metrics is accepted everywhere and records nothing, so components can
be constructed without metrics in tests.

# Usage

	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "install")
	// ... run the operation ...
	timer.Stop("complete")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
*/
package monitoring
