/*
Package monitoring provides Prometheus metrics for the security policy server.

# Overview

Metrics live on a private registry so that several servers (and tests) can
coexist in one process. The registry carries HTTP request metrics, security
event and block counters, URL check outcomes, per-context threat scores,
monitor sweep timings, isolation context counts and breaker states.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "deep_scan")
	// ... perform operation ...
	timer.StopErr(err)
*/
package monitoring
