/*
Package monitoring provides Prometheus-based metrics collection.

It tracks syscall counts by number and outcome, live kernel objects by
kind, scheduler dispatches, port traffic, published lifecycle events, and
the HTTP/WebSocket introspection surface.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

The kernel receives the same collector through its Metrics interface.

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
