/*
Package monitoring exports Prometheus metrics for the sandbox server.

Each Metrics value owns a private registry under the "codepilot" namespace.
Collectors cover request latency per matched route, running and terminated
shell commands, open sockets, workspace file operations, code generation
calls and breaker state of the blob and generator upstreams.

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "write")
	if err := store.Write(ctx, path, data); err != nil {
		timer.Stop("error")
	} else {
		timer.Stop("ok")
	}
*/
package monitoring
