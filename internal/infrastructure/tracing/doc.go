/*
Package tracing provides lightweight request tracing for the kernel's
introspection API.

Spans carry parent-child relationships and propagate over the standard
X-Trace-ID / X-Span-ID headers. Completed spans are collected on a buffered
channel and emitted through structured logging, so a slow consumer can never
stall a request.

Usage:

	tracer := tracing.New("kernel", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
