/*
Package tracing provides lightweight request and run tracing.

Spans are propagated through context and the X-Trace-ID / X-Span-ID
headers, then logged through zap by a single collector goroutine. The
grading coordinator opens one span per run, so an HTTP request and the run
it started share a trace ID.

	tracer := tracing.New("patternlab", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "grading.run")
	span.SetTag("framework", "react")
	defer tracer.Submit(span)
*/
package tracing
