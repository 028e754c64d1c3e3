/*
Package tracing provides lightweight request tracing.

# Overview

Inbound command requests get a span whose trace id is echoed back in the
X-Trace-ID header. The same identifiers travel on outbound webhook, storage
and engine calls so the backend can correlate a relayed image or status
change with the request that started the session.

# Usage

	tracer := tracing.New("relay", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	client.Resty.OnBeforeRequest(tracing.RestyMiddleware)

	// keep the trace on detached work
	go notify(tracing.Detach(ctx))

Spans are buffered and logged by a single collector goroutine; a full
buffer drops spans rather than blocking the request path.
*/
package tracing
