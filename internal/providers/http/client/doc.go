// Package client provides the outbound HTTP client shared by the backend
// webhook, object storage and automation engine adapters.
//
// Built on go-resty/resty over the pooled go-retryablehttp transport:
//   - bounded retries on transport errors and 5xx responses
//   - per-collaborator circuit breaker
//   - optional request rate limit
//   - trace header propagation
//
// Example Usage:
//
//	c := client.New(client.Options{Name: "backend", BaseURL: url, RetryCount: 2})
//	_, err := c.Execute(ctx, func(req *resty.Request) (*resty.Response, error) {
//		return req.SetBody(payload).Post("/main/wa/qr-code/")
//	})
package client
