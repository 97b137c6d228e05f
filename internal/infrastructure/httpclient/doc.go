// Package httpclient is the shared outbound HTTP client used by the blob
// store and the code-generation providers.
//
// Built on go-resty/resty with a hashicorp/go-retryablehttp transport:
//   - Retries with exponential backoff on connection errors and 5xx
//   - Per-client rate limiting (golang.org/x/time/rate)
//   - Circuit breaker from the resilience package
//   - X-Request-ID on every request for upstream correlation
//
// Example:
//
//	client := httpclient.New(httpclient.Options{Name: "blob", BaseURL: url})
//	resp, err := client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
//		return r.Get("/objects/" + key)
//	})
package httpclient
