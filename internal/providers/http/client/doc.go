// Package client builds the HTTP clients used for catalog lookups and transfers.
//
// Built on go-resty/resty over the pooled transport from
// hashicorp/go-retryablehttp:
//   - Connection pooling and keep-alive
//   - Response-header timeout without a whole-request deadline, so long
//     downloads are bounded only by cancellation
//   - Optional manual redirect handling (3xx returned to the caller)
//   - Context-based cancellation and per-client rate limiting
//
// Example Usage:
//
//	c := client.New(client.Options{UserAgent: "Bonchon-Launcher", HeaderTimeout: 30 * time.Second})
//	req, err := c.Request(ctx)
//	resp, err := req.SetDoNotParseResponse(true).Get(url)
package client
