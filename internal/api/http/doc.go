// Package http exposes the launcher engine over a local REST API.
//
// Mutating app routes only enqueue work and return the job id with 202
// Accepted; progress and outcomes are delivered on the WebSocket stream.
package http
