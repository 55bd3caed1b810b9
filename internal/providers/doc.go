// Package providers holds the side-effecting building blocks the
// orchestrator drives.
//
// Providers:
//   - http/client: pooled, rate-limited resty client shared by every remote call
//   - transfer: streaming downloads with progress, speed and cancel
//   - installer: archive classification, staged extraction and executable discovery
//   - uninstall: process termination and retrying directory removal
//
// Each provider takes its collaborators through an Options struct and accepts
// a nil logger and nil metrics.
package providers
