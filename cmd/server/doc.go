// Package main is the entry point for the launcher daemon.
//
// The daemon downloads, installs, updates, repairs and uninstalls the apps
// listed in the studio catalog, and serves a local REST + WebSocket API for
// the launcher UI.
//
// Configuration:
//   - Defaults for a per-user install
//   - Optional TOML file named by LAUNCHER_CONFIG
//   - Environment variables (12-factor)
//   - CLI flags (override everything above)
//
// Usage:
//
//	# Default: 127.0.0.1:8765, data in the user config dir
//	./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -download-dir /tmp/apps
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown; running jobs get a grace period
//     and are then cancelled
package main
