// Package server assembles the launcher daemon: persistent stores, the
// transfer, install and uninstall providers, the orchestrator, and the
// HTTP and WebSocket surface in front of them.
package server
