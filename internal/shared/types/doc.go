// Package types provides shared data structures for the launcher backend.
//
// Core Types:
//   - CatalogEntry: an installable application as published in the catalog
//   - Release: latest published release of a repository
//   - InstalledAppRecord: ledger row for an installed application
//   - Settings: user preferences persisted next to the ledger
//   - Event: progress and terminal notifications for one app id
//
// Request Types:
//   - ActionRequest: orchestrator command received over HTTP or WebSocket
//   - WSMessage: WebSocket envelope
package types
