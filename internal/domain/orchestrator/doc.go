// Package orchestrator drives install, update, repair and uninstall runs.
//
// Each request claims the app id in a job table, so at most one run exists
// per app at any time, and executes on its own goroutine. A run moves
// through downloading, extracting and placing (or uninstalling) and ends in
// exactly one terminal event: complete, cancelled or error. The ledger is
// written only when a run completes.
package orchestrator
