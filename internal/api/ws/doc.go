// Package ws streams launcher events over WebSocket and accepts app commands.
//
// Message Types (Client → Server):
//   - install, update, repair, uninstall: enqueue an operation for appId
//   - cancel: stop the running operation of appId
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection greeting
//   - event: a lifecycle event (progress, complete, cancelled, error)
//   - ack: command accepted, message carries the job id
//   - pong: reply to ping
//   - error: command rejected
//
// A connection opened with ?appId=<id> only receives that app's events.
//
// Example Usage:
//
//	handler := ws.NewHandler(orch, hub, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
