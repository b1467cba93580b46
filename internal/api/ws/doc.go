// Package ws streams grading session activity over WebSocket.
//
// Message Types (Client → Server):
//   - submit: grade {"code"} in a fresh host
//   - run: request a snapshot of {"run_id"}
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: hello with the exercise and latest run
//   - run: a status transition; terminal ones carry the full run
//   - submitted: the run ID a submit produced
//   - run_snapshot, pong, error
//   - closed: the session was closed; the socket closes next
//
// Example Usage:
//
//	handler := ws.NewHandler(coordinator, metrics, logger)
//	router.GET("/sessions/:id/stream", handler.HandleConnection)
package ws
