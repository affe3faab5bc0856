// Package ws streams security events over WebSocket.
//
// Clients connect to the stream endpoint and receive every event the engine
// records, optionally narrowed to one tab.
//
// Message Types (Client → Server):
//   - subscribe: only forward events for tabId (empty tabId for all tabs)
//   - score: request the current threat score of tabId
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection established
//   - subscribed: subscription filter changed
//   - event: a recorded security event
//   - score: threat score reply
//   - pong: keep-alive reply
//   - error: malformed or unknown message
//
// Example Usage:
//
//	handler := ws.NewHandler(security, metrics, logger)
//	router.GET("/security/stream", handler.HandleConnection)
package ws
