// Package api implements the HTTP REST API and WebSocket event stream.
//
// This package provides:
//   - POST /api/v1/tools/{name}, the same tool surface the MCP server exposes
//   - read-only views of the device cache, deployment history and audit trail
//   - a WebSocket hub that relays session, deployment and discovery events
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// Tool calls from HTTP go through the same tools.Service as MCP calls, so
// they share its dispatch lock and can never interleave with an agent's
// calls on the device. The hub is an events.Sink registered on the bus.
//
// # Event stream
//
// Clients send
//
//	{"type": "subscribe", "id": "1", "payload": {"channels": ["deploy.completed"], "devices": ["10.0.0.2"]}}
//
// and then receive one "event" frame per matching bus event. "*" matches
// every event type; an empty device list matches every device.
//
// # Security
//
// When security.jwt.secret is empty the API is open and every caller acts
// as an operator. Otherwise every route except /health and /metrics needs
// a Bearer token; viewers may read but not invoke tools.
package api
