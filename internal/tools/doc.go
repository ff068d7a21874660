// Package tools exposes the instrument-control operations as named tools.
//
// A Service dispatches one tool call at a time and always answers with a
// JSON-serialisable result. Failures never escape as Go errors: they are
// converted into an ErrorResult carrying a message, a recovery suggestion
// and the raw cause. The same Service backs the MCP stdio server
// (NewMCPServer) and the HTTP API.
//
//	svc := tools.NewService(sess, engine, scanner)
//	svc.SetPublisher(bus)
//	out := svc.Call(ctx, tools.NameAttach, map[string]any{"device_id": "10.0.0.2"})
package tools
