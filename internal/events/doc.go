// Package events fans control-core events out to optional sinks.
//
// Tools publish an Event after every attach, release, deployment, routing
// change, and discovery scan. A Bus delivers each event, in order, to
// every registered Sink on a single worker goroutine. Sink failures are
// logged and never reach the tool that published the event.
//
// Sinks in this package:
//   - MQTTSink publishes to moku/events/{type}
//   - InfluxSink writes deployment, discovery, and session points
//   - AuditSink writes audit_logs rows
//
// The HTTP API registers its websocket hub as a further sink.
package events
