// Package session implements the single-writer ownership session.
//
// A Session is Idle (no handle) or Owned (handle present, target
// recorded). Attach and Takeover move Idle to Owned; Release always ends
// Idle, even when the device refuses to relinquish.
//
// Exactly one Session is created per process (in cmd/mokumcp) and passed
// to every component that needs it. The session is the only code that
// calls moku.Connector, so it is the only creator of device handles.
//
// # State machine
//
//	         Attach / Takeover
//	  Idle ─────────────────────▶ Owned
//	   ▲  (connect fails: stays)    │
//	   └────────────────────────────┘
//	         Release (always)
package session
