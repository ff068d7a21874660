// Package deploy realises configurations on an owned device.
//
// Engine.Deploy walks the declared slots in ascending slot order, loads
// each instrument, applies control registers in declared order and
// oscilloscope settings, then applies the routing matrix in a single call.
// A failing slot stops the run: earlier slots stay deployed on hardware
// (there is no rollback) and later slots are reported as not attempted.
//
// The device has no read-back for routing, so the last fully deployed
// config is cached in the session. EffectiveConfig prefers that cache and
// otherwise reconstructs slot instruments from live queries with an empty
// routing list.
//
// Every deployment report is assigned a UUID and, when a History is set,
// persisted to the deployments table.
package deploy
