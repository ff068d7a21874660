// Package moku is the boundary to the Moku device firmware.
//
// Connector claims ownership of a device and returns a Handle, the only
// object that can mutate slots or routing. Describer reads identity
// without claiming ownership, for discovery enrichment.
//
// Client implements all three over the device's HTTP JSON API. Tests use
// the in-memory fake in package mokutest.
package moku
