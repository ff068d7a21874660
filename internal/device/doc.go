// Package device provides the Device Registry and Identifier Resolver.
//
// The registry is a small JSON document (by default
// ~/.moku-mcp/device_cache.json) mapping device IP to its last-known
// port, canonical name, serial number and last-seen time. It exists so
// that users can refer to a Moku by name or serial instead of by IP.
//
// The cache is advisory. Loading a missing or corrupt file yields an empty
// registry and save failures are logged and swallowed, so a broken cache
// never fails a tool call.
//
// # Key Types
//
//   - Record: one device's last-known metadata
//   - Registry: fail-soft, read-modify-write access to the cache file
//   - Resolver: token (IP literal, name, serial) to IP address
//
// # Usage
//
//	reg := device.NewRegistry(cfg.Cache.Path)
//	reg.SetLogger(log)
//	reg.Upsert("192.168.1.50", "Lab-Go", "MG-001", 80)
//
//	res := device.NewResolver(reg)
//	ip, ok := res.Resolve("lab-go") // "192.168.1.50", true
package device
