// Package discovery finds Moku devices on the local network.
//
// A Scan browses mDNS for the configured service type for a fixed
// wall-clock timeout, then finalises with whatever was sighted. Each
// sighting is merged into the device registry. Devices whose advertisement
// lacks a name or serial can be enriched through a read-only summary
// request, which never claims ownership.
//
// The mDNS transport sits behind the Browser interface; ZeroconfBrowser is
// the production implementation.
package discovery
