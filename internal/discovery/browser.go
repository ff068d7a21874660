package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Sighting is one device advertisement.
type Sighting struct {
	Instance string
	Host     string
	Addrs    []string
	Port     int
	TXT      map[string]string
}

// Address returns the address used to reach the device: the first IPv4
// address, then the first IPv6 address, then the host name.
func (s Sighting) Address() string {
	if len(s.Addrs) > 0 {
		return s.Addrs[0]
	}
	return strings.TrimSuffix(s.Host, ".")
}

// Name returns the advertised device name, falling back to the instance.
func (s Sighting) Name() string {
	if v := s.TXT["name"]; v != "" {
		return v
	}
	return s.Instance
}

// Serial returns the advertised serial number, if any.
func (s Sighting) Serial() string {
	for _, k := range []string{"serial", "serial_number", "device_serial"} {
		if v := s.TXT[k]; v != "" {
			return v
		}
	}
	return ""
}

// Browser streams advertisements for service until ctx is done.
// Implementations close found before returning.
type Browser interface {
	Browse(ctx context.Context, service, domain string, found chan<- Sighting) error
}

// ZeroconfBrowser browses with github.com/grandcat/zeroconf.
type ZeroconfBrowser struct{}

// Browse implements Browser.
func (ZeroconfBrowser) Browse(ctx context.Context, service, domain string, found chan<- Sighting) error {
	defer close(found)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("creating resolver: %w", err)
	}

	// zeroconf closes entries when ctx is done.
	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return fmt.Errorf("browsing %s: %w", service, err)
	}

	for entry := range entries {
		found <- fromEntry(entry)
	}
	return nil
}

func fromEntry(e *zeroconf.ServiceEntry) Sighting {
	s := Sighting{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		TXT:      parseTXT(e.Text),
	}
	for _, ip := range e.AddrIPv4 {
		s.Addrs = append(s.Addrs, ip.String())
	}
	for _, ip := range e.AddrIPv6 {
		s.Addrs = append(s.Addrs, ip.String())
	}
	return s
}

// parseTXT turns "key=value" records into a map with lower-cased keys.
// Records without '=' are boolean attributes and map to "true".
func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, rec := range records {
		key, value, ok := strings.Cut(rec, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if !ok {
			value = "true"
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
