package device

import (
	"sort"
	"strings"
	"time"
)

// Record is the last-known metadata for one Moku device, keyed by IP.
type Record struct {
	IP            string    `json:"ip"`
	Port          int       `json:"port"`
	CanonicalName string    `json:"canonical_name,omitempty"`
	SerialNumber  string    `json:"serial_number,omitempty"`
	LastSeen      time.Time `json:"last_seen"`
}

// cacheEntry is the on-disk shape of a record; the IP is the map key.
type cacheEntry struct {
	Port          int    `json:"port"`
	CanonicalName string `json:"canonical_name,omitempty"`
	SerialNumber  string `json:"serial_number,omitempty"`
	LastSeen      string `json:"last_seen"`
}

// Cache is an in-memory snapshot of the device registry.
// It is not safe for concurrent use; the Registry serialises access.
type Cache struct {
	devices map[string]*Record
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{devices: make(map[string]*Record)}
}

// Len returns the number of cached devices.
func (c *Cache) Len() int {
	return len(c.devices)
}

// FindByIP returns the record for ip, if any.
func (c *Cache) FindByIP(ip string) (*Record, bool) {
	rec, ok := c.devices[ip]
	return rec, ok
}

// FindByIdentifier matches token against canonical name or serial number.
// Matching is case-insensitive and the first match in IP order wins.
func (c *Cache) FindByIdentifier(token string) (*Record, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	for _, ip := range c.sortedIPs() {
		rec := c.devices[ip]
		if strings.EqualFold(rec.CanonicalName, token) || strings.EqualFold(rec.SerialNumber, token) {
			return rec, true
		}
	}
	return nil, false
}

// Put inserts or replaces a record.
func (c *Cache) Put(rec Record) error {
	if rec.IP == "" {
		return ErrInvalidRecord
	}
	r := rec
	c.devices[rec.IP] = &r
	return nil
}

// Records returns copies of all records sorted by IP.
func (c *Cache) Records() []Record {
	out := make([]Record, 0, len(c.devices))
	for _, ip := range c.sortedIPs() {
		out = append(out, *c.devices[ip])
	}
	return out
}

func (c *Cache) sortedIPs() []string {
	ips := make([]string, 0, len(c.devices))
	for ip := range c.devices {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}
