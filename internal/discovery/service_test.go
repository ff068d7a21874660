package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/moku-core/internal/device"
	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/moku"
	"github.com/nerrad567/moku-core/internal/moku/mokutest"
)

// fakeBrowser replays sightings, then waits for the scan deadline when
// hold is set.
type fakeBrowser struct {
	sightings []Sighting
	hold      bool
	err       error

	gotService string
	gotDomain  string
}

func (b *fakeBrowser) Browse(ctx context.Context, service, domain string, found chan<- Sighting) error {
	defer close(found)
	b.gotService, b.gotDomain = service, domain
	if b.err != nil {
		return b.err
	}
	for _, s := range b.sightings {
		select {
		case found <- s:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if b.hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func newTestService(t *testing.T, b Browser, d moku.Describer, enrich bool) (*Service, *device.Registry) {
	t.Helper()
	reg := device.NewRegistry(filepath.Join(t.TempDir(), "device_cache.json"))
	cfg := config.DiscoveryConfig{Service: "_moku._tcp", Domain: "local.", DefaultTimeout: 2 * time.Second, Enrich: enrich}
	return NewService(b, d, reg, cfg), reg
}

func TestScan_RecordsSortedDevices(t *testing.T) {
	b := &fakeBrowser{sightings: []Sighting{
		{Instance: "Moku-Pro", Addrs: []string{"192.168.1.20"}, Port: 80, TXT: map[string]string{"name": "Bench-Pro", "serial": "MP-7"}},
		{Instance: "Moku-Go", Addrs: []string{"192.168.1.10"}, Port: 8080, TXT: map[string]string{"serial_number": "MG-1"}},
	}}
	s, reg := newTestService(t, b, nil, false)

	res, err := s.Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Count != 2 || len(res.Devices) != 2 {
		t.Fatalf("Count = %d, devices = %d", res.Count, len(res.Devices))
	}
	if res.Devices[0].IP != "192.168.1.10" || res.Devices[1].IP != "192.168.1.20" {
		t.Errorf("order = %s, %s", res.Devices[0].IP, res.Devices[1].IP)
	}
	if res.Devices[0].CanonicalName != "Moku-Go" || res.Devices[0].SerialNumber != "MG-1" || res.Devices[0].Port != 8080 {
		t.Errorf("first = %+v", res.Devices[0])
	}
	if b.gotService != "_moku._tcp" || b.gotDomain != "local." {
		t.Errorf("browsed %q in %q", b.gotService, b.gotDomain)
	}

	rec, ok := reg.FindByIdentifier("bench-pro")
	if !ok || rec.IP != "192.168.1.20" {
		t.Errorf("registry lookup = %+v, %v", rec, ok)
	}
}

func TestScan_DeduplicatesByAddress(t *testing.T) {
	b := &fakeBrowser{sightings: []Sighting{
		{Instance: "Moku-Go", Addrs: []string{"10.0.0.5"}},
		{Instance: "Moku-Go", Addrs: []string{"10.0.0.5"}, TXT: map[string]string{"serial": "MG-9"}},
	}}
	s, reg := newTestService(t, b, nil, false)

	res, err := s.Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Count != 1 || res.Devices[0].SerialNumber != "MG-9" {
		t.Errorf("result = %+v", res.Devices)
	}
	if n := len(reg.List()); n != 1 {
		t.Errorf("registry has %d records, want 1", n)
	}
}

func TestScan_EnrichesMissingIdentity(t *testing.T) {
	fake := mokutest.NewGo()
	b := &fakeBrowser{sightings: []Sighting{
		{Instance: "moku", Addrs: []string{"10.0.0.7"}},
		{Instance: "known", Addrs: []string{"10.0.0.8"}, TXT: map[string]string{"name": "Known", "serial": "MG-8"}},
	}}
	s, _ := newTestService(t, b, fake, true)

	res, err := s.Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Enriched != 1 {
		t.Errorf("Enriched = %d, want 1", res.Enriched)
	}
	if res.Devices[0].CanonicalName != "Lab-Go" || res.Devices[0].SerialNumber != "MG-001" {
		t.Errorf("enriched device = %+v", res.Devices[0])
	}
	if res.Devices[1].SerialNumber != "MG-8" {
		t.Errorf("advertised device = %+v", res.Devices[1])
	}
	for _, c := range fake.CallLog() {
		if c != "describe 10.0.0.7" {
			t.Errorf("unexpected device call %q", c)
		}
	}
}

func TestScan_EnrichmentFailureKeepsSighting(t *testing.T) {
	fake := mokutest.NewGo()
	fake.DescribeErr = errors.New("no route")
	b := &fakeBrowser{sightings: []Sighting{{Instance: "moku", Addrs: []string{"10.0.0.7"}}}}
	s, _ := newTestService(t, b, fake, true)

	res, err := s.Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Count != 1 || res.Enriched != 0 || res.Devices[0].CanonicalName != "moku" {
		t.Errorf("result = %+v", res)
	}
}

func TestScan_StopsAtTimeout(t *testing.T) {
	b := &fakeBrowser{hold: true, sightings: []Sighting{{Instance: "a", Addrs: []string{"10.0.0.1"}}}}
	s, _ := newTestService(t, b, nil, false)

	start := time.Now()
	res, err := s.Scan(context.Background(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < MinTimeout {
		t.Errorf("Scan returned after %v, want at least %v", elapsed, MinTimeout)
	}
	if res.Timeout != MinTimeout || res.Count != 1 {
		t.Errorf("Timeout = %v, Count = %d", res.Timeout, res.Count)
	}
}

func TestScan_BrowseError(t *testing.T) {
	s, _ := newTestService(t, &fakeBrowser{err: errors.New("no multicast interface")}, nil, false)

	if _, err := s.Scan(context.Background(), time.Second); !errors.Is(err, ErrBrowse) {
		t.Errorf("error = %v, want ErrBrowse", err)
	}
}

func TestClampTimeout(t *testing.T) {
	s, _ := newTestService(t, &fakeBrowser{}, nil, false)

	tests := []struct {
		in, want time.Duration
	}{
		{0, 2 * time.Second},
		{-time.Second, 2 * time.Second},
		{100 * time.Millisecond, MinTimeout},
		{5 * time.Second, 5 * time.Second},
		{time.Minute, MaxTimeout},
	}
	for _, tt := range tests {
		if got := s.ClampTimeout(tt.in); got != tt.want {
			t.Errorf("ClampTimeout(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSightingAccessors(t *testing.T) {
	s := Sighting{Instance: "Moku-Go-1", Host: "moku-go.local.", TXT: parseTXT([]string{"Name=Bench", "SERIAL = MG-3", "secure"})}
	if s.Address() != "moku-go.local" {
		t.Errorf("Address() = %q", s.Address())
	}
	if s.Name() != "Bench" || s.Serial() != "MG-3" {
		t.Errorf("Name() = %q, Serial() = %q", s.Name(), s.Serial())
	}
	if s.TXT["secure"] != "true" {
		t.Errorf("flag attribute = %q", s.TXT["secure"])
	}
}
