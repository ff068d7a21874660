package device

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// defaultPort is the Moku REST port assumed when none is known.
const defaultPort = 80

// Registry is the persistent device cache.
//
// It is an optimisation, not a source of truth: Load never fails (a missing
// or corrupt file is an empty registry) and Save only logs failures. Every
// update is a read-modify-write of the whole file.
//
// All public methods are safe for concurrent use within one process.
type Registry struct {
	store  *FileStore
	mu     sync.Mutex
	logger Logger
	now    func() time.Time
}

// NewRegistry creates a registry backed by the JSON file at path.
func NewRegistry(path string) *Registry {
	return &Registry{
		store:  NewFileStore(path),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Path returns the backing file location.
func (r *Registry) Path() string {
	return r.store.Path()
}

// Load reads the cache from disk. It never fails.
func (r *Registry) Load() *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Registry) load() *Cache {
	cache, err := r.store.Read()
	switch {
	case err == nil:
		r.logger.Debug("device cache loaded", "devices", cache.Len(), "path", r.store.Path())
	case isMissing(err):
		r.logger.Info("no device cache found, starting empty", "path", r.store.Path())
	default:
		r.logger.Error("failed to load device cache, starting empty", "path", r.store.Path(), "error", err)
	}
	return cache
}

// Save writes the cache to disk. Failures are logged, not returned.
func (r *Registry) Save(cache *Cache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.save(cache)
}

func (r *Registry) save(cache *Cache) {
	if err := r.store.Write(cache); err != nil {
		r.logger.Error("failed to save device cache", "path", r.store.Path(), "error", err)
		return
	}
	r.logger.Debug("device cache saved", "devices", cache.Len())
}

// FindByIP returns the cached record for ip.
func (r *Registry) FindByIP(ip string) (Record, bool) {
	rec, ok := r.Load().FindByIP(ip)
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// FindByIdentifier returns the first record whose name or serial matches token.
func (r *Registry) FindByIdentifier(token string) (Record, bool) {
	rec, ok := r.Load().FindByIdentifier(token)
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns all cached records sorted by IP.
func (r *Registry) List() []Record {
	return r.Load().Records()
}

// Upsert merges a sighting into the record for ip, creating it if needed.
//
// LastSeen is always refreshed. Empty name or serial never erase known
// values, and a non-positive port keeps the existing one.
func (r *Registry) Upsert(ip, name, serial string, port int) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache := r.load()
	rec, ok := cache.FindByIP(ip)
	var merged Record
	if ok {
		merged = *rec
	} else {
		merged = Record{IP: ip, Port: defaultPort}
	}

	if port > 0 {
		merged.Port = port
	}
	if name != "" {
		merged.CanonicalName = name
	}
	if serial != "" {
		merged.SerialNumber = serial
	}
	merged.LastSeen = r.now().UTC()

	if err := cache.Put(merged); err != nil {
		r.logger.Warn("ignoring device sighting", "error", err)
		return merged
	}
	r.save(cache)
	return merged
}
