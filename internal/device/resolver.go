package device

import "strings"

// Lookup is the part of the registry the resolver needs.
type Lookup interface {
	FindByIdentifier(token string) (Record, bool)
}

// Resolver maps a user-supplied token (IP literal, name or serial) to an
// address. It performs no network I/O.
type Resolver struct {
	lookup Lookup
	logger Logger
}

// NewResolver creates a resolver over the given registry lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, logger: noopLogger{}}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve returns the address for token.
//
// Policy, in order:
//  1. a numeric address literal is returned verbatim, without consulting the registry
//  2. a registry name or serial match returns the cached IP
//  3. otherwise ok is false
func (r *Resolver) Resolve(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	if IsAddressLiteral(token) {
		return token, true
	}

	if rec, ok := r.lookup.FindByIdentifier(token); ok {
		r.logger.Info("resolved device identifier", "identifier", token, "ip", rec.IP)
		return rec.IP, true
	}

	r.logger.Warn("could not resolve device identifier", "identifier", token)
	return "", false
}

// IsAddressLiteral reports whether token is a dotted or colon-separated
// numeric address (IPv4, IPv4:port, or an all-numeric IPv6 form).
// Reachability is not checked.
func IsAddressLiteral(token string) bool {
	if !strings.ContainsAny(token, ".:") {
		return false
	}
	digits := 0
	for _, c := range token {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' || c == ':':
		default:
			return false
		}
	}
	return digits > 0
}

// IsHostLike reports whether token could plausibly be used as a network
// host even though it is not a numeric literal, e.g. "moku-go.local".
func IsHostLike(token string) bool {
	if token == "" || strings.ContainsAny(token, " \t\r\n/") {
		return false
	}
	return strings.ContainsAny(token, ".:")
}
