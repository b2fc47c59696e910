package endpoints

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Registry resolves endpoint URLs. It is immutable once built and safe for
// concurrent use.
type Registry struct {
	baseURL string
	paths   map[Service]map[Operation]string
}

// NewRegistry freezes table behind baseURL. The base URL must be an absolute
// http(s) URL; trailing slashes are dropped so that resolved URLs always have
// exactly one separating slash. The table must contain every key in RequiredKeys.
func NewRegistry(baseURL string, table Table) (*Registry, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(RequiredKeys); err != nil {
		return nil, err
	}

	paths := make(map[Service]map[Operation]string, len(table))
	for svc, ops := range table {
		m := make(map[Operation]string, len(ops))
		for op, p := range ops {
			m[op] = p
		}
		paths[svc] = m
	}
	return &Registry{baseURL: base, paths: paths}, nil
}

// MustNewRegistry is like NewRegistry but panics on a configuration error.
func MustNewRegistry(baseURL string, table Table) *Registry {
	r, err := NewRegistry(baseURL, table)
	if err != nil {
		panic(err)
	}
	return r
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", &ConfigurationError{Message: "base URL is empty"}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", &ConfigurationError{Message: fmt.Sprintf("base URL %q: %v", raw, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigurationError{Message: fmt.Sprintf("base URL %q must use http or https", raw)}
	}
	if u.Host == "" {
		return "", &ConfigurationError{Message: fmt.Sprintf("base URL %q has no host", raw)}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", &ConfigurationError{Message: fmt.Sprintf("base URL %q must not carry a query or fragment", raw)}
	}
	if strings.Contains(u.Path, "//") {
		return "", &ConfigurationError{Message: fmt.Sprintf("base URL %q contains an empty path segment", raw)}
	}
	return trimmed, nil
}

// BaseURL returns the normalized base URL.
func (r *Registry) BaseURL() string {
	return r.baseURL
}

// Resolve returns base URL + "/" + the path registered for (svc, op).
// Lookups are exact and case-sensitive; an absent pair yields a *ConfigurationError.
func (r *Registry) Resolve(svc Service, op Operation) (string, error) {
	ops, ok := r.paths[svc]
	if !ok {
		return "", &ConfigurationError{Service: svc, Operation: op, Message: "unknown service"}
	}
	path, ok := ops[op]
	if !ok {
		return "", &ConfigurationError{Service: svc, Operation: op, Message: "unknown operation"}
	}
	return r.baseURL + "/" + path, nil
}

// MustResolve is like Resolve but panics with the *ConfigurationError.
func (r *Registry) MustResolve(svc Service, op Operation) string {
	u, err := r.Resolve(svc, op)
	if err != nil {
		panic(err)
	}
	return u
}

// PaymentPing returns the payment service ping URL.
func (r *Registry) PaymentPing() string {
	return r.MustResolve(ServicePayment, OperationPing)
}

// CartPing returns the cart service ping URL.
func (r *Registry) CartPing() string {
	return r.MustResolve(ServiceCart, OperationPing)
}

// Table returns a copy of the registered paths.
func (r *Registry) Table() Table {
	t := make(Table, len(r.paths))
	for svc, ops := range r.paths {
		m := make(map[Operation]string, len(ops))
		for op, p := range ops {
			m[op] = p
		}
		t[svc] = m
	}
	return t
}

// Entries lists every endpoint with its resolved URL, sorted by service then operation.
func (r *Registry) Entries() []Entry {
	var out []Entry
	for svc, ops := range r.paths {
		for op, p := range ops {
			out = append(out, Entry{Service: svc, Operation: op, Path: p, URL: r.baseURL + "/" + p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// Keys lists the registered keys in the same order as Entries.
func (r *Registry) Keys() []Key {
	entries := r.Entries()
	keys := make([]Key, len(entries))
	for i, e := range entries {
		keys[i] = Key{Service: e.Service, Operation: e.Operation}
	}
	return keys
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
