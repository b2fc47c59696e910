// Package endpoints implements the endpoint registry: a frozen table of
// (service, operation) pairs mapped to paths relative to the API base URL.
package endpoints

import "fmt"

// Service is the logical name of a backend service (e.g. "PAYMENT").
type Service string

// Operation is the logical name of an operation on a service (e.g. "PING").
type Operation string

// Known services and operations.
const (
	ServicePayment Service = "PAYMENT"
	ServiceCart    Service = "CART"

	OperationPing Operation = "PING"
)

// Key identifies one endpoint in the table.
type Key struct {
	Service   Service   `json:"service"`
	Operation Operation `json:"operation"`
}

func (k Key) String() string {
	return string(k.Service) + "." + string(k.Operation)
}

// Table maps services to their operations and relative paths.
type Table map[Service]map[Operation]string

// Entry is one resolved row of the registry, used for listings.
type Entry struct {
	Service   Service   `json:"service"`
	Operation Operation `json:"operation"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
}

// ConfigurationError reports an endpoint table defect: a pair that is not
// registered, a malformed path, or an unusable base URL.
type ConfigurationError struct {
	Service   Service
	Operation Operation
	Message   string
}

func (e *ConfigurationError) Error() string {
	if e.Service == "" && e.Operation == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s.%s: %s", e.Service, e.Operation, e.Message)
}
