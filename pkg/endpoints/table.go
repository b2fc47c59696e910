package endpoints

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/purelygoods/storefront/pkg/semver"
)

const tableLogPrefix = "endpoints:table"

// SchemaVersion is the endpoint-file schema version written by this build.
const SchemaVersion = "1.0.0"

// SupportedSchemaRange is the range of endpoint-file schema versions this build can read.
const SupportedSchemaRange = "^1.0.0"

// RequiredKeys lists every pair the application resolves through a typed
// accessor. A table missing any of them is rejected at load time.
var RequiredKeys = []Key{
	{Service: ServicePayment, Operation: OperationPing},
	{Service: ServiceCart, Operation: OperationPing},
}

// TableFile is the on-disk JSON form of an endpoint table.
type TableFile struct {
	SchemaVersion string                       `json:"schemaVersion"`
	Endpoints     map[string]map[string]string `json:"endpoints"`
}

// DefaultTable returns the built-in endpoint table.
func DefaultTable() Table {
	return Table{
		ServicePayment: {OperationPing: "payment-service/ping"},
		ServiceCart:    {OperationPing: "cart-service/ping"},
	}
}

// LoadTableFile reads an endpoint table from a JSON file. An empty path
// yields the built-in table.
func LoadTableFile(path string) (Table, error) {
	if path == "" {
		slog.Info(fmt.Sprintf("%s - Using built-in endpoint table", tableLogPrefix))
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", tableLogPrefix, path, err)
	}

	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s - %s: %w", tableLogPrefix, path, err)
	}

	slog.Info(fmt.Sprintf("%s - Loaded endpoint table from %s", tableLogPrefix, path))
	return table, nil
}

// ParseTable decodes and checks a JSON endpoint table.
func ParseTable(data []byte) (Table, error) {
	var f TableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("invalid endpoint file: %v", err)}
	}

	if f.SchemaVersion == "" {
		return nil, &ConfigurationError{Message: "endpoint file has no schemaVersion"}
	}
	if err := semver.CheckCompatible(f.SchemaVersion, SupportedSchemaRange); err != nil {
		return nil, &ConfigurationError{Message: err.Error()}
	}

	table := make(Table, len(f.Endpoints))
	for svc, ops := range f.Endpoints {
		m := make(map[Operation]string, len(ops))
		for op, path := range ops {
			m[Operation(op)] = path
		}
		table[Service(svc)] = m
	}
	return table, nil
}

// ToFile converts a table into its JSON file form.
func (t Table) ToFile() *TableFile {
	f := &TableFile{
		SchemaVersion: SchemaVersion,
		Endpoints:     make(map[string]map[string]string, len(t)),
	}
	for svc, ops := range t {
		m := make(map[string]string, len(ops))
		for op, path := range ops {
			m[string(op)] = path
		}
		f.Endpoints[string(svc)] = m
	}
	return f
}

// Validate checks that every path is well formed and every required key is present.
func (t Table) Validate(required []Key) error {
	for svc, ops := range t {
		if svc == "" {
			return &ConfigurationError{Message: "empty service name"}
		}
		for op, path := range ops {
			if op == "" {
				return &ConfigurationError{Service: svc, Message: "empty operation name"}
			}
			if err := validatePath(path); err != nil {
				return &ConfigurationError{Service: svc, Operation: op, Message: err.Error()}
			}
		}
	}

	for _, k := range required {
		if _, ok := t[k.Service][k.Operation]; !ok {
			return &ConfigurationError{Service: k.Service, Operation: k.Operation, Message: "required endpoint is not registered"}
		}
	}
	return nil
}

func validatePath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty path")
	case strings.HasPrefix(path, "/"):
		return fmt.Errorf("path %q must be relative (no leading slash)", path)
	case strings.Contains(path, "//"):
		return fmt.Errorf("path %q contains an empty segment", path)
	case strings.ContainsAny(path, "?# "):
		return fmt.Errorf("path %q contains a query, fragment or space", path)
	}
	return nil
}
