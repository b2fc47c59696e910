package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectOutcome = "storefront.outcome"
)

// BuildOutcomeSubject builds the per-endpoint outcome subject, e.g.
// "storefront.outcome.payment.ping" for PAYMENT.PING under the default prefix.
func BuildOutcomeSubject(prefix, service, operation string) string {
	if prefix == "" {
		prefix = SubjectOutcome
	}
	return fmt.Sprintf("%s.%s.%s", prefix, subjectToken(service), subjectToken(operation))
}

// subjectToken lowercases s and replaces characters NATS treats specially.
func subjectToken(s string) string {
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return r.Replace(strings.ToLower(s))
}
