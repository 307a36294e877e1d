package report

import (
	"errors"
	"net"
	"strings"

	"github.com/GriffinCanCode/telemetry/internal/shared/id"
)

// Kind is the application-error taxonomy.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindServer         Kind = "server"
	KindClient         Kind = "client"
	KindUnknown        Kind = "unknown"
)

// Severity grades an error's user impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// StructuredError wraps a classified application error. RetryCount is
// mutated only by the reporter's retry scheduler.
type StructuredError struct {
	ID         id.ErrorID     `json:"id"`
	Kind       Kind           `json:"kind"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	Retryable  bool           `json:"retryable"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

func (e *StructuredError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Classify infers kind, severity and retryability for a raw error. It never
// fails: unrecognized shapes classify as unknown/medium/non-retryable.
func Classify(err error) (Kind, Severity, bool) {
	if err == nil {
		return KindUnknown, SeverityMedium, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork, severityFor(KindNetwork), true
	}

	kind := kindFromMessage(strings.ToLower(err.Error()))
	return kind, severityFor(kind), retryableFor(kind)
}

func kindFromMessage(msg string) Kind {
	switch {
	case containsAny(msg, "unauthorized", "unauthenticated", "authentication", "401", "invalid credentials", "token expired"):
		return KindAuthentication
	case containsAny(msg, "forbidden", "permission denied", "access denied", "403"):
		return KindAuthorization
	case containsAny(msg, "validation", "invalid input", "malformed", "bad request", "400"):
		return KindValidation
	case containsAny(msg, "network", "connection refused", "connection reset", "timeout", "timed out", "no such host", "broken pipe", "unreachable"):
		return KindNetwork
	case containsAny(msg, "internal server error", "server error", "bad gateway", "service unavailable", "500", "502", "503"):
		return KindServer
	case containsAny(msg, "client error", "not found", "404", "conflict", "409"):
		return KindClient
	default:
		return KindUnknown
	}
}

// severityFor maps kind to severity. Critical is reserved for server-side
// failures; the forced-restart policy keys off that pairing.
func severityFor(kind Kind) Severity {
	switch kind {
	case KindValidation, KindClient:
		return SeverityLow
	case KindNetwork, KindUnknown:
		return SeverityMedium
	case KindAuthentication, KindAuthorization:
		return SeverityHigh
	case KindServer:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// retryableFor: transient infrastructure faults are worth retrying, caller
// mistakes and auth failures are not.
func retryableFor(kind Kind) bool {
	return kind == KindNetwork || kind == KindServer
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
