// Package id provides centralized ID generation for the telemetry pipeline.
//
// This package offers type-safe ULID generation with:
//   - Lexicographic sortability: span/trace IDs order by creation time
//   - Prefixed types: Type-specific prefixes for debugging (span_*, trace_*, evt_*)
//   - Type safety: Separate types prevent ID misuse
//   - Performance: Mutex-guarded entropy, ~2μs per ULID
//
// Design Principles:
//   - ULIDs only: Single ID format across the pipeline
//   - K-sortable: Timeline queries without timestamps
//   - Debuggable: Prefixes make exported payloads readable
//   - Session affinity: One session ID per process lifetime
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// SpanID identifies a single span
type SpanID string

// TraceID identifies a trace (the tree of spans sharing it)
type TraceID string

// EventID identifies a telemetry event or span event
type EventID string

// SessionID identifies a process-lifetime telemetry session
type SessionID string

// BatchID identifies an export batch
type BatchID string

// ErrorID identifies a structured error instance
type ErrorID string

// ============================================================================
// ID Prefixes (for debugging and type identification)
// ============================================================================

const (
	SpanPrefix    = "span"
	TracePrefix   = "trace"
	EventPrefix   = "evt"
	SessionPrefix = "sess"
	BatchPrefix   = "batch"
	ErrorPrefix   = "err"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	// Default generator with cryptographically secure entropy
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewEventID generates a new event ID
func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

// NewBatchID generates a new batch ID
func NewBatchID() BatchID {
	return BatchID(Default().GenerateWithPrefix(BatchPrefix))
}

// NewErrorID generates a new error ID
func NewErrorID() ErrorID {
	return ErrorID(Default().GenerateWithPrefix(ErrorPrefix))
}

// ============================================================================
// Session ID (cached for the process lifetime)
// ============================================================================

var (
	sessionMu sync.Mutex
	sessionID SessionID
)

// Session returns the process-wide session ID, generating it on first use.
// Every call after the first returns the same value until ResetSession.
func Session() SessionID {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionID == "" {
		sessionID = SessionID(Default().GenerateWithPrefix(SessionPrefix))
	}
	return sessionID
}

// ResetSession clears the cached session ID. The next Session call mints a
// fresh one. Used at session teardown and in tests.
func ResetSession() {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	sessionID = ""
}

// ============================================================================
// Type Conversion and Validation
// ============================================================================

// String methods for ID types
func (id SpanID) String() string    { return string(id) }
func (id TraceID) String() string   { return string(id) }
func (id EventID) String() string   { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id BatchID) String() string   { return string(id) }
func (id ErrorID) String() string   { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
