// Package id provides centralized ID generation for the bridge.
//
// This package offers type-safe ULID generation with:
//   - Lexicographic sortability: queue entries sort by creation time
//   - Prefixed types: type-specific prefixes for debugging (env_*, task_*, trace_*)
//   - Type safety: separate types prevent ID misuse
//   - Performance: ~2μs per ULID
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EnvID identifies an execution environment
type EnvID string

// TaskID identifies a queued work item
type TaskID string

// TraceID identifies a tracing correlation scope
type TraceID string

// ID prefixes, for debugging and type identification.
const (
	EnvPrefix   = "env"
	TaskPrefix  = "task"
	TracePrefix = "trace"
)

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

// NewGeneratorWithEntropy creates a generator with custom entropy source.
// Useful for testing with deterministic entropy.
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

// NewEnvID generates a new environment ID
func NewEnvID() EnvID {
	return EnvID(Default().GenerateWithPrefix(EnvPrefix))
}

// NewTaskID generates a new task ID
func NewTaskID() TaskID {
	return TaskID(Default().GenerateWithPrefix(TaskPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// String methods for ID types
func (id EnvID) String() string   { return string(id) }
func (id TaskID) String() string  { return string(id) }
func (id TraceID) String() string { return string(id) }

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
