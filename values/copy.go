package values

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
)

// DefaultCompressThreshold is the serialized size in bytes above which a
// payload is gzip-compressed before transport.
const DefaultCompressThreshold = 4096

// placeholderMessage replaces errors whose externalization itself failed, so
// the caller never silently loses a failure.
const placeholderMessage = "an error was thrown but could not be externalized"

type copyKind uint8

const (
	kindValue copyKind = iota
	kindError
)

// ExternalCopy is a context-independent representation of a value or a
// thrown error. It holds no reference to the heap it was copied from and can
// be materialized inside any environment.
type ExternalCopy struct {
	kind       copyKind
	name       string
	message    string
	stack      Stack
	payload    []byte
	compressed bool
}

// Externalize deep-copies a value by serialization. Returns an error when the
// value cannot be represented outside its heap (cycles, channels, funcs).
func Externalize(v any) (*ExternalCopy, error) {
	return externalizeWithThreshold(v, DefaultCompressThreshold)
}

// ExternalizeCompressed is Externalize with an explicit compression threshold.
// A threshold <= 0 disables compression.
func ExternalizeCompressed(v any, threshold int) (*ExternalCopy, error) {
	return externalizeWithThreshold(v, threshold)
}

func externalizeWithThreshold(v any, threshold int) (*ExternalCopy, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not externalizable: %w", err)
	}

	c := &ExternalCopy{kind: kindValue, payload: data}
	if threshold > 0 && len(data) > threshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err == nil && zw.Close() == nil {
			c.payload = buf.Bytes()
			c.compressed = true
		}
	}
	return c, nil
}

// ExternalizeError converts a thrown error into a transferable copy. It never
// fails: an error that resists externalization is replaced by a generic
// placeholder so the failure is not lost.
func ExternalizeError(err error) *ExternalCopy {
	if err == nil {
		return &ExternalCopy{kind: kindError, name: "Error", message: placeholderMessage}
	}

	c := &ExternalCopy{kind: kindError, name: "Error", message: err.Error()}
	var re *RemoteError
	if errors.As(err, &re) {
		c.name = re.Name
		c.message = re.Message
		c.stack = append(Stack(nil), re.Stack...)
	}
	return c
}

// IsError reports whether the copy carries a thrown error.
func (c *ExternalCopy) IsError() bool {
	return c.kind == kindError
}

// Size returns the transported payload size in bytes.
func (c *ExternalCopy) Size() int {
	return len(c.payload)
}

// Materialize reconstructs the copied value. For error copies the returned
// value is the materialized *RemoteError.
func (c *ExternalCopy) Materialize() (any, error) {
	if c.kind == kindError {
		return c.MaterializeError(), nil
	}

	data := c.payload
	if c.compressed {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("corrupt compressed payload: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("corrupt compressed payload: %w", err)
		}
	}

	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to materialize value: %w", err)
	}
	return v, nil
}

// MaterializeError reconstructs an error copy as a live error value. The
// returned error owns a fresh copy of the stack so the caller may chain onto
// it freely.
func (c *ExternalCopy) MaterializeError() error {
	return &RemoteError{
		Name:    c.name,
		Message: c.message,
		Stack:   append(Stack(nil), c.stack...),
	}
}
