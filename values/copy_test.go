package values

import (
	"errors"
	"strings"
	"testing"
)

func TestExternalizeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{
			name:  "number",
			value: 42,
			want:  float64(42), // JSON numbers come back as float64
		},
		{
			name:  "string",
			value: "hello",
			want:  "hello",
		},
		{
			name:  "bool",
			value: true,
			want:  true,
		},
		{
			name:  "nil",
			value: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Externalize(tt.value)
			if err != nil {
				t.Fatalf("Externalize() error = %v", err)
			}
			if c.IsError() {
				t.Error("value copy should not be an error copy")
			}

			got, err := c.Materialize()
			if err != nil {
				t.Fatalf("Materialize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Materialize() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestExternalizeComposite(t *testing.T) {
	c, err := Externalize(map[string]any{"a": []any{1, 2, 3}, "b": "x"})
	if err != nil {
		t.Fatalf("Externalize() error = %v", err)
	}

	got, err := c.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["b"] != "x" {
		t.Errorf("expected b=x, got %v", m["b"])
	}
}

func TestExternalizeUnsupported(t *testing.T) {
	_, err := Externalize(make(chan int))
	if err == nil {
		t.Error("externalizing a channel should fail")
	}
}

func TestExternalizeCompression(t *testing.T) {
	big := strings.Repeat("abcdefgh", 4096)

	c, err := ExternalizeCompressed(big, 1024)
	if err != nil {
		t.Fatalf("Externalize() error = %v", err)
	}
	if !c.compressed {
		t.Error("large payload should be compressed")
	}
	if c.Size() >= len(big) {
		t.Errorf("compressed size %d should be below raw size %d", c.Size(), len(big))
	}

	got, err := c.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if got != big {
		t.Error("compressed round trip should preserve the value")
	}
}

func TestExternalizeCompressionDisabled(t *testing.T) {
	big := strings.Repeat("abcdefgh", 4096)

	c, err := ExternalizeCompressed(big, 0)
	if err != nil {
		t.Fatalf("Externalize() error = %v", err)
	}
	if c.compressed {
		t.Error("threshold 0 should disable compression")
	}
}

func TestExternalizeError(t *testing.T) {
	c := ExternalizeError(errors.New("boom"))

	if !c.IsError() {
		t.Fatal("error copy should report IsError")
	}

	err := c.MaterializeError()
	if err.Error() != "boom" {
		t.Errorf("expected message 'boom', got %q", err.Error())
	}
}

func TestExternalizeErrorKeepsStack(t *testing.T) {
	thrown := Attach(errors.New("boom"), Capture(0, 10))

	c := ExternalizeError(thrown)
	err := c.MaterializeError()

	re, ok := err.(*RemoteError)
	if !ok {
		t.Fatalf("expected *RemoteError, got %T", err)
	}
	if len(re.Stack) == 0 {
		t.Error("materialized error should keep the throw-site stack")
	}
}

func TestExternalizeErrorNil(t *testing.T) {
	c := ExternalizeError(nil)

	err := c.MaterializeError()
	if !strings.Contains(err.Error(), "could not be externalized") {
		t.Errorf("nil error should materialize as the placeholder, got %q", err.Error())
	}
}

func TestMaterializeErrorIsIndependent(t *testing.T) {
	thrown := Attach(errors.New("boom"), Capture(0, 4))
	c := ExternalizeError(thrown)

	first := c.MaterializeError().(*RemoteError)
	second := c.MaterializeError().(*RemoteError)

	first.Stack = append(first.Stack, "mutated")
	if len(second.Stack) == len(first.Stack) {
		t.Error("each materialization should own an independent stack")
	}
}
