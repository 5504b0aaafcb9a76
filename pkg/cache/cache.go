package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrUnavailable is returned by a tier whose backing store cannot be
// reached. The tiered cache treats it as a miss and degrades to the
// other tier.
var ErrUnavailable = errors.New("cache: store unavailable")

// Value is a cache value. Whether a value is a raw scalar string or a
// structured record is decided explicitly at the call site via the
// Scalar and Structured constructors, never inferred from the value's
// runtime shape.
//
// Structured values are serialized to JSON on write and decoded on
// read. Scalar values pass through unmodified; a stored string that
// fails JSON decoding is returned as a scalar, preserving compatibility
// with entries written by non-encoding-aware writers.
type Value struct {
	raw        string
	structured any
	isStruct   bool
}

// Scalar wraps a raw string value.
func Scalar(s string) Value {
	return Value{raw: s}
}

// Structured wraps a structured (JSON-serializable) value.
func Structured(v any) Value {
	return Value{structured: v, isStruct: true}
}

// IsStructured reports whether the value carries a structured record.
func (v Value) IsStructured() bool {
	return v.isStruct
}

// String returns the scalar form. For structured values it returns the
// JSON encoding.
func (v Value) String() string {
	if !v.isStruct {
		return v.raw
	}
	data, err := json.Marshal(v.structured)
	if err != nil {
		return ""
	}
	return string(data)
}

// Interface returns the structured form, or the raw string for scalars.
func (v Value) Interface() any {
	if v.isStruct {
		return v.structured
	}
	return v.raw
}

// Encode serializes the value to its stored text form: JSON for
// structured values, the raw string otherwise.
func (v Value) Encode() (string, error) {
	if !v.isStruct {
		return v.raw, nil
	}
	data, err := json.Marshal(v.structured)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeValue converts a stored text form back into a Value. Text that
// parses as JSON becomes a structured value; anything else is returned
// as a scalar unchanged.
func DecodeValue(stored string) Value {
	var decoded any
	if err := json.Unmarshal([]byte(stored), &decoded); err != nil {
		return Scalar(stored)
	}
	// JSON strings round-trip as scalars so that Scalar("x") written by
	// another process reads back identically.
	if s, ok := decoded.(string); ok {
		return Scalar(s)
	}
	return Structured(decoded)
}

// Tier is a single cache store. Implementations must be safe for
// concurrent use. A tier signals an unreachable backing store with
// ErrUnavailable rather than blocking.
type Tier interface {
	// Name identifies the tier in logs ("redis", "file", "memory").
	Name() string

	// Get returns the value for key. The second result is false when the
	// key is absent or expired; expired entries are evicted eagerly.
	Get(ctx context.Context, key string) (Value, bool, error)

	// Set stores value under key. A zero ttl means "never expire" at the
	// tier level; the tiered cache substitutes its default TTL before
	// calling Set.
	Set(ctx context.Context, key string, value Value, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this tier.
	Clear(ctx context.Context) error
}
