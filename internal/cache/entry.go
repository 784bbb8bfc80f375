// Package cache implements the two-tier build cache: a bounded, time-expiring
// in-memory index in front of a durable one-file-per-entry disk directory.
// Memory is an accelerator; disk is the long-lived ground truth. Entries are
// immutable once written: a changed input produces a new key rather than
// mutating an existing entry.
package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags a cache entry with the asset pipeline that produced it.
type Kind string

const (
	KindImage  Kind = "image"
	KindStyle  Kind = "style"
	KindScript Kind = "script"
)

// Entry is a single cache record. The payload is opaque to the store itself;
// its shape is kind-specific and interpreted by the owning pipeline.
type Entry struct {
	Key       string          `json:"key"`
	Kind      Kind            `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEntry builds an entry for key/kind around a JSON-serializable payload.
func NewEntry(key string, kind Kind, payload any) (*Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return &Entry{
		Key:       key,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Payload decodes an entry's payload into T.
func Payload[T any](e *Entry) (T, error) {
	var v T
	if e == nil {
		return v, fmt.Errorf("nil cache entry")
	}
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
	}
	return v, nil
}

// Validator reports whether a cached entry is still consistent with current
// filesystem state (source mtimes, dependency timestamps). Validators never
// mutate state; only the store acts on their verdict. Each asset pipeline
// supplies the variant for its own kind.
type Validator func(*Entry) bool
