package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// ErrFieldNotSet is returned by Field when the requested key has not
// been written by any completed step.
var ErrFieldNotSet = errors.New("workflow: step data field not set")

// Data is the accumulating record of results produced by completed
// steps within one instance. Entries are only ever added or
// overwritten, never removed, so work from earlier steps remains
// visible to later ones.
type Data map[string]json.RawMessage

// Merge returns a new Data containing all entries of d overlaid with
// all entries of other. Neither receiver nor argument is modified.
func (d Data) Merge(other Data) Data {
	merged := make(Data, len(d)+len(other))
	maps.Copy(merged, d)
	maps.Copy(merged, other)
	return merged
}

// Clone returns a shallow copy of d. The json.RawMessage values are
// shared; callers must not mutate them in place.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Has reports whether key has been written.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Field decodes the value stored under key into T.
// Returns ErrFieldNotSet (wrapped with the key) if the key is absent.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Field[T any](d Data, key string) (T, error) {
	var v T
	raw, ok := d[key]
	if !ok {
		return v, fmt.Errorf("%w: %q", ErrFieldNotSet, key)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("workflow: decode step data field %q: %w", key, err)
	}
	return v, nil
}

// SetField encodes v and stores it under key.
func SetField[T any](d Data, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("workflow: encode step data field %q: %w", key, err)
	}
	d[key] = raw
	return nil
}
