package forms

import (
	"context"
)

// ExtraDataValue resolves one extra-data entry. A nil pointer means the key
// is skipped entirely.
type ExtraDataValue func(ctx context.Context) (*string, error)

// Literal adapts a constant string into an immediately-resolved value.
func Literal(value string) ExtraDataValue {
	return func(ctx context.Context) (*string, error) {
		return &value, nil
	}
}

// ExtraData is an ordered mapping from key to value resolver. Setting an
// existing key replaces its resolver but keeps its original position.
type ExtraData struct {
	keys   []string
	values map[string]ExtraDataValue
}

// NewExtraData returns an empty mapping.
func NewExtraData() *ExtraData {
	return &ExtraData{values: map[string]ExtraDataValue{}}
}

// Set adds or replaces the resolver for a key.
func (d *ExtraData) Set(key string, value ExtraDataValue) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// SetLiteral adds or replaces a constant value for a key.
func (d *ExtraData) SetLiteral(key, value string) {
	d.Set(key, Literal(value))
}

// Len returns the number of keys.
func (d *ExtraData) Len() int {
	return len(d.keys)
}

// AppendExtraData resolves every entry in insertion order and appends the
// concrete values into the payload, using the usual multipart-append vs
// plain-set rule. Keys resolving to a nil pointer are omitted. A resolver
// error aborts the merge and propagates; keys resolved before the failure
// stay applied. Resolver failures are treated as programmer error, matching
// the propagation policy for construction errors.
func AppendExtraData(ctx context.Context, data SubmissionData, extra *ExtraData) error {
	if extra == nil {
		return nil
	}
	for _, key := range extra.keys {
		value, err := extra.values[key](ctx)
		if err != nil {
			return err
		}
		if value == nil {
			continue
		}
		data.Append(key, *value)
	}
	return nil
}
