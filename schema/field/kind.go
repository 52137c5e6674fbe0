package field

import (
	"fmt"
	"math"
)

// Kind identifies the ORM field type a database column is mapped to.
type Kind string

// Integer kinds.
const (
	SmallIntegerField         Kind = "SmallIntegerField"
	IntegerField              Kind = "IntegerField"
	BigIntegerField           Kind = "BigIntegerField"
	PositiveSmallIntegerField Kind = "PositiveSmallIntegerField"
	PositiveIntegerField      Kind = "PositiveIntegerField"
	PositiveBigIntegerField   Kind = "PositiveBigIntegerField"
	SmallAutoField            Kind = "SmallAutoField"
	AutoField                 Kind = "AutoField"
	BigAutoField              Kind = "BigAutoField"
)

// Other kinds produced by introspection.
const (
	BooleanField          Kind = "BooleanField"
	BinaryField           Kind = "BinaryField"
	TextField             Kind = "TextField"
	CharField             Kind = "CharField"
	FloatField            Kind = "FloatField"
	DecimalField          Kind = "DecimalField"
	GenericIPAddressField Kind = "GenericIPAddressField"
	DateField             Kind = "DateField"
	TimeField             Kind = "TimeField"
	DateTimeField         Kind = "DateTimeField"
	DurationField         Kind = "DurationField"
	UUIDField             Kind = "UUIDField"
	JSONField             Kind = "JSONField"
)

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// IsInteger reports whether the kind stores integers.
func (k Kind) IsInteger() bool {
	switch k {
	case SmallIntegerField, IntegerField, BigIntegerField,
		PositiveSmallIntegerField, PositiveIntegerField, PositiveBigIntegerField,
		SmallAutoField, AutoField, BigAutoField:
		return true
	}
	return false
}

// AutoKind returns the auto-incrementing counterpart of an integer kind, or
// the kind itself if there is none.
func (k Kind) AutoKind() Kind {
	switch k {
	case SmallIntegerField:
		return SmallAutoField
	case IntegerField:
		return AutoField
	case BigIntegerField:
		return BigAutoField
	}
	return k
}

// Range is the inclusive range of values an integer kind accepts.
type Range struct {
	Min, Max int64
}

// Common ranges.
var (
	Int16Range  = Range{Min: math.MinInt16, Max: math.MaxInt16}
	Int32Range  = Range{Min: math.MinInt32, Max: math.MaxInt32}
	Int64Range  = Range{Min: math.MinInt64, Max: math.MaxInt64}
	Uint15Range = Range{Min: 0, Max: math.MaxInt16}
	Uint31Range = Range{Min: 0, Max: math.MaxInt32}
	Uint63Range = Range{Min: 0, Max: math.MaxInt64}
)

// Contains reports whether v lies within the range.
func (r Range) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// String returns the range in (min, max) form.
func (r Range) String() string {
	return fmt.Sprintf("(%d, %d)", r.Min, r.Max)
}

// Ranges maps integer kinds to their ranges.
type Ranges map[Kind]Range

// Clone returns a copy of the ranges.
func (r Ranges) Clone() Ranges {
	c := make(Ranges, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Validate returns an error if v does not fit the range of kind k. Kinds
// without a declared range accept any value.
func (r Ranges) Validate(k Kind, v int64) error {
	rng, ok := r[k]
	if !ok || rng.Contains(v) {
		return nil
	}
	return fmt.Errorf("field: %s value %d out of range %s", k, v, rng)
}
