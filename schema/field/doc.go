// Package field defines the field kinds a dialect maps database columns to,
// and the value ranges of the integer kinds.
//
// Kinds are named after the ORM field types they describe:
//
//	field.IntegerField            // INT
//	field.PositiveSmallIntegerField
//	field.BigAutoField            // INT8 with a generated default
//
// Integer ranges are dialect specific. A dialect publishes them as a map from
// Kind to Range:
//
//	r := ranges[field.PositiveSmallIntegerField] // Range{Min: 0, Max: 32767}
//	r.Contains(40000)                             // false
package field
