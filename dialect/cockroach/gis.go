package cockroach

import (
	"context"
	"slices"

	"github.com/syssam/veloxcrdb/dialect/sql/schema"
)

// unsupportedFunctions are the spatial functions CockroachDB lacks.
var unsupportedFunctions = []string{
	"AsGML",
	"AsKML",
	"AsSVG",
	"BoundingCircle",
	"GeometryDistance", // <-> operator
	"LineLocatePoint",
	"MemSize",
}

// GISOperators returns the PostGIS lookups without strictly_above and
// strictly_below, which CockroachDB does not implement.
func (o *Operations) GISOperators() map[string]schema.GISOperator {
	ops := o.Operations.GISOperators()
	delete(ops, "strictly_above")
	delete(ops, "strictly_below")
	return ops
}

// UnsupportedFunctions returns the sorted names of the spatial functions
// CockroachDB lacks.
func (o *Operations) UnsupportedFunctions() []string {
	return slices.Clone(unsupportedFunctions)
}

// SupportsFunction reports whether the named spatial function is available.
func (o *Operations) SupportsFunction(name string) bool {
	return o.Operations.SupportsFunction(name) && !slices.Contains(unsupportedFunctions, name)
}

// PostGISLibVersion returns the PostGIS library version CockroachDB is
// compatible with. The server is not queried.
func (o *Operations) PostGISLibVersion(context.Context) (string, error) {
	return "3.0", nil
}

// PostGISVersion returns the PostGIS version CockroachDB emulates.
func (o *Operations) PostGISVersion(context.Context) (schema.Version, error) {
	return schema.Version{Major: 2, Minor: 5}, nil
}
