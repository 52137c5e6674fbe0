package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/syssam/veloxcrdb/dialect/sql"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
)

// gisOperators maps spatial lookups to PostGIS operators and functions.
var gisOperators = map[string]schema.GISOperator{
	"bbcontains":     {Op: "~"},
	"bboverlaps":     {Op: "&&"},
	"contained":      {Op: "@"},
	"overlaps_left":  {Op: "&<"},
	"overlaps_right": {Op: "&>"},
	"overlaps_below": {Op: "&<|"},
	"overlaps_above": {Op: "|&>"},
	"left":           {Op: "<<"},
	"right":          {Op: ">>"},
	"strictly_below": {Op: "<<|"},
	"strictly_above": {Op: "|>>"},
	"same_as":        {Op: "~="},
	"exact":          {Op: "~="},

	"contains":          {Func: "ST_Contains"},
	"contains_properly": {Func: "ST_ContainsProperly"},
	"coveredby":         {Func: "ST_CoveredBy"},
	"covers":            {Func: "ST_Covers"},
	"crosses":           {Func: "ST_Crosses"},
	"disjoint":          {Func: "ST_Disjoint"},
	"equals":            {Func: "ST_Equals"},
	"intersects":        {Func: "ST_Intersects"},
	"overlaps":          {Func: "ST_Overlaps"},
	"relate":            {Func: "ST_Relate"},
	"touches":           {Func: "ST_Touches"},
	"within":            {Func: "ST_Within"},
	"dwithin":           {Func: "ST_DWithin"},
	"isvalid":           {Func: "ST_IsValid"},

	"distance_gt":  {Op: ">", Func: "ST_Distance"},
	"distance_gte": {Op: ">=", Func: "ST_Distance"},
	"distance_lt":  {Op: "<", Func: "ST_Distance"},
	"distance_lte": {Op: "<=", Func: "ST_Distance"},
}

// GISFunctions are the spatial database functions known to the dialects.
var GISFunctions = []string{
	"Area", "AsGeoJSON", "AsGML", "AsKML", "AsSVG", "AsWKB", "AsWKT", "Azimuth",
	"BoundingCircle", "Centroid", "ClosestPoint", "Difference", "Distance",
	"Envelope", "ForcePolygonCW", "FromWKB", "FromWKT", "GeoHash",
	"GeometryDistance", "Intersection", "IsValid", "Length", "LineLocatePoint",
	"MakeValid", "MemSize", "NumGeometries", "NumPoints", "Perimeter",
	"PointOnSurface", "Reverse", "Scale", "SnapToGrid", "SymDifference",
	"Transform", "Translate", "Union",
}

// GISOperators returns a copy of the PostGIS lookup table.
func (o *Operations) GISOperators() map[string]schema.GISOperator {
	return maps.Clone(gisOperators)
}

// UnsupportedFunctions returns the spatial functions PostGIS lacks, which is none.
func (o *Operations) UnsupportedFunctions() []string { return nil }

// SupportsFunction reports whether the named spatial function is available.
func (o *Operations) SupportsFunction(name string) bool {
	return slices.Contains(GISFunctions, name)
}

// PostGISLibVersion returns the version of the PostGIS library installed on the server.
func (o *Operations) PostGISLibVersion(ctx context.Context) (string, error) {
	return o.queryString(ctx, "SELECT postgis_lib_version()")
}

// PostGISVersion returns the PostGIS version reported by the server.
func (o *Operations) PostGISVersion(ctx context.Context) (schema.Version, error) {
	s, err := o.queryString(ctx, "SELECT postgis_version()")
	if err != nil {
		return schema.Version{}, err
	}
	return schema.ParseVersion(s)
}

// queryString runs a query returning a single text value.
func (o *Operations) queryString(ctx context.Context, query string) (string, error) {
	rows := &sql.Rows{}
	if err := o.drv.Query(ctx, query, []any{}, rows); err != nil {
		return "", fmt.Errorf("dialect/postgres: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", fmt.Errorf("dialect/postgres: %w", err)
		}
		return "", fmt.Errorf("dialect/postgres: %q returned no rows", query)
	}
	var s string
	if err := rows.Scan(&s); err != nil {
		return "", fmt.Errorf("dialect/postgres: scan: %w", err)
	}
	return s, rows.Err()
}

var _ schema.GISOperations = (*Operations)(nil)
