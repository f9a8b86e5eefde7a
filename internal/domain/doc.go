// Package domain models origin-destination flow map data.
//
// # Data Source
//
// A flow map is described by three tables, usually kept as sheets of one
// spreadsheet and exported to CSV:
//
//	locations   id, name, lat, lon
//	flows       origin, dest, count
//	properties  property, value
//
// Locations are identified by a string id that is unique within one dataset
// load. Flows reference locations by id; several rows with the same
// (origin, dest) pair are summed when flows are aggregated.
//
// # Coordinate Conventions
//
// Coordinates are WGS-84 decimal degrees. A location is valid when
// lat ∈ [-90, 90] and lon ∈ [-180, 180] and both values are finite. Invalid
// locations are never clustered or rendered; their ids are reported as
// diagnostics instead. Degrees-minutes-seconds values and swapped lat/lon
// columns are the usual causes, see [Location.Valid].
//
// # Diff Mode
//
// Flow counts are magnitudes. A negative count is allowed only when the
// dataset compares two periods ("diff mode"): the sign then encodes a
// decrease. [HasNegativeCounts] detects it.
//
// # Clusters
//
// When the map is zoomed out, nearby locations are merged into synthetic
// [ClusterNode] values. A cluster id always maps to the same set of
// locations, so selection and highlight can refer to it across zoom changes.
// Both [Location] and [ClusterNode] implement [Node], the element type of
// every collection handed to the rendering layer.
package domain
