package domain

import "sort"

// InvalidLocationIDs returns the ids of locations with out-of-range or
// non-finite coordinates, in input order. The result is never nil.
func InvalidLocationIDs(locations []Location) []string {
	ids := []string{}
	for _, l := range locations {
		if !l.Valid() {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// ValidLocationsByID indexes the valid locations. The first occurrence of a
// duplicated id wins.
func ValidLocationsByID(locations []Location) map[string]Location {
	byID := make(map[string]Location, len(locations))
	for _, l := range locations {
		if !l.Valid() {
			continue
		}
		if _, dup := byID[l.ID]; !dup {
			byID[l.ID] = l
		}
	}
	return byID
}

// UnknownLocationIDs returns, sorted, the ids referenced by flows that do not
// appear in locations at all. Locations that exist but have invalid
// coordinates are not unknown; they are reported by InvalidLocationIDs.
func UnknownLocationIDs(locations []Location, flows []Flow) []string {
	known := make(map[string]struct{}, len(locations))
	for _, l := range locations {
		known[l.ID] = struct{}{}
	}
	missing := make(map[string]struct{})
	for _, f := range flows {
		if _, ok := known[f.Origin]; !ok {
			missing[f.Origin] = struct{}{}
		}
		if _, ok := known[f.Dest]; !ok {
			missing[f.Dest] = struct{}{}
		}
	}
	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FlowsForKnownLocations keeps the flows whose both endpoints are valid
// locations. The result is never nil.
func FlowsForKnownLocations(flows []Flow, valid map[string]Location) []Flow {
	out := make([]Flow, 0, len(flows))
	for _, f := range flows {
		_, okOrigin := valid[f.Origin]
		_, okDest := valid[f.Dest]
		if okOrigin && okDest {
			out = append(out, f)
		}
	}
	return out
}

// LocationsHavingFlows keeps, in input order, the valid locations that are an
// endpoint of at least one of flows.
func LocationsHavingFlows(locations []Location, flows []Flow) []Location {
	used := make(map[string]struct{}, len(locations))
	for _, f := range flows {
		used[f.Origin] = struct{}{}
		used[f.Dest] = struct{}{}
	}
	out := make([]Location, 0, len(used))
	seen := make(map[string]struct{}, len(used))
	for _, l := range locations {
		if !l.Valid() {
			continue
		}
		if _, ok := used[l.ID]; !ok {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

// LocationTotals sums incoming, outgoing and self flows per location id.
func LocationTotals(flows []Flow) map[string]Totals {
	totals := make(map[string]Totals)
	for _, f := range flows {
		if f.Origin == f.Dest {
			t := totals[f.Origin]
			t.Within += f.Count
			totals[f.Origin] = t
			continue
		}
		o := totals[f.Origin]
		o.Outgoing += f.Count
		totals[f.Origin] = o
		d := totals[f.Dest]
		d.Incoming += f.Count
		totals[f.Dest] = d
	}
	return totals
}
