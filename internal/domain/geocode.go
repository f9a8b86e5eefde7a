package domain

import (
	"context"
	"log/slog"
)

// NameLocations fills in missing names by reverse geocoding the location
// coordinates. Named and invalid locations are left untouched, and a failed
// lookup keeps the location unnamed (graceful degradation). The input slice
// is not modified; a new slice is returned whenever geocoder is non-nil.
func NameLocations(ctx context.Context, locations []Location, geocoder Geocoder, logger *slog.Logger) []Location {
	if geocoder == nil || locations == nil {
		return locations
	}

	out := make([]Location, len(locations))
	copy(out, locations)

	named := 0
	for i := range out {
		if ctx.Err() != nil {
			break
		}
		loc := &out[i]
		if loc.Name != "" || !loc.Valid() {
			continue
		}
		result, err := geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"location_id", loc.ID,
				"lat", loc.Lat,
				"lon", loc.Lon,
				"error", err,
			)
			continue
		}
		if result.PlaceName != "" {
			loc.Name = result.PlaceName
			named++
		}
	}

	if named > 0 {
		logger.Info("named locations by reverse geocoding", "count", named)
	}
	return out
}
