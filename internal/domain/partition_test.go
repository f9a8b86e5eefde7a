package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Valid(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want bool
	}{
		{"origin", Location{ID: "a"}, true},
		{"corners", Location{ID: "a", Lat: -90, Lon: 180}, true},
		{"lat out of range", Location{ID: "a", Lat: 200}, false},
		{"lon out of range", Location{ID: "a", Lon: -180.5}, false},
		{"nan", Location{ID: "a", Lat: math.NaN()}, false},
		{"inf", Location{ID: "a", Lon: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.Valid())
		})
	}
}

func TestPartition_InvalidCoordinatesDropFlows(t *testing.T) {
	locations := []Location{{ID: "A", Lat: 0, Lon: 0}, {ID: "B", Lat: 200, Lon: 0}}
	flows := []Flow{{Origin: "A", Dest: "B", Count: 5}}

	assert.Equal(t, []string{"B"}, InvalidLocationIDs(locations))
	assert.Empty(t, UnknownLocationIDs(locations, flows))

	known := FlowsForKnownLocations(flows, ValidLocationsByID(locations))
	assert.NotNil(t, known)
	assert.Empty(t, known)
}

func TestUnknownLocationIDs_Sorted(t *testing.T) {
	locations := []Location{{ID: "A"}}
	flows := []Flow{
		{Origin: "A", Dest: "Z", Count: 1},
		{Origin: "M", Dest: "A", Count: 1},
		{Origin: "Z", Dest: "M", Count: 1},
	}

	assert.Equal(t, []string{"M", "Z"}, UnknownLocationIDs(locations, flows))
}

func TestLocationsHavingFlows(t *testing.T) {
	locations := []Location{
		{ID: "A", Lat: 1, Lon: 1},
		{ID: "B", Lat: 2, Lon: 2},
		{ID: "C", Lat: 3, Lon: 3}, // no flows
		{ID: "D", Lat: 95, Lon: 3},
	}
	flows := []Flow{{Origin: "B", Dest: "A", Count: 3}, {Origin: "D", Dest: "A", Count: 1}}

	got := LocationsHavingFlows(locations, flows)

	ids := make([]string, len(got))
	for i, l := range got {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"A", "B"}, ids, "keeps input order, drops invalid and flowless")
}

func TestValidLocationsByID_FirstDuplicateWins(t *testing.T) {
	byID := ValidLocationsByID([]Location{
		{ID: "A", Name: "first"},
		{ID: "A", Name: "second"},
	})

	assert.Len(t, byID, 1)
	assert.Equal(t, "first", byID["A"].Name)
}

func TestLocationTotals(t *testing.T) {
	totals := LocationTotals([]Flow{
		{Origin: "A", Dest: "B", Count: 5},
		{Origin: "B", Dest: "A", Count: 2},
		{Origin: "A", Dest: "A", Count: 1},
	})

	assert.Equal(t, Totals{Incoming: 2, Outgoing: 5, Within: 1}, totals["A"])
	assert.Equal(t, Totals{Incoming: 5, Outgoing: 2}, totals["B"])
}

func TestHasNegativeCounts(t *testing.T) {
	assert.False(t, HasNegativeCounts([]Flow{{Count: 1}}))
	assert.True(t, HasNegativeCounts([]Flow{{Count: 1}, {Count: -2}}))
}

func TestNodeName_FallsBackToID(t *testing.T) {
	assert.Equal(t, "A", Location{ID: "A"}.NodeName())
	assert.Equal(t, "Alpha", Location{ID: "A", Name: "Alpha"}.NodeName())
}

func TestConfig_Flag(t *testing.T) {
	cfg := Config{ConfigClustering: " Yes ", ConfigAnimate: "off", ConfigDarkMode: "maybe"}

	v, ok := cfg.Flag(ConfigClustering)
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = cfg.Flag(ConfigAnimate)
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = cfg.Flag(ConfigDarkMode)
	assert.False(t, ok)

	_, ok = Config(nil).Flag(ConfigDarkMode)
	assert.False(t, ok)
}

func TestConfig_IgnoreErrors(t *testing.T) {
	assert.True(t, Config{ConfigIgnoreErrors: "YES"}.IgnoreErrors())
	assert.False(t, Config{ConfigIgnoreErrors: "no"}.IgnoreErrors())
	assert.False(t, Config{}.IgnoreErrors())
}
