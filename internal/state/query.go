package state

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// Query string keys of the shareable state.
const (
	queryViewState  = "v"
	querySelected   = "s"
	queryClustering = "c"
	queryAnimation  = "a"
	queryTotals     = "lt"
	queryDarkMode   = "d"
	queryColors     = "col"
	queryFade       = "f"
)

// Shareable is the part of the state that survives a page reload or a shared
// link. Hover state and the viewport-fit flag are session local.
type Shareable struct {
	ViewState             domain.ViewState
	SelectedLocations     []string
	ClusteringEnabled     bool
	AnimationEnabled      bool
	LocationTotalsEnabled bool
	DarkMode              bool
	ColorSchemeKey        string
	FadeAmount            float64
}

// Shareable returns the shareable subset of s.
func (s State) Shareable() Shareable {
	return Shareable{
		ViewState:             s.ViewState,
		SelectedLocations:     normalizeSelection(s.SelectedLocations),
		ClusteringEnabled:     s.ClusteringEnabled,
		AnimationEnabled:      s.AnimationEnabled,
		LocationTotalsEnabled: s.LocationTotalsEnabled,
		DarkMode:              s.DarkMode,
		ColorSchemeKey:        s.ColorSchemeKey,
		FadeAmount:            s.FadeAmount,
	}
}

// EncodeQuery serialises the shareable subset of s. Every key is always
// written and keys are sorted, so equal shareable states give equal strings.
func EncodeQuery(s State) string {
	q := url.Values{}
	vs := s.ViewState
	q.Set(queryViewState, strings.Join([]string{
		formatFloat(vs.Latitude),
		formatFloat(vs.Longitude),
		formatFloat(vs.Zoom),
		formatFloat(vs.Bearing),
		formatFloat(vs.Pitch),
	}, ","))
	for _, id := range normalizeSelection(s.SelectedLocations) {
		q.Add(querySelected, id)
	}
	q.Set(queryClustering, formatBool(s.ClusteringEnabled))
	q.Set(queryAnimation, formatBool(s.AnimationEnabled))
	q.Set(queryTotals, formatBool(s.LocationTotalsEnabled))
	q.Set(queryDarkMode, formatBool(s.DarkMode))
	q.Set(queryColors, s.ColorSchemeKey)
	q.Set(queryFade, formatFloat(s.FadeAmount))
	return q.Encode()
}

// DecodeQuery applies the values found in qs on top of base. Unknown keys and
// malformed values are ignored. A decoded viewport turns off fitting the
// viewport to the data.
func DecodeQuery(base State, qs string) State {
	// ParseQuery keeps every pair it could parse even when it reports an error.
	q, _ := url.ParseQuery(strings.TrimPrefix(qs, "?"))
	s := base

	if v, ok := lastValue(q, queryViewState); ok {
		if vs, ok := parseViewState(v); ok {
			s.ViewState = vs
			s.AdjustViewportToLocations = false
		}
	}
	if ids, ok := q[querySelected]; ok {
		s.SelectedLocations = normalizeSelection(ids)
	}
	decodeBool(q, queryClustering, &s.ClusteringEnabled)
	decodeBool(q, queryAnimation, &s.AnimationEnabled)
	decodeBool(q, queryTotals, &s.LocationTotalsEnabled)
	decodeBool(q, queryDarkMode, &s.DarkMode)
	if v, ok := lastValue(q, queryColors); ok {
		s.ColorSchemeKey = v
	}
	if v, ok := lastValue(q, queryFade); ok {
		if f, ok := parseFinite(v); ok {
			s.FadeAmount = f
		}
	}
	return s
}

// InitialState layers the configuration sheet and then the query string over
// the defaults.
func InitialState(cfg domain.Config, qs string) State {
	s := Defaults()
	if v := cfg.Get(domain.ConfigColorScheme); v != "" {
		s.ColorSchemeKey = v
	}
	if v, ok := cfg.Flag(domain.ConfigDarkMode); ok {
		s.DarkMode = v
	}
	if v, ok := cfg.Flag(domain.ConfigAnimate); ok {
		s.AnimationEnabled = v
	}
	if v, ok := cfg.Flag(domain.ConfigClustering); ok {
		s.ClusteringEnabled = v
	}
	return DecodeQuery(s, qs)
}

func parseViewState(v string) (domain.ViewState, bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 3 && len(parts) != 5 {
		return domain.ViewState{}, false
	}
	nums := make([]float64, 5)
	for i, p := range parts {
		f, ok := parseFinite(p)
		if !ok {
			return domain.ViewState{}, false
		}
		nums[i] = f
	}
	return domain.ViewState{
		Latitude:  nums[0],
		Longitude: nums[1],
		Zoom:      domain.ClampZoom(nums[2]),
		Bearing:   nums[3],
		Pitch:     nums[4],
	}, true
}

func lastValue(q url.Values, key string) (string, bool) {
	vs := q[key]
	if len(vs) == 0 {
		return "", false
	}
	return vs[len(vs)-1], true
}

func decodeBool(q url.Values, key string, dst *bool) {
	switch v, _ := lastValue(q, key); v {
	case "1":
		*dst = true
	case "0":
		*dst = false
	}
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
