package pipeline

import (
	"sort"
	"strings"

	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/state"
)

// MaxSearchResults caps the unselected candidates a search returns.
const MaxSearchResults = 100

// SearchBoxLocations are the search box candidates split by selection.
// Selected is nil when nothing is selected.
type SearchBoxLocations struct {
	Selected   []domain.Node `json:"selected"`
	Unselected []domain.Node `json:"unselected"`
}

type searchKey struct {
	locations sliceID
	selection sliceID
	index     *cluster.Index
}

// LocationsForSearchBox returns the locations having flows, plus any
// selected clusters, sorted by display name then id.
func (p *Pipeline) LocationsForSearchBox(s state.State) (SearchBoxLocations, bool) {
	locations := p.LocationsHavingFlows()
	if locations == nil {
		return SearchBoxLocations{}, false
	}
	var ix *cluster.Index
	if s.ClusteringEnabled {
		ix = p.ClusterIndex()
	}
	key := searchKey{locations: idOf(locations), selection: idOf(s.SelectedLocations), index: ix}
	return p.search.get(key, func() SearchBoxLocations {
		candidates := make([]domain.Node, 0, len(locations)+len(s.SelectedLocations))
		for _, l := range locations {
			candidates = append(candidates, l)
		}
		if ix != nil {
			for _, id := range s.SelectedLocations {
				if c, ok := ix.ClusterByID(id); ok {
					candidates = append(candidates, c)
				}
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.NodeName() != b.NodeName() {
				return a.NodeName() < b.NodeName()
			}
			return a.NodeID() < b.NodeID()
		})

		if s.SelectedLocations == nil {
			return SearchBoxLocations{Unselected: candidates}
		}
		out := SearchBoxLocations{Selected: []domain.Node{}, Unselected: []domain.Node{}}
		for _, n := range candidates {
			if s.IsSelected(n.NodeID()) {
				out.Selected = append(out.Selected, n)
			} else {
				out.Unselected = append(out.Unselected, n)
			}
		}
		return out
	}), true
}

// MatchesSearchQuery reports whether every whitespace separated term of
// query occurs, case-insensitively, in the node's id or name.
func MatchesSearchQuery(n domain.Node, query string) bool {
	text := strings.ToLower(n.NodeID() + " " + n.NodeName())
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// FilterSearch keeps the nodes matching query, at most limit of them.
func FilterSearch(nodes []domain.Node, query string, limit int) []domain.Node {
	out := make([]domain.Node, 0, min(len(nodes), limit))
	for _, n := range nodes {
		if len(out) == limit {
			break
		}
		if MatchesSearchQuery(n, query) {
			out = append(out, n)
		}
	}
	return out
}
